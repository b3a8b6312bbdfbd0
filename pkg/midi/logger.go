package midi

import "go.uber.org/zap"

var parserLog = zap.NewNop()
var decoderLog = zap.NewNop()

func EnableDebugLogging(l *zap.Logger) {
	parserLog = l.Named("parser")
	decoderLog = l.Named("decoder")
}
