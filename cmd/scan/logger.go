package main

import (
	"github.com/Garik-/midiparse/pkg/midi"
	"go.uber.org/zap"
)

var decoderLog = zap.NewNop()
var reportLog = zap.NewNop()

func enableLogging(l *zap.Logger, debug bool) {
	decoderLog = l.Named("decodeWorker")
	reportLog = l.Named("report")
	if debug {
		midi.EnableDebugLogging(l)
	}
}
