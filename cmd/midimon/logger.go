package main

import (
	"github.com/Garik-/midiparse/pkg/midi"
	"go.uber.org/zap"
)

var monitorLog = zap.NewNop()

func enableLogging(l *zap.Logger, debug bool) {
	monitorLog = l
	if debug {
		midi.EnableDebugLogging(l)
	}
}
