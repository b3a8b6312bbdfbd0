package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Garik-/midiparse/internal/serial"
	"github.com/Garik-/midiparse/pkg/capture"
	"go.uber.org/zap"
)

var (
	deviceFlag  = flag.String("device", "/dev/ttyAMA0", "Serial device path")
	baudFlag    = flag.Int("baud", serial.MIDIBaud, "Baud rate")
	inFlag      = flag.String("in", "", "Read raw MIDI bytes from a file instead of the serial device, - for stdin")
	cableFlag   = flag.Uint("cable", 0, "Cable number stamped on every packet, 0-15")
	captureFlag = flag.String("capture", "", "Write parsed packets to a CBOR capture file")
	verboseFlag = flag.Bool("v", false, "Debug logging")
)

type input struct {
	io.ReadCloser
	name   string
	follow bool
}

func openInput() (*input, error) {
	switch *inFlag {
	case "-":
		return &input{ReadCloser: io.NopCloser(os.Stdin), name: "stdin"}, nil
	case "":
	default:
		f, err := os.Open(*inFlag)
		if err != nil {
			return nil, err
		}
		return &input{ReadCloser: f, name: *inFlag}, nil
	}

	cfg := serial.DefaultConfig(*deviceFlag)
	cfg.Baud = *baudFlag
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, err
	}
	return &input{ReadCloser: port, name: cfg.Device, follow: true}, nil
}

func newLogger() (*zap.Logger, error) {
	if *verboseFlag {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s \n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *cableFlag > 0x0F {
		flag.Usage()
		return
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	enableLogging(logger, *verboseFlag)

	in, err := openInput()
	if err != nil {
		logger.Fatal("open input", zap.Error(err))
	}
	defer in.Close()

	start := time.Now()

	var w *capture.Writer
	if *captureFlag != "" {
		f, err := os.Create(*captureFlag)
		if err != nil {
			logger.Fatal("create capture", zap.Error(err))
		}
		defer f.Close()

		w, err = capture.NewWriter(f, capture.Header{Source: in.name, Started: start.UnixNano()})
		if err != nil {
			logger.Fatal("create capture", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := newMonitor(uint8(*cableFlag), w, start)
	logger.Info("listening", zap.String("input", in.name), zap.Uint("cable", *cableFlag))

	if err := run(ctx, in, m, in.follow); err != nil {
		logger.Error("read", zap.Error(err))
	}
	logger.Info("done", zap.Int("packets", m.packets), zap.Duration("elapsed", time.Since(start)))
}
