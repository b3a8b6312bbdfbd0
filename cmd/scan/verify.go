package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Garik-/midiparse/pkg/capture"
	"github.com/Garik-/midiparse/pkg/midi"
	"go.uber.org/zap"
)

var errMismatch = errors.New("round trip mismatch")

type report struct {
	Files      int
	Failed     int
	Tracks     int
	Packets    int
	Mismatches int
}

// verifyTrack parses the live byte stream of a track and checks that the
// packets encode back to the explicit-status bytes of its events.
func verifyTrack(cable uint8, track *midi.Track) ([]midi.Packet, error) {
	pkts := midi.ParseBytes(cable, track.Stream)
	got := midi.EncodeAll(pkts)

	var want []byte
	for _, e := range track.Events {
		want = append(want, e.Data...)
	}

	if !bytes.Equal(got, want) {
		return pkts, fmt.Errorf("%w at byte %d", errMismatch, firstDiff(got, want))
	}
	return pkts, nil
}

func firstDiff(a, b []byte) int {
	for i := range a {
		if i >= len(b) || a[i] != b[i] {
			return i
		}
	}
	return len(a)
}

// writeCapture stores every track of a decoded file, one cable per track.
func writeCapture(dir string, name string, d *midi.Decoder) error {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	f, err := os.Create(filepath.Join(dir, base+".cbor"))
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := capture.NewWriter(f, capture.Header{Source: name})
	if err != nil {
		return err
	}

	for i, track := range d.Tracks {
		var p midi.Parser
		cable := uint8(i) & 0x0F
		for _, e := range track.Events {
			offset := d.Offset(e.AbsTicks).Nanoseconds()
			for _, b := range e.Data {
				pkt, ok := p.Parse(cable, b)
				if !ok {
					continue
				}
				if err := w.Write(capture.Record{Offset: offset, Packet: pkt}); err != nil {
					return err
				}
			}
		}
	}

	return f.Close()
}

func newReport(parent context.Context, paths <-chan string, cntRoutines int, outDir string) (*report, error) {
	log := reportLog.Named("newReport")
	ctx, cancel := context.WithCancel(parent)
	results, done := decodeWorker(ctx, paths, cntRoutines)

	defer func() {
		log.Debug("cancel")
		cancel()
		<-done // wait decodeWorker closed
	}()

	r := new(report)

	for result := range results {
		r.Files++

		if result.err != nil {
			r.Failed++
			log.Warn("decode", zap.String("name", result.name), zap.Error(result.err))
			continue
		}

		for i, track := range result.decoder.Tracks {
			pkts, err := verifyTrack(uint8(i)&0x0F, track)
			r.Tracks++
			r.Packets += len(pkts)
			if err != nil {
				r.Mismatches++
				log.Warn("verify", zap.String("name", result.name), zap.Int("track", i), zap.Error(err))
			}
		}

		log.Debug("result", zap.String("name", result.name), zap.Int("tracks", len(result.decoder.Tracks)))

		if outDir != "" {
			if err := writeCapture(outDir, result.name, result.decoder); err != nil {
				return nil, fmt.Errorf("capture %s: %w", result.name, err)
			}
		}
	}

	return r, nil
}
