package main

import (
	"context"
	"os"
	"sync"

	"github.com/Garik-/midiparse/pkg/midi"
	"go.uber.org/zap"
)

type result struct {
	name    string
	decoder *midi.Decoder
	err     error
}

func decodeFile(name string) *result {
	out := &result{name: name}
	f, err := os.Open(name)
	if err != nil {
		out.err = err
		return out
	}

	defer f.Close()

	decoder := midi.NewDecoder(f)
	if err := decoder.Decode(); err != nil {
		out.err = err
		return out
	}

	out.decoder = decoder
	return out
}

func decodeWorker(ctx context.Context, paths <-chan string, cntRoutines int) (<-chan *result, <-chan struct{}) {
	out := make(chan *result)
	done := make(chan struct{}, 1)

	go func() {
		var wg sync.WaitGroup
		goroutines := make(chan struct{}, cntRoutines)

	loop:
		for path := range paths {
			select {
			case goroutines <- struct{}{}:
			case <-ctx.Done():
				decoderLog.Debug("context done")
				break loop
			}
			wg.Add(1)
			go func(path string) {
				defer wg.Done()

				select {
				case out <- decodeFile(path):
				case <-ctx.Done():
					decoderLog.Debug("decodeFile context done", zap.String("name", path))
				}
				<-goroutines
			}(path)
		}

		wg.Wait()
		close(goroutines)
		close(out)

		done <- struct{}{}
		close(done)
	}()

	return out, done
}
