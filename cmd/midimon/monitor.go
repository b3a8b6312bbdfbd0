package main

import (
	"context"
	"io"
	"time"

	"github.com/Garik-/midiparse/pkg/capture"
	"github.com/Garik-/midiparse/pkg/midi"
	"go.uber.org/zap"
)

type monitor struct {
	cable   uint8
	capture *capture.Writer
	start   time.Time
	now     func() time.Time
	log     *zap.Logger
	packets int
}

func newMonitor(cable uint8, w *capture.Writer, start time.Time) *monitor {
	return &monitor{
		cable:   cable,
		capture: w,
		start:   start,
		now:     time.Now,
		log:     monitorLog.Named("monitor"),
	}
}

func (m *monitor) handle(pkt midi.Packet) error {
	m.packets++

	msg := midi.Encode(pkt)
	m.log.Info("packet",
		zap.Stringer("packet", pkt),
		zap.String("name", midi.StatusName(msg[0])),
		zap.Binary("usb", usb(pkt)))

	if m.capture == nil {
		return nil
	}
	rec := capture.Record{Offset: m.now().Sub(m.start).Nanoseconds(), Packet: pkt}
	return m.capture.Write(rec)
}

func usb(pkt midi.Packet) []byte {
	b := pkt.USB()
	return b[:]
}

// run feeds the monitor until r is exhausted or ctx is cancelled. With
// follow set, io.EOF is treated as a read timeout and reading goes on.
func run(ctx context.Context, r io.Reader, m *monitor, follow bool) error {
	pkts, errc := readPackets(ctx, midi.NewStreamReader(r, m.cable), follow)

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("context done", zap.Int("packets", m.packets))
			return nil
		case pkt, ok := <-pkts:
			if !ok {
				return <-errc
			}
			if err := m.handle(pkt); err != nil {
				return err
			}
		}
	}
}

// readPackets keeps the parser state across read timeouts, so a message
// split over two reads still completes.
func readPackets(ctx context.Context, s *midi.StreamReader, follow bool) (<-chan midi.Packet, <-chan error) {
	out := make(chan midi.Packet)
	errc := make(chan error, 1)

	go func() {
		defer close(out)

		for {
			pkt, err := s.Next()
			switch {
			case err == nil:
			case timedOut(err) && follow && ctx.Err() == nil:
				continue
			case err == io.EOF:
				errc <- nil
				return
			default:
				errc <- err
				return
			}

			select {
			case out <- pkt:
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
	}()

	return out, errc
}

// timedOut reports a serial read that returned no data. bufio gives up
// with io.ErrNoProgress after repeated empty reads.
func timedOut(err error) bool {
	return err == io.EOF || err == io.ErrNoProgress
}
