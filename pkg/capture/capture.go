// Package capture stores parsed MIDI packets in a CBOR file: a Header
// followed by one Record per packet.
package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/Garik-/midiparse/pkg/midi"
	"github.com/fxamacker/cbor/v2"
)

const Version = 1

var ErrVersion = errors.New("capture: unsupported version")

type Header struct {
	_       struct{} `cbor:",toarray"`
	Version int
	Source  string
	// Started is the capture start in unix nanoseconds.
	Started int64
}

type Record struct {
	_ struct{} `cbor:",toarray"`
	// Offset from Header.Started in nanoseconds.
	Offset int64
	Packet midi.Packet
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dm, err := cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	encMode, decMode = em, dm
}

type Writer struct {
	enc *cbor.Encoder
}

// NewWriter writes h, with Version set, and returns a Writer for records.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	h.Version = Version
	enc := encMode.NewEncoder(w)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("capture: failed to write header: %w", err)
	}
	return &Writer{enc: enc}, nil
}

func (w *Writer) Write(r Record) error {
	if err := w.enc.Encode(r); err != nil {
		return fmt.Errorf("capture: failed to write record: %w", err)
	}
	return nil
}

type Reader struct {
	dec *cbor.Decoder
}

func NewReader(r io.Reader) (*Reader, Header, error) {
	dec := decMode.NewDecoder(r)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, h, fmt.Errorf("capture: failed to read header: %w", err)
	}
	if h.Version != Version {
		return nil, h, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	return &Reader{dec: dec}, h, nil
}

// Next returns io.EOF after the last record.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return rec, err
		}
		return rec, fmt.Errorf("capture: failed to read record: %w", err)
	}
	return rec, nil
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}
