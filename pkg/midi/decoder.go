package midi

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"
)

type timeFormat int

const (
	MetricalTF timeFormat = iota + 1
	TimeCodeTF
)

const (
	metaEvent      = 0xFF
	metaEndOfTrack = 0x2F
	metaTempo      = 0x51

	// microseconds per quarter note until a tempo meta event says otherwise
	defaultTempo = 500000
)

var (
	headerChunkID = [4]byte{0x4D, 0x54, 0x68, 0x64}
	trackChunkID  = [4]byte{0x4D, 0x54, 0x72, 0x6B}

	// ErrFmtNotSupported is a generic error reporting an unknown format.
	ErrFmtNotSupported = errors.New("format not supported")
	// ErrUnexpectedData is a generic error reporting that the parser encountered unexpected data.
	ErrUnexpectedData = errors.New("unexpected data content")
)

// Event is a channel or sysex message of a track, Data always starting
// with its status byte.
type Event struct {
	TimeDelta uint32
	AbsTicks  uint64
	Status    byte
	Data      []byte
}

// Track holds the events of one MTrk chunk. Stream is the same events
// written out as a live MIDI byte stream, with running status applied.
type Track struct {
	Events []*Event
	Stream []byte

	ticks   uint64
	running byte
}

func (t *Track) add(e *Event) {
	t.Events = append(t.Events, e)

	if IsChannel(e.Status) && e.Status == t.running {
		t.Stream = append(t.Stream, e.Data[1:]...)
		return
	}
	t.Stream = append(t.Stream, e.Data...)

	if IsChannel(e.Status) {
		t.running = e.Status
	} else {
		t.running = 0
	}
}

type tempoChange struct {
	tick uint64
	// microseconds per quarter note
	tempo uint32
}

// Decoder reads a Standard MIDI File.
type Decoder struct {
	r            *bufio.Reader
	lastStatus   byte
	currentTrack *Track
	offset       int64
	chunkEnd     int64
	tempos       []tempoChange

	Format              uint16
	TicksPerQuarterNote uint16
	FramesPerSecond     uint8
	TicksPerFrame       uint8
	TimeFormat          timeFormat
	Tracks              []*Track
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

func (d *Decoder) Decode() error {
	var code [4]byte
	if err := d.read(&code); err != nil {
		return err
	}

	if code != headerChunkID {
		return fmt.Errorf("%w - %v", ErrFmtNotSupported, code)
	}

	var headerSize uint32
	if err := d.read(&headerSize); err != nil {
		return err
	}

	if headerSize < 6 {
		return fmt.Errorf("%w - expected header size to be 6, was %d", ErrFmtNotSupported, headerSize)
	}

	var header struct {
		Format    uint16
		NumTracks uint16
		Division  uint16
	}
	if err := d.read(&header); err != nil {
		return err
	}
	if err := d.skip(int64(headerSize) - 6); err != nil {
		return err
	}

	d.Format = header.Format
	if (header.Division & 0x8000) == 0 {
		d.TicksPerQuarterNote = header.Division & 0x7FFF
		d.TimeFormat = MetricalTF
	} else {
		d.FramesPerSecond = uint8(-int8(header.Division >> 8))
		d.TicksPerFrame = uint8(header.Division)
		d.TimeFormat = TimeCodeTF
	}

	for {
		err := d.parseChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	// tempo changes apply to every track, whichever track carries them
	sort.SliceStable(d.tempos, func(i, j int) bool {
		return d.tempos[i].tick < d.tempos[j].tick
	})

	if len(d.Tracks) != int(header.NumTracks) {
		decoderLog.Debug("track count mismatch",
			zap.Uint16("header", header.NumTracks),
			zap.Int("found", len(d.Tracks)))
	}

	return nil
}

// Offset converts absolute ticks to time. Metrical files follow their
// tempo meta events, starting at 120 quarter notes per minute.
func (d *Decoder) Offset(ticks uint64) time.Duration {
	switch d.TimeFormat {
	case MetricalTF:
		if d.TicksPerQuarterNote == 0 {
			return 0
		}
		// sum of ticks * microseconds per quarter note
		var sum uint64
		last, tempo := uint64(0), uint64(defaultTempo)
		for _, c := range d.tempos {
			if c.tick >= ticks {
				break
			}
			sum += (c.tick - last) * tempo
			last, tempo = c.tick, uint64(c.tempo)
		}
		sum += (ticks - last) * tempo
		return time.Duration(sum * uint64(time.Microsecond) / uint64(d.TicksPerQuarterNote))
	case TimeCodeTF:
		perSecond := uint64(d.FramesPerSecond) * uint64(d.TicksPerFrame)
		if perSecond == 0 {
			return 0
		}
		return time.Duration(ticks * uint64(time.Second) / perSecond)
	}
	return 0
}

// parseChunk returns io.EOF only when the input ends on a chunk boundary.
func (d *Decoder) parseChunk() error {
	id, size, err := d.IDnSize()
	if err != nil {
		return err
	}

	if id != trackChunkID {
		decoderLog.Debug("skipping unknown chunk", zap.String("id", string(id[:])), zap.Uint32("size", size))
		return d.skip(int64(size))
	}

	d.currentTrack = new(Track)
	d.Tracks = append(d.Tracks, d.currentTrack)
	d.lastStatus = 0

	end := d.offset + int64(size)
	d.chunkEnd = end
	for d.offset < end {
		done, err := d.parseEvent()
		if err != nil {
			return noEOF(err)
		}
		if done {
			return d.skip(end - d.offset)
		}
	}

	if d.offset > end {
		return fmt.Errorf("%w - event overruns track chunk ending at offset %d", ErrUnexpectedData, end)
	}
	return nil
}

// parseEvent reports true after the end of track meta event.
func (d *Decoder) parseEvent() (bool, error) {
	timeDelta, err := d.varLen()
	if err != nil {
		return false, err
	}

	t := d.currentTrack
	t.ticks += uint64(timeDelta)

	// status byte give us the msg type and channel.
	statusByte, err := d.readByte()
	if err != nil {
		return false, err
	}

	e := &Event{TimeDelta: timeDelta, AbsTicks: t.ticks, Status: statusByte}

	if !isStatus(statusByte) {
		if d.lastStatus == 0 {
			return false, fmt.Errorf("%w - data byte %#x without running status at offset %d", ErrUnexpectedData, statusByte, d.offset-1)
		}
		e.Status = d.lastStatus
		e.Data = append(e.Data, d.lastStatus, statusByte)
	} else {
		e.Data = append(e.Data, statusByte)
	}

	switch {
	case IsChannel(e.Status):
		for len(e.Data) < DataLen(e.Status)+1 {
			b, err := d.readByte()
			if err != nil {
				return false, err
			}
			if isStatus(b) {
				return false, fmt.Errorf("%w - status byte %#x inside %s at offset %d", ErrUnexpectedData, b, StatusName(e.Status), d.offset-1)
			}
			e.Data = append(e.Data, b)
		}
		d.lastStatus = e.Status
		t.add(e)

	case e.Status == SysExStart || e.Status == SysExEnd:
		d.lastStatus = 0
		data, err := d.varLenData()
		if err != nil {
			return false, err
		}
		if e.Status != SysExStart || len(data) == 0 || data[len(data)-1] != SysExEnd {
			decoderLog.Debug("skipping sysex packet", zap.Uint8("status", e.Status), zap.Int("len", len(data)))
			return false, nil
		}
		e.Data = append(e.Data, data...)
		t.add(e)

	case e.Status == metaEvent:
		d.lastStatus = 0
		metaType, err := d.readByte()
		if err != nil {
			return false, err
		}
		data, err := d.varLenData()
		if err != nil {
			return false, err
		}
		if metaType == metaTempo {
			d.addTempo(t.ticks, data)
		}
		return metaType == metaEndOfTrack, nil

	default:
		return false, fmt.Errorf("%w - status byte %#x (%s) at offset %d", ErrUnexpectedData, e.Status, StatusName(e.Status), d.offset-1)
	}

	return false, nil
}

func (d *Decoder) addTempo(tick uint64, data []byte) {
	if len(data) != 3 {
		decoderLog.Debug("skipping tempo event", zap.Int("len", len(data)))
		return
	}
	tempo := uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
	d.tempos = append(d.tempos, tempoChange{tick: tick, tempo: tempo})
}

func (d *Decoder) read(v interface{}) error {
	if err := binary.Read(d.r, binary.BigEndian, v); err != nil {
		return noEOF(err)
	}
	d.offset += int64(binary.Size(v))
	return nil
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
