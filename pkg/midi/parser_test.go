package midi

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	randomSeed      = 6031769
	testsPerCommand = 30
	maxSysExLength  = 200
)

func TestParser_ChannelMessages(t *testing.T) {
	rnd := rand.New(rand.NewSource(randomSeed))

	for cmd := NoteOff; cmd <= PitchBend+0x0F; cmd++ {
		status := byte(cmd)
		for i := 0; i < testsPerCommand; i++ {
			ref := []byte{status, byte(rnd.Intn(128)), byte(rnd.Intn(128))}
			ref = ref[:1+DataLen(status)]

			pkts := ParseBytes(2, ref)
			require.Len(t, pkts, 1, "status %#x", status)

			assert.Equal(t, ref, Encode(pkts[0]))
			assert.Equal(t, status>>4, pkts[0].CIN())
			assert.Equal(t, uint8(2), pkts[0].Cable())
		}
	}
}

func TestParser_SysEx(t *testing.T) {
	rnd := rand.New(rand.NewSource(randomSeed))

	for length := 1; length < maxSysExLength; length++ {
		ref := make([]byte, 0, length+2)
		ref = append(ref, SysExStart)
		for i := 0; i < length; i++ {
			ref = append(ref, byte(rnd.Intn(128)))
		}
		ref = append(ref, SysExEnd)

		pkts := ParseBytes(0, ref)
		require.NotEmpty(t, pkts)
		assert.Equal(t, ref, EncodeAll(pkts), "length %d", length)

		last := pkts[len(pkts)-1]
		for _, pkt := range pkts[:len(pkts)-1] {
			assert.Equal(t, byte(CINSysEx), pkt.CIN())
		}
		assert.Equal(t, byte(CINSysEx+last.Size()), last.CIN())
	}
}

func TestParser_RunningStatus(t *testing.T) {
	pkts := ParseBytes(0, []byte{0x90, 0x40, 0x7F, 0x3C, 0x20})
	require.Len(t, pkts, 2)
	assert.Equal(t, []byte{0x90, 0x40, 0x7F}, Encode(pkts[0]))
	assert.Equal(t, []byte{0x90, 0x3C, 0x20}, Encode(pkts[1]))

	pkts = ParseBytes(0, []byte{0xC3, 0x01, 0x02, 0x03})
	require.Len(t, pkts, 3)
	assert.Equal(t, []byte{0xC3, 0x03}, Encode(pkts[2]))
}

func TestParser_SysExChunking(t *testing.T) {
	pkts := ParseBytes(0, []byte{0xF0, 0x00, 0x01, 0x02, 0xF7})
	assert.Equal(t, []Packet{0x04F00001, 0x0602F700}, pkts)
	assert.Equal(t, []byte{0xF0, 0x00, 0x01, 0x02, 0xF7}, EncodeAll(pkts))

	pkts = ParseBytes(0, []byte{0xF0, 0x00, 0xF7})
	assert.Equal(t, []Packet{0x07F000F7}, pkts)

	pkts = ParseBytes(0, []byte{0xF0, 0x00, 0x01, 0xF7})
	assert.Equal(t, []Packet{0x04F00001, 0x05F70000}, pkts)
}

func TestParser_ZeroLengthSysEx(t *testing.T) {
	pkts := ParseBytes(0, []byte{0xF0, 0xF7})
	require.Len(t, pkts, 1)
	assert.Equal(t, byte(CINSysExEnd2), pkts[0].CIN())
	assert.Equal(t, []byte{0xF0, 0xF7}, Encode(pkts[0]))
}

func TestParser_Abandon(t *testing.T) {
	pkts := ParseBytes(0, []byte{0x90, 0x40, 0xA0, 0x10, 0x20})
	require.Len(t, pkts, 1)
	assert.Equal(t, []byte{0xA0, 0x10, 0x20}, Encode(pkts[0]))
}

func TestParser_SysExAborted(t *testing.T) {
	pkts := ParseBytes(0, []byte{0xF0, 0x01, 0x02, 0x03, 0x04, 0x90, 0x40, 0x7F})
	require.Len(t, pkts, 2)
	assert.Equal(t, []byte{0xF0, 0x01, 0x02}, Encode(pkts[0]))
	assert.Equal(t, []byte{0x90, 0x40, 0x7F}, Encode(pkts[1]))

	// a new sysex start also aborts the open block
	pkts = ParseBytes(0, []byte{0xF0, 0x01, 0xF0, 0x02, 0xF7})
	assert.Equal(t, []byte{0xF0, 0x02, 0xF7}, EncodeAll(pkts))
}

func TestParser_OrphanData(t *testing.T) {
	pkts := ParseBytes(0, []byte{0x40, 0x7F, 0x90, 0x40, 0x7F})
	require.Len(t, pkts, 1)
	assert.Equal(t, []byte{0x90, 0x40, 0x7F}, Encode(pkts[0]))

	// stray sysex end
	assert.Empty(t, ParseBytes(0, []byte{0xF7, 0x01}))
}

func TestParser_Reset(t *testing.T) {
	in := []byte{0x3C, 0xB1, 0x07, 0x64, 0x08, 0x10, 0xF0, 0x01, 0xF7}

	var p Parser
	for _, b := range []byte{0x90, 0x40, 0xF0, 0x01} {
		p.Parse(0, b)
	}
	p.Reset()

	var got []Packet
	for _, b := range in {
		if pkt, ok := p.Parse(0, b); ok {
			got = append(got, pkt)
		}
	}

	assert.Equal(t, ParseBytes(0, in), got)
	assert.Equal(t, Parser{}, *NewParser())
}

func TestParser_RealTime(t *testing.T) {
	pkts := ParseBytes(0, []byte{0x90, 0x40, 0xF8, 0x7F, 0x3C, 0xFE, 0x20})
	require.Len(t, pkts, 4)
	assert.Equal(t, []byte{0xF8}, Encode(pkts[0]))
	assert.Equal(t, byte(CINSingleByte), pkts[0].CIN())
	assert.Equal(t, []byte{0x90, 0x40, 0x7F}, Encode(pkts[1]))
	assert.Equal(t, []byte{0xFE}, Encode(pkts[2]))
	assert.Equal(t, []byte{0x90, 0x3C, 0x20}, Encode(pkts[3]))

	pkts = ParseBytes(0, []byte{0xF0, 0x01, 0xFA, 0x02, 0x03, 0xF7})
	require.Len(t, pkts, 3)
	assert.Equal(t, []byte{0xFA}, Encode(pkts[0]))
	assert.Equal(t, []byte{0xF0, 0x01, 0x02}, Encode(pkts[1]))
	assert.Equal(t, []byte{0x03, 0xF7}, Encode(pkts[2]))
}

func TestParser_SystemCommon(t *testing.T) {
	pkts := ParseBytes(0, []byte{0xF2, 0x01, 0x02, 0xF1, 0x05, 0xF6})
	require.Len(t, pkts, 3)
	assert.Equal(t, byte(CINCommon3), pkts[0].CIN())
	assert.Equal(t, []byte{0xF2, 0x01, 0x02}, Encode(pkts[0]))
	assert.Equal(t, byte(CINCommon2), pkts[1].CIN())
	assert.Equal(t, []byte{0xF1, 0x05}, Encode(pkts[1]))
	assert.Equal(t, byte(CINSingle), pkts[2].CIN())
	assert.Equal(t, []byte{0xF6}, Encode(pkts[2]))

	// system common clears running status
	pkts = ParseBytes(0, []byte{0x90, 0x40, 0x7F, 0xF3, 0x01, 0x40, 0x7F})
	require.Len(t, pkts, 2)
	assert.Equal(t, []byte{0xF3, 0x01}, Encode(pkts[1]))
}

func TestParser_Undefined(t *testing.T) {
	assert.Empty(t, ParseBytes(0, []byte{0xF4, 0xF5, 0xF9, 0xFD}))

	// undefined real-time bytes leave the message in progress alone
	pkts := ParseBytes(0, []byte{0x90, 0x40, 0xF9, 0x7F})
	require.Len(t, pkts, 1)
	assert.Equal(t, []byte{0x90, 0x40, 0x7F}, Encode(pkts[0]))

	// undefined system common abandons it
	assert.Empty(t, ParseBytes(0, []byte{0x90, 0x40, 0xF4, 0x7F}))
}

func TestParser_CableMasked(t *testing.T) {
	var p Parser
	pkt, ok := p.Parse(0x13, 0xF8)
	require.True(t, ok)
	assert.Equal(t, uint8(3), pkt.Cable())
}

func TestParser_DebugLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	EnableDebugLogging(zap.New(core))
	defer EnableDebugLogging(zap.NewNop())

	ParseBytes(0, []byte{0x40, 0x90, 0x40, 0xA0})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "orphan data byte ignored", entries[0].Message)
	assert.Equal(t, "parser", entries[0].LoggerName)
	assert.Equal(t, "partial message abandoned", entries[1].Message)
	assert.Equal(t, "noteOn", entries[1].ContextMap()["name"])
}

func TestStreamReader(t *testing.T) {
	in := []byte{0xF0, 0x7E, 0x01, 0x02, 0xF7, 0x90, 0x40, 0x7F, 0x40, 0x00, 0xF8}
	r := NewStreamReader(bytes.NewReader(in), 1)

	var got []Packet
	for {
		pkt, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, pkt)
	}

	assert.Equal(t, ParseBytes(1, in), got)
	assert.Equal(t, []byte{0xF0, 0x7E, 0x01, 0x02, 0xF7, 0x90, 0x40, 0x7F, 0x90, 0x40, 0x00, 0xF8}, EncodeAll(got))
}
