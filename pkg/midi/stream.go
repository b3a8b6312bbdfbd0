package midi

import (
	"bufio"
	"io"
)

// ParseBytes runs a fresh Parser over in and returns every packet produced.
func ParseBytes(cable uint8, in []byte) []Packet {
	var p Parser
	var out []Packet
	for _, b := range in {
		if pkt, ok := p.Parse(cable, b); ok {
			out = append(out, pkt)
		}
	}
	return out
}

// EncodeAll concatenates the MIDI bytes of pkts.
func EncodeAll(pkts []Packet) []byte {
	out := make([]byte, 0, len(pkts)*maxPacketBytes)
	for _, pkt := range pkts {
		out = AppendEncoded(out, pkt)
	}
	return out
}

// StreamReader parses MIDI bytes arriving from any transport.
type StreamReader struct {
	r     io.ByteReader
	cable uint8
	p     Parser
}

func NewStreamReader(r io.Reader, cable uint8) *StreamReader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &StreamReader{r: br, cable: cable}
}

// Next reads until a packet is complete. It returns the reader's error,
// io.EOF included, once no more bytes are available.
func (s *StreamReader) Next() (Packet, error) {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if pkt, ok := s.p.Parse(s.cable, b); ok {
			return pkt, nil
		}
	}
}

func (s *StreamReader) Reset() {
	s.p.Reset()
}
