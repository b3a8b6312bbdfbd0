package midi

import "go.uber.org/zap"

// Parser reassembles MIDI messages from a live byte stream, one byte at a
// time. The zero value is ready to use. A Parser must only be fed by one
// stream at a time; use one Parser per cable.
//
// Parse never fails. Bytes that make no sense in the current context are
// dropped: a data byte with no status to attach to is ignored, and a new
// status byte abandons any partially received message without emitting it.
// System real-time bytes are passed through as soon as they arrive and leave
// the state untouched, even in the middle of a message or a sysex block.
type Parser struct {
	running byte // running status, channel messages only
	status  byte // status of the message being received
	expect  int
	buf     [maxPacketBytes]byte
	n       int
	sysex   bool
}

func NewParser() *Parser {
	return new(Parser)
}

// Reset clears all state, as if no byte had been received.
func (p *Parser) Reset() {
	*p = Parser{}
}

// Parse feeds one byte. It reports true when b completes a message or a
// sysex chunk, in which case the returned packet carries cable. Only the
// low four bits of cable are kept, the width of the cable number field
// of a USB-MIDI event packet.
func (p *Parser) Parse(cable uint8, b byte) (Packet, bool) {
	if !isStatus(b) {
		return p.parseData(cable, b)
	}

	class := classify(b)

	switch {
	case class.kind == realTimeKind:
		return pack(cable, CINSingleByte, b, 0, 0), true
	case b >= 0xF8:
		parserLog.Debug("undefined real-time byte ignored", zap.Uint8("byte", b))
		return 0, false
	case class.kind == sysexEndKind && p.sysex:
		return p.endSysEx(cable, b), true
	}

	p.abandon(b)

	switch class.kind {
	case sysexStartKind:
		p.running = 0
		p.sysex = true
		p.buf[0] = b
		p.n = 1

	case channelKind:
		p.running = b
		p.begin(b, class.dataLen)

	case commonKind:
		p.running = 0
		if class.dataLen == 0 {
			return pack(cable, CINSingle, b, 0, 0), true
		}
		p.begin(b, class.dataLen)

	default:
		p.running = 0
		parserLog.Debug("unexpected status byte ignored", zap.Uint8("byte", b), zap.String("name", class.name))
	}

	return 0, false
}

func (p *Parser) begin(status byte, dataLen int) {
	p.status = status
	p.expect = dataLen
	p.buf[0] = status
	p.n = 1
}

func (p *Parser) parseData(cable uint8, b byte) (Packet, bool) {
	if p.sysex {
		p.buf[p.n] = b
		p.n++
		if p.n < maxPacketBytes {
			return 0, false
		}
		return p.flush(cable, CINSysEx), true
	}

	if p.n == 0 {
		if p.running == 0 {
			parserLog.Debug("orphan data byte ignored", zap.Uint8("byte", b))
			return 0, false
		}
		p.begin(p.running, DataLen(p.running))
	}

	p.buf[p.n] = b
	p.n++
	if p.n <= p.expect {
		return 0, false
	}

	return p.flush(cable, p.cin()), true
}

func (p *Parser) cin() byte {
	if IsChannel(p.status) {
		return p.status >> 4
	}
	if p.expect == 1 {
		return CINCommon2
	}
	return CINCommon3
}

func (p *Parser) endSysEx(cable uint8, b byte) Packet {
	p.buf[p.n] = b
	p.n++
	p.sysex = false
	// 1, 2 or 3 bytes left map onto CIN 0x5, 0x6, 0x7
	return p.flush(cable, CINSingle+byte(p.n-1))
}

// flush packs the buffered bytes and empties the buffer.
func (p *Parser) flush(cable uint8, cin byte) Packet {
	var b [maxPacketBytes]byte
	copy(b[:], p.buf[:p.n])
	p.n = 0
	return pack(cable, cin, b[0], b[1], b[2])
}

// abandon drops a partial message or an open sysex block.
func (p *Parser) abandon(next byte) {
	switch {
	case p.sysex:
		parserLog.Debug("sysex aborted", zap.Uint8("next", next), zap.Int("dropped", p.n))
	case p.n > 0:
		parserLog.Debug("partial message abandoned",
			zap.String("name", StatusName(p.status)),
			zap.Uint8("status", p.status),
			zap.Uint8("next", next))
	}
	p.sysex = false
	p.status = 0
	p.expect = 0
	p.n = 0
}
