package midi

import "fmt"

// Code index numbers of a USB-MIDI event packet.
const (
	CINCommon2     = 0x2
	CINCommon3     = 0x3
	CINSysEx       = 0x4
	CINSingle      = 0x5 // single byte system common, or sysex end with 1 byte
	CINSysExEnd2   = 0x6
	CINSysExEnd3   = 0x7
	CINSingleByte  = 0xF
	maxPacketBytes = 3
)

var cinSize = [16]int{
	0x2: 2, 0x3: 3, 0x4: 3, 0x5: 1, 0x6: 2, 0x7: 3,
	0x8: 3, 0x9: 3, 0xA: 3, 0xB: 3, 0xC: 2, 0xD: 2, 0xE: 3,
	0xF: 1,
}

// Packet is one complete MIDI message, or one chunk of a system exclusive
// block, packed the way a USB-MIDI event packet is:
//
//	bits 31-28 cable, 27-24 CIN, 23-16 first byte, 15-8 second, 7-0 third
type Packet uint32

func pack(cable uint8, cin byte, b0, b1, b2 byte) Packet {
	header := (cable&0x0F)<<4 | cin&0x0F
	return Packet(uint32(header)<<24 | uint32(b0)<<16 | uint32(b1)<<8 | uint32(b2))
}

func (p Packet) Cable() uint8 {
	return uint8(p >> 28)
}

func (p Packet) CIN() byte {
	return byte(p>>24) & 0x0F
}

// Size is the number of MIDI bytes carried, 1 to 3. Reserved CINs carry none.
func (p Packet) Size() int {
	return cinSize[p.CIN()]
}

// USB returns the packet in USB-MIDI wire order.
func (p Packet) USB() [4]byte {
	return [4]byte{byte(p >> 24), byte(p >> 16), byte(p >> 8), byte(p)}
}

func (p Packet) String() string {
	return fmt.Sprintf("cable=%d cin=%#x % x", p.Cable(), p.CIN(), Encode(p))
}

// Encode unpacks the MIDI bytes of p in their original order.
func Encode(p Packet) []byte {
	return AppendEncoded(make([]byte, 0, maxPacketBytes), p)
}

func AppendEncoded(dst []byte, p Packet) []byte {
	b := p.USB()
	return append(dst, b[1:1+p.Size()]...)
}
