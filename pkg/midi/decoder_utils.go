package midi

import (
	"encoding/binary"
	"fmt"
	"io"
)

const maxVarLenBytes = 4

// add offset
func (d *Decoder) readByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err == nil {
		d.offset += 1 // read byte
	}
	return b, err
}

// varLen reads a variable length quantity, at most four bytes long.
func (d *Decoder) varLen() (uint32, error) {
	var val uint32

	for i := 0; i < maxVarLenBytes; i++ {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		val = val<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return val, nil
		}
	}

	return 0, fmt.Errorf("%w - variable length quantity longer than %d bytes at offset %d", ErrUnexpectedData, maxVarLenBytes, d.offset)
}

// varLenData reads a length prefixed block of bytes, which must fit in
// what is left of the current chunk.
func (d *Decoder) varLenData() ([]byte, error) {
	l, err := d.varLen()
	if err != nil {
		return nil, err
	}
	if left := d.chunkEnd - d.offset; int64(l) > left {
		return nil, fmt.Errorf("%w - block of %d bytes at offset %d overruns chunk, %d bytes left", ErrUnexpectedData, l, d.offset, left)
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, noEOF(err)
	}
	d.offset += int64(l)
	return buf, nil
}

func (d *Decoder) skip(n int64) error {
	if n <= 0 {
		return nil
	}
	skipped, err := io.CopyN(io.Discard, d.r, n)
	d.offset += skipped
	return noEOF(err)
}

// IDnSize reads a chunk header. It returns io.EOF when no byte is left.
func (d *Decoder) IDnSize() ([4]byte, uint32, error) {
	var ID [4]byte
	n, err := io.ReadFull(d.r, ID[:])
	d.offset += int64(n) // [4]byte ID
	if err != nil {
		return ID, 0, err
	}

	var size uint32
	if err := binary.Read(d.r, binary.BigEndian, &size); err != nil {
		return ID, 0, noEOF(err)
	}
	d.offset += 4 // uint32 blockSize

	return ID, size, nil
}
