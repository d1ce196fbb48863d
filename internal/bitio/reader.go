// Package bitio provides the bit-level readers and writers of VP9 frame
// headers: a most-significant-bit-first field reader for the uncompressed
// header and the boolean arithmetic decoder of the compressed header.
package bitio

import (
	"encoding/binary"
	"errors"
)

// ErrOverrun is returned once a read has gone past the end of the buffer.
var ErrOverrun = errors.New("bitio: read past end of buffer")

// maxReadBits is the widest field a single ReadBits call returns.
const maxReadBits = 32

// Reader reads fixed-width fields most significant bit first, the layout of
// VP9 uncompressed headers.
//
// The reader keeps a 64-bit window (val) holding the next bits
// left-aligned and refills it 4 bytes at a time while at least 4 bytes
// remain. Reads past the end return zero bits and latch ErrOverrun.
type Reader struct {
	val   uint64 // next bits, left-aligned
	avail int    // valid bits in val
	buf   []byte
	pos   int // next byte of buf to load
	read  int // bits consumed
	err   error
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	r := &Reader{buf: data}
	r.fill()
	return r
}

// fill loads bytes until at least 32 bits are buffered or the input ends.
func (r *Reader) fill() {
	if r.avail <= 32 && r.pos+4 <= len(r.buf) {
		r.val |= uint64(binary.BigEndian.Uint32(r.buf[r.pos:])) << (32 - r.avail)
		r.avail += 32
		r.pos += 4
	}
	for r.avail <= 56 && r.pos < len(r.buf) {
		r.val |= uint64(r.buf[r.pos]) << (56 - r.avail)
		r.avail += 8
		r.pos++
	}
}

// ReadBits reads an n-bit unsigned field, n in [0, 32].
func (r *Reader) ReadBits(n int) uint32 {
	if n <= 0 {
		return 0
	}
	if n > maxReadBits {
		r.err = ErrOverrun
		return 0
	}
	if r.avail < n {
		r.fill()
		if r.avail < n {
			r.avail = 0
			r.val = 0
			r.err = ErrOverrun
			return 0
		}
	}
	v := uint32(r.val >> (64 - n))
	r.val <<= n
	r.avail -= n
	r.read += n
	return v
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() bool {
	return r.ReadBits(1) == 1
}

// ReadSigned reads an su(n) field: an n-bit magnitude followed by a sign
// bit.
func (r *Reader) ReadSigned(n int) int {
	v := int(r.ReadBits(n))
	if r.ReadBit() {
		return -v
	}
	return v
}

// ReadProb reads an optional 8-bit probability: a presence flag followed by
// the value. Absent probabilities read as 255.
func (r *Reader) ReadProb() uint8 {
	if r.ReadBit() {
		return uint8(r.ReadBits(8))
	}
	return 255
}

// BitsRead returns the number of bits consumed so far.
func (r *Reader) BitsRead() int { return r.read }

// BytePos returns the offset of the first byte not yet fully consumed after
// aligning to a byte boundary.
func (r *Reader) BytePos() int { return (r.read + 7) >> 3 }

// Err returns ErrOverrun if any read ran past the end of the buffer.
func (r *Reader) Err() error { return r.err }
