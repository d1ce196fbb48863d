package bitio

import (
	"encoding/binary"
	"math/bits"
)

// boolBITS is the number of cached look-ahead bits kept in the value register.
const boolBITS = 56

// BoolReader is the boolean arithmetic decoder of VP9 compressed headers.
//
// It keeps a probability-weighted interval [0, range] and narrows it on
// every decoded symbol. A 64-bit value register caches up to 56 look-ahead
// bits so that byte loads are amortised over many symbols.
type BoolReader struct {
	value  uint64 // current value register (BITS+8 bits active)
	range_ uint32 // current range minus 1, kept in [127, 254]
	bits   int    // number of valid bits remaining in value
	buf    []byte
	pos    int
	eof    bool // set once a load found the input exhausted
}

// NewBoolReader creates a BoolReader over data and loads the initial bits.
func NewBoolReader(data []byte) *BoolReader {
	br := &BoolReader{
		range_: 255 - 1,
		bits:   -8, // forces an immediate load
		buf:    data,
	}
	br.loadNewBytes()
	return br
}

// loadNewBytes reads 7 bytes into the value register, or falls back to
// loadFinalBytes near the end of the input.
func (br *BoolReader) loadNewBytes() {
	if br.pos+8 <= len(br.buf) {
		// Read 8 bytes big-endian and keep the top 56 bits.
		in := binary.LittleEndian.Uint64(br.buf[br.pos:])
		in = bits.ReverseBytes64(in)
		in >>= 64 - boolBITS
		br.value = in | (br.value << boolBITS)
		br.pos += boolBITS >> 3
		br.bits += boolBITS
	} else {
		br.loadFinalBytes()
	}
}

// loadFinalBytes reads one byte at a time. Past the end it feeds zero bits,
// the padding an encoder leaves after its last symbol.
func (br *BoolReader) loadFinalBytes() {
	if br.pos < len(br.buf) {
		br.bits += 8
		br.value = uint64(br.buf[br.pos]) | (br.value << 8)
		br.pos++
	} else if !br.eof {
		br.value <<= 8
		br.bits += 8
		br.eof = true
	} else {
		br.bits = 0
	}
}

// GetBit decodes one symbol whose probability of being 0 is prob/256.
func (br *BoolReader) GetBit(prob uint8) int {
	range_ := br.range_
	if br.bits < 0 {
		br.loadNewBytes()
	}

	pos := br.bits
	split := (range_ * uint32(prob)) >> 8
	value := uint32(br.value >> uint(pos))

	var bit int
	if value > split {
		bit = 1
		range_ -= split
		br.value -= uint64(split+1) << uint(pos)
	} else {
		range_ = split + 1
	}

	// Shift range up so that its MSB is in bit 7.
	shift := 7 ^ (bits.Len32(range_) - 1)
	range_ <<= uint(shift)
	br.bits -= shift

	br.range_ = range_ - 1
	return bit
}

// GetValue reads numBits bits MSB-first, each with probability 128.
func (br *BoolReader) GetValue(numBits int) uint32 {
	var v uint32
	for i := numBits - 1; i >= 0; i-- {
		v |= uint32(br.GetBit(0x80)) << uint(i)
	}
	return v
}

// EOF reports whether the decoder has read past the end of its input.
func (br *BoolReader) EOF() bool {
	return br.eof
}
