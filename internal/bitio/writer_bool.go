package bitio

// BoolWriter is the boolean arithmetic encoder matching BoolReader. Symbols
// narrow a probability-weighted interval and bytes are emitted as the
// interval shrinks below the normalisation threshold.
type BoolWriter struct {
	range_ int32 // current range minus 1
	value  int32 // current fractional value
	run    int   // count of pending 0xff bytes (carry propagation)
	nbBits int   // number of pending bits; when > 0, flush emits a byte
	buf    []byte
	pos    int
}

// NewBoolWriter creates a BoolWriter with room for expectedSize bytes.
func NewBoolWriter(expectedSize int) *BoolWriter {
	return &BoolWriter{
		range_: 255 - 1,
		nbBits: -8,
		buf:    make([]byte, 0, max(expectedSize, 16)),
	}
}

// PutBit encodes one symbol whose probability of being 0 is prob/256.
// Returns the input bit unchanged.
func (bw *BoolWriter) PutBit(bit int, prob int) int {
	split := (bw.range_ * int32(prob)) >> 8
	if bit != 0 {
		bw.value += split + 1
		bw.range_ -= split + 1
	} else {
		bw.range_ = split
	}
	if bw.range_ < 127 {
		shift := kNorm[bw.range_]
		bw.range_ = int32(kNewRange[bw.range_])
		bw.value <<= uint(shift)
		bw.nbBits += int(shift)
		if bw.nbBits > 0 {
			bw.flush()
		}
	}
	return bit
}

// PutBitUniform encodes one symbol with probability 128.
func (bw *BoolWriter) PutBitUniform(bit int) int {
	return bw.PutBit(bit, 0x80)
}

// PutBits encodes nbBits bits of value, MSB first, each with probability 128.
func (bw *BoolWriter) PutBits(value uint32, nbBits int) {
	for mask := uint32(1) << uint(nbBits-1); mask != 0; mask >>= 1 {
		bit := 0
		if value&mask != 0 {
			bit = 1
		}
		bw.PutBitUniform(bit)
	}
}

// flush emits one byte from the value register, handling carry propagation
// through any pending 0xff bytes.
func (bw *BoolWriter) flush() {
	s := 8 + bw.nbBits
	bits := bw.value >> uint(s)
	bw.value -= bits << uint(s)
	bw.nbBits -= 8
	if bits&0xff != 0xff {
		if bits&0x100 != 0 && bw.pos > 0 {
			bw.buf[bw.pos-1]++
		}
		if bw.run > 0 {
			val := byte(0xff)
			if bits&0x100 != 0 {
				val = 0x00
			}
			for ; bw.run > 0; bw.run-- {
				bw.buf = append(bw.buf, val)
				bw.pos++
			}
		}
		bw.buf = append(bw.buf, byte(bits&0xff))
		bw.pos++
	} else {
		bw.run++ // delay writing 0xff bytes, pending eventual carry
	}
}

// Finish flushes the remaining bits and returns the encoded bytes.
func (bw *BoolWriter) Finish() []byte {
	bw.PutBits(0, 9-bw.nbBits)
	bw.nbBits = 0
	bw.flush()
	return bw.buf[:bw.pos]
}

// kNorm maps range values [0..127] to the shift count needed for
// renormalisation: 8 - floor(log2(range+1)).
var kNorm = [128]uint8{
	7, 6, 6, 5, 5, 5, 5, 4, 4, 4, 4, 4, 4, 4, 4, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0,
}

// kNewRange maps range values [0..127] to the normalised range after
// shifting: ((range + 1) << kNorm[range]) - 1.
var kNewRange = [128]uint8{
	127, 127, 191, 127, 159, 191, 223, 127, 143, 159, 175, 191, 207, 223, 239,
	127, 135, 143, 151, 159, 167, 175, 183, 191, 199, 207, 215, 223, 231, 239,
	247, 127, 131, 135, 139, 143, 147, 151, 155, 159, 163, 167, 171, 175, 179,
	183, 187, 191, 195, 199, 203, 207, 211, 215, 219, 223, 227, 231, 235, 239,
	243, 247, 251, 127, 129, 131, 133, 135, 137, 139, 141, 143, 145, 147, 149,
	151, 153, 155, 157, 159, 161, 163, 165, 167, 169, 171, 173, 175, 177, 179,
	181, 183, 185, 187, 189, 191, 193, 195, 197, 199, 201, 203, 205, 207, 209,
	211, 213, 215, 217, 219, 221, 223, 225, 227, 229, 231, 233, 235, 237, 239,
	241, 243, 245, 247, 249, 251, 253, 127,
}
