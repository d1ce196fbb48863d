package bitio

// Writer is the inverse of Reader: it packs fields most significant bit
// first. Bits are accumulated in a 64-bit register and flushed a byte at a
// time.
type Writer struct {
	bits uint64 // accumulator, right-aligned
	used int    // bits in accumulator
	buf  []byte
}

// NewWriter returns a Writer with room for expectedSize bytes.
func NewWriter(expectedSize int) *Writer {
	return &Writer{buf: make([]byte, 0, max(expectedSize, 16))}
}

// WriteBits writes the low n bits of v, n in [0, 32].
func (w *Writer) WriteBits(v uint32, n int) {
	if n <= 0 {
		return
	}
	w.bits = w.bits<<n | uint64(v)&(1<<n-1)
	w.used += n
	for w.used >= 8 {
		w.used -= 8
		w.buf = append(w.buf, byte(w.bits>>w.used))
	}
}

// WriteBit writes a single bit.
func (w *Writer) WriteBit(b bool) {
	if b {
		w.WriteBits(1, 1)
	} else {
		w.WriteBits(0, 1)
	}
}

// WriteSigned writes v as an su(n) field.
func (w *Writer) WriteSigned(v, n int) {
	neg := v < 0
	if neg {
		v = -v
	}
	w.WriteBits(uint32(v), n)
	w.WriteBit(neg)
}

// WriteProb writes an optional probability; 255 is written as absent.
func (w *Writer) WriteProb(p uint8) {
	if p == 255 {
		w.WriteBit(false)
		return
	}
	w.WriteBit(true)
	w.WriteBits(uint32(p), 8)
}

// Finish pads the last byte with zero bits and returns the output.
func (w *Writer) Finish() []byte {
	if w.used > 0 {
		w.buf = append(w.buf, byte(w.bits<<(8-w.used)))
		w.used = 0
	}
	return w.buf
}

// NumBits returns the number of bits written.
func (w *Writer) NumBits() int { return len(w.buf)*8 + w.used }
