package bitio

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderMSBFirst(t *testing.T) {
	r := NewReader([]byte{0b10100000, 0xff, 0x01})
	assert.True(t, r.ReadBit())
	assert.False(t, r.ReadBit())
	assert.Equal(t, uint32(0b10), r.ReadBits(2))
	assert.Equal(t, uint32(0), r.ReadBits(4))
	assert.Equal(t, uint32(0xff01), r.ReadBits(16))
	assert.Equal(t, 24, r.BitsRead())
	assert.NoError(t, r.Err())
}

func TestReaderFrameMarker(t *testing.T) {
	// frame_marker(2)=2, profile_low_bit, profile_high_bit, show_existing_frame
	r := NewReader([]byte{0x82})
	assert.Equal(t, uint32(2), r.ReadBits(2))
	assert.Equal(t, uint32(0), r.ReadBits(1))
	assert.Equal(t, uint32(0), r.ReadBits(1))
	assert.False(t, r.ReadBit())
}

func TestReaderOverrun(t *testing.T) {
	r := NewReader([]byte{0xab})
	assert.Equal(t, uint32(0xa), r.ReadBits(4))
	assert.Equal(t, uint32(0), r.ReadBits(8))
	assert.ErrorIs(t, r.Err(), ErrOverrun)

	r = NewReader(nil)
	assert.False(t, r.ReadBit())
	assert.ErrorIs(t, r.Err(), ErrOverrun)
}

func TestReaderTooWide(t *testing.T) {
	r := NewReader(make([]byte, 16))
	assert.Equal(t, uint32(0), r.ReadBits(33))
	assert.ErrorIs(t, r.Err(), ErrOverrun)
}

func TestReaderBytePos(t *testing.T) {
	r := NewReader(make([]byte, 4))
	r.ReadBits(3)
	assert.Equal(t, 1, r.BytePos())
	r.ReadBits(5)
	assert.Equal(t, 1, r.BytePos())
	r.ReadBits(1)
	assert.Equal(t, 2, r.BytePos())
}

func TestSignedAndProb(t *testing.T) {
	w := NewWriter(0)
	w.WriteSigned(-5, 6)
	w.WriteSigned(17, 6)
	w.WriteSigned(0, 4)
	w.WriteProb(255)
	w.WriteProb(128)
	data := w.Finish()

	r := NewReader(data)
	assert.Equal(t, -5, r.ReadSigned(6))
	assert.Equal(t, 17, r.ReadSigned(6))
	assert.Equal(t, 0, r.ReadSigned(4))
	assert.Equal(t, uint8(255), r.ReadProb())
	assert.Equal(t, uint8(128), r.ReadProb())
	assert.NoError(t, r.Err())
}

func TestWriterReaderRandomFields(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	type field struct {
		v uint32
		n int
	}
	fields := make([]field, 2000)
	w := NewWriter(64)
	for i := range fields {
		n := rng.Intn(33)
		var v uint32
		if n > 0 {
			v = uint32(rng.Uint64() & (1<<n - 1))
		}
		fields[i] = field{v, n}
		w.WriteBits(v, n)
	}
	total := w.NumBits()
	data := w.Finish()
	require.Equal(t, (total+7)/8, len(data))

	r := NewReader(data)
	for i, f := range fields {
		require.Equal(t, f.v, r.ReadBits(f.n), "field %d (%d bits)", i, f.n)
	}
	assert.Equal(t, total, r.BitsRead())
	assert.NoError(t, r.Err())
}

func BenchmarkReadBits(b *testing.B) {
	data := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(data)
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		r := NewReader(data)
		for r.BitsRead()+13 <= len(data)*8 {
			r.ReadBits(13)
		}
	}
}
