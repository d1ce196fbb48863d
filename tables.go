package vp9lf

import (
	"fmt"
	"unsafe"

	"github.com/deepteams/vp9lf/internal/dsp"
)

// numLevels is the number of filter levels, 0..MaxLoopFilter.
const numLevels = MaxLoopFilter + 1

// numHEVBuckets is the number of high edge variance thresholds.
const numHEVBuckets = 4

// Tables holds the limit rows derived from a sharpness setting. Every row is
// SIMDWidth identical bytes, 16-byte aligned, so a vector kernel can load it
// without re-broadcasting. Tables are owned by one decoder context; once
// built they are only read, and may be shared by all workers of a frame.
type Tables struct {
	slab []byte // single backing allocation, over-allocated for alignment

	edgeLimit     []byte // mblim: outer block and transform edges
	blockLimit    []byte // lim: interior differences p3..p0, q0..q3
	flatnessLimit []byte // blim: inner 4x4 edges
	hevThreshold  []byte

	sharpness int
	built     bool
}

// NewTables builds tables for sharpness in [0, MaxSharpness].
func NewTables(sharpness int) (*Tables, error) {
	t := &Tables{}
	t.alloc()
	if err := t.Update(sharpness); err != nil {
		return nil, err
	}
	return t, nil
}

// alloc carves the four row sets out of one aligned slab.
func (t *Tables) alloc() {
	limitSize := numLevels * SIMDWidth
	total := 3*limitSize + numHEVBuckets*SIMDWidth
	t.slab = make([]byte, total+SIMDWidth-1)

	// Skip to the first SIMDWidth-aligned byte.
	pad := 0
	if rem := uintptr(unsafe.Pointer(&t.slab[0])) % SIMDWidth; rem != 0 {
		pad = SIMDWidth - int(rem)
	}
	buf := t.slab[pad : pad+total]

	off := 0
	t.edgeLimit = buf[off : off+limitSize : off+limitSize]
	off += limitSize
	t.blockLimit = buf[off : off+limitSize : off+limitSize]
	off += limitSize
	t.flatnessLimit = buf[off : off+limitSize : off+limitSize]
	off += limitSize
	t.hevThreshold = buf[off : off+numHEVBuckets*SIMDWidth]

	for b := 0; b < numHEVBuckets; b++ {
		fillRow(t.hevThreshold, b, byte(b))
	}
}

func fillRow(rows []byte, idx int, v byte) {
	row := rows[idx*SIMDWidth : (idx+1)*SIMDWidth]
	for i := range row {
		row[i] = v
	}
}

// interiorLimit returns the interior limit for a level under a sharpness.
// Matches C update_sharpness: higher sharpness shifts the level down and
// caps it at 9 - sharpness; the limit never drops below 1.
func interiorLimit(level, sharpness int) int {
	shift := 0
	if sharpness > 0 {
		shift++
	}
	if sharpness > 4 {
		shift++
	}
	l := level >> shift
	if sharpness > 0 && l > 9-sharpness {
		l = 9 - sharpness
	}
	if l < 1 {
		l = 1
	}
	return l
}

// Update rebuilds the limit rows for a new sharpness. It is a no-op when the
// sharpness is unchanged, and deterministic otherwise.
func (t *Tables) Update(sharpness int) error {
	if sharpness < 0 || sharpness > MaxSharpness {
		return fmt.Errorf("%w: sharpness %d outside [0,%d]", ErrInvalidParameter, sharpness, MaxSharpness)
	}
	if t.built && t.sharpness == sharpness {
		return nil
	}
	for lvl := 0; lvl < numLevels; lvl++ {
		lim := interiorLimit(lvl, sharpness)
		fillRow(t.blockLimit, lvl, byte(lim))
		fillRow(t.flatnessLimit, lvl, byte(2*lvl+lim))
		fillRow(t.edgeLimit, lvl, byte(2*(lvl+2)+lim))
	}
	t.sharpness = sharpness
	t.built = true
	return nil
}

// Sharpness returns the sharpness the tables were built for.
func (t *Tables) Sharpness() int { return t.sharpness }

// hevBucket maps a level to its threshold row: 0-15, 16-31, 32-47, 48-63.
func hevBucket(level int) int { return level >> 4 }

// EdgeParams is a transient view of the rows used to filter one edge at a
// resolved level. It aliases the tables and must not outlive them.
type EdgeParams struct {
	EdgeLimit     []byte
	BlockLimit    []byte
	FlatnessLimit []byte
	HEVThreshold  []byte
}

// EdgeParams returns the rows for level in [0, MaxLoopFilter].
func (t *Tables) EdgeParams(level int) (EdgeParams, error) {
	if level < 0 || level > MaxLoopFilter {
		return EdgeParams{}, fmt.Errorf("%w: level %d outside [0,%d]", ErrInvalidParameter, level, MaxLoopFilter)
	}
	return t.edgeParams(level), nil
}

func (t *Tables) edgeParams(level int) EdgeParams {
	lo, hi := level*SIMDWidth, (level+1)*SIMDWidth
	b := hevBucket(level)
	return EdgeParams{
		EdgeLimit:     t.edgeLimit[lo:hi],
		BlockLimit:    t.blockLimit[lo:hi],
		FlatnessLimit: t.flatnessLimit[lo:hi],
		HEVThreshold:  t.hevThreshold[b*SIMDWidth : (b+1)*SIMDWidth],
	}
}

// outer returns kernel parameters for block and transform edges.
func (p *EdgeParams) outer() dsp.EdgeParams {
	return dsp.EdgeParams{BLimit: p.EdgeLimit, Limit: p.BlockLimit, Thresh: p.HEVThreshold}
}

// inner returns kernel parameters for the inner edges of 4x4 transforms.
func (p *EdgeParams) inner() dsp.EdgeParams {
	return dsp.EdgeParams{BLimit: p.FlatnessLimit, Limit: p.BlockLimit, Thresh: p.HEVThreshold}
}
