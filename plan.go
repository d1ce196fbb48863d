package vp9lf

import (
	"fmt"

	"github.com/deepteams/vp9lf/internal/dsp"
)

// Plan is one frame's resolved levels bound to the tables they were
// resolved against. A Plan is applied at most once.
type Plan struct {
	f       *Filter
	tables  *Tables
	levels  *Levels
	epoch   uint64
	applied bool // guarded by f.mu

	outer [numLevels]dsp.EdgeParams
	inner [numLevels]dsp.EdgeParams
}

func newPlan(f *Filter, t *Tables, lv *Levels, epoch uint64) *Plan {
	p := &Plan{f: f, tables: t, levels: lv, epoch: epoch}
	for l := 0; l < numLevels; l++ {
		ep := t.edgeParams(l)
		p.outer[l] = ep.outer()
		p.inner[l] = ep.inner()
	}
	return p
}

// Levels returns the resolved level table.
func (p *Plan) Levels() *Levels { return p.levels }

// Apply filters the whole frame.
func (p *Plan) Apply(frame *Frame, mi *ModeInfo) error {
	if mi == nil {
		return fmt.Errorf("%w: nil mode info", ErrInvalidParameter)
	}
	return p.ApplyRows(frame, mi, 0, mi.MiRows)
}

// ApplyPartial filters the band of mode-info rows a decoder filters when
// only part of the frame is needed: a superblock-aligned start at the
// middle of the frame and at least eight rows.
func (p *Plan) ApplyPartial(frame *Frame, mi *ModeInfo) error {
	if mi == nil {
		return fmt.Errorf("%w: nil mode info", ErrInvalidParameter)
	}
	start, end := partialRows(mi.MiRows)
	return p.ApplyRows(frame, mi, start, end)
}

// partialRows returns the partial-frame extent for a frame of miRows rows.
func partialRows(miRows int) (start, end int) {
	start = (miRows >> 1) &^ (MiPerSuperblock - 1)
	rows := max(miRows/8, 8)
	return start, min(start+rows, miRows)
}

// ApplyRows filters mode-info rows [start, end). start must be superblock
// aligned; end is clamped to the frame. Edges on row start itself are
// filtered against the rows above it.
func (p *Plan) ApplyRows(frame *Frame, mi *ModeInfo, start, end int) error {
	if frame == nil || mi == nil {
		return fmt.Errorf("%w: nil frame or mode info", ErrInvalidParameter)
	}
	if err := frame.checkGeometry(mi); err != nil {
		return err
	}
	if start < 0 || start%MiPerSuperblock != 0 || start >= mi.MiRows {
		return fmt.Errorf("%w: start row %d (frame has %d rows, start must be a multiple of %d)",
			ErrInvalidParameter, start, mi.MiRows, MiPerSuperblock)
	}
	if end <= start {
		return fmt.Errorf("%w: empty row range [%d,%d)", ErrInvalidParameter, start, end)
	}
	if end > mi.MiRows {
		p.f.log.Warnf("row range end %d clamped to %d", end, mi.MiRows)
		end = mi.MiRows
	}

	if err := p.f.begin(p); err != nil {
		return err
	}
	defer p.f.finish()

	if p.levels.Base() == 0 {
		p.f.log.Debugf("base level 0, frame left unfiltered")
		return nil
	}
	planes := p.planes(frame, mi)
	p.run(planes, mi, start, end)
	return nil
}

// plane describes one colour plane as a grid of 8x8 units.
type plane struct {
	buf    []byte
	stride int
	rows   int
	cols   int
	// shift converts a unit coordinate to mode-info units: 0 for luma, 1
	// for 4:2:0 chroma.
	shift uint
}

func (p *Plan) planes(frame *Frame, mi *ModeInfo) []plane {
	ps := []plane{{buf: frame.Y, stride: frame.YStride, rows: mi.MiRows, cols: mi.MiCols}}
	if p.f.yOnly {
		return ps
	}
	rows, cols := (mi.MiRows+1)/2, (mi.MiCols+1)/2
	ps = append(ps,
		plane{buf: frame.U, stride: frame.UVStride, rows: rows, cols: cols, shift: 1},
		plane{buf: frame.V, stride: frame.UVStride, rows: rows, cols: cols, shift: 1},
	)
	return ps
}

// unitRows maps mode-info rows [lo, hi) onto the plane's unit rows.
func (pl *plane) unitRows(lo, hi int) (int, int) {
	if pl.shift == 0 {
		return lo, hi
	}
	return lo >> 1, min((hi+1)>>1, pl.rows)
}

// unitCols returns the plane's unit columns covered by superblock column sc.
func (pl *plane) unitCols(sc int) (int, int) {
	n := MiPerSuperblock >> pl.shift
	return sc * n, min((sc+1)*n, pl.cols)
}

// unit returns the block covering unit (r, c) and the transform size that
// applies to it in this plane.
func (pl *plane) unit(mi *ModeInfo, r, c int) (*BlockInfo, TxSize) {
	b := mi.at(r<<pl.shift, c<<pl.shift)
	if pl.shift == 0 {
		return b, b.TxSize
	}
	return b, uvTxSize(b.Size, b.TxSize)
}

// txWidth returns the kernel width used on the edges of a transform.
func txWidth(tx TxSize) dsp.Width {
	switch tx {
	case Tx4x4:
		return dsp.Width4
	case Tx8x8:
		return dsp.Width8
	}
	return dsp.Width16
}

// borderUnits is the spacing, in plane units, of the 32-pixel lines on which
// 4x4-transform edges are widened to the 8-tap filter.
const borderUnits = 4

// edgeWidth returns the kernel width for the leading edge of the unit at
// pos along one axis, or 0 when the edge is not filtered. blockUnits is the
// block extent along that axis in mode-info units.
func edgeWidth(pos int, shift uint, blockUnits int, tx TxSize, skipInter bool) dsp.Width {
	if pos == 0 {
		return 0
	}
	blockEdge := (pos<<shift)%blockUnits == 0
	if !blockEdge && (skipInter || pos%tx.units() != 0) {
		return 0
	}
	w := txWidth(tx)
	if w == dsp.Width4 && pos%borderUnits == 0 {
		w = dsp.Width8
	}
	return w
}

// verticalRow filters the vertical edges of one unit row, left to right.
// Each unit's leading edge is followed by its inner 4x4 edge.
func (p *Plan) verticalRow(pl *plane, mi *ModeInfo, r int) {
	k := p.f.kernel
	base := r * MiSize * pl.stride
	for c := 0; c < pl.cols; c++ {
		b, tx := pl.unit(mi, r, c)
		lvl := p.levels.block(b)
		if lvl == 0 {
			continue
		}
		skipInter := b.isSkippedInter()
		w, _ := b.Size.Dims()
		off := base + c*MiSize
		if ew := edgeWidth(c, pl.shift, w, tx, skipInter); ew != 0 {
			k.Filter(ew, dsp.VerticalEdge, pl.buf, off, pl.stride, &p.outer[lvl])
		}
		if tx == Tx4x4 && !skipInter {
			k.Filter(dsp.Width4, dsp.VerticalEdge, pl.buf, off+MiSize/2, pl.stride, &p.inner[lvl])
		}
	}
}

// horizontalRow filters the horizontal edges of one unit row over unit
// columns [c0, c1).
func (p *Plan) horizontalRow(pl *plane, mi *ModeInfo, r, c0, c1 int) {
	k := p.f.kernel
	base := r * MiSize * pl.stride
	for c := c0; c < c1; c++ {
		b, tx := pl.unit(mi, r, c)
		lvl := p.levels.block(b)
		if lvl == 0 {
			continue
		}
		skipInter := b.isSkippedInter()
		_, h := b.Size.Dims()
		off := base + c*MiSize
		if ew := edgeWidth(r, pl.shift, h, tx, skipInter); ew != 0 {
			k.Filter(ew, dsp.HorizontalEdge, pl.buf, off, pl.stride, &p.outer[lvl])
		}
		if tx == Tx4x4 && !skipInter {
			k.Filter(dsp.Width4, dsp.HorizontalEdge, pl.buf, off+MiSize/2*pl.stride, pl.stride, &p.inner[lvl])
		}
	}
}
