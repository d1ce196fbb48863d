package vp9lf

import "fmt"

// Codec limits.
const (
	MaxLoopFilter   = 63 // highest filter level
	MaxSharpness    = 7  // highest sharpness
	SIMDWidth       = 16 // lanes per broadcast table row
	MaxSegments     = 8
	MaxRefFrames    = 4
	MaxModeLFDeltas = 2
	MBModeCount     = 14

	// MiSize is the edge length in luma pixels of one mode-info unit.
	MiSize = 8
	// MiPerSuperblock is the number of mode-info units along a 64x64
	// superblock side.
	MiPerSuperblock = 8
)

// RefFrame classifies the reference a block predicts from.
type RefFrame uint8

const (
	IntraFrame RefFrame = iota
	LastFrame
	GoldenFrame
	AltRefFrame
)

func (r RefFrame) String() string {
	switch r {
	case IntraFrame:
		return "intra"
	case LastFrame:
		return "last"
	case GoldenFrame:
		return "golden"
	case AltRefFrame:
		return "altref"
	}
	return fmt.Sprintf("RefFrame(%d)", uint8(r))
}

// PredictionMode is a VP9 block prediction mode.
type PredictionMode uint8

const (
	DCPred PredictionMode = iota
	VPred
	HPred
	D45Pred
	D135Pred
	D117Pred
	D153Pred
	D207Pred
	D63Pred
	TMPred
	NearestMV
	NearMV
	ZeroMV
	NewMV
)

// IsInter reports whether m is a motion-vector mode.
func (m PredictionMode) IsInter() bool { return m >= NearestMV }

// modeLFLUT maps every prediction mode to its mode-delta bucket. Intra modes
// and ZEROMV use bucket 0, the remaining inter modes bucket 1.
var modeLFLUT = [MBModeCount]uint8{
	DCPred: 0, VPred: 0, HPred: 0, D45Pred: 0, D135Pred: 0,
	D117Pred: 0, D153Pred: 0, D207Pred: 0, D63Pred: 0, TMPred: 0,
	NearestMV: 1, NearMV: 1, ZeroMV: 0, NewMV: 1,
}

// ModeToBucket returns the mode-delta bucket of m.
func ModeToBucket(m PredictionMode) (int, error) {
	if int(m) >= MBModeCount {
		return 0, fmt.Errorf("%w: prediction mode %d", ErrInvalidParameter, m)
	}
	return int(modeLFLUT[m]), nil
}

// TxSize is the luma transform size of a block.
type TxSize uint8

const (
	Tx4x4 TxSize = iota
	Tx8x8
	Tx16x16
	Tx32x32
)

// pixels returns the transform edge length.
func (t TxSize) pixels() int { return 4 << t }

// units returns the transform edge length in 8-pixel units (at least 1).
func (t TxSize) units() int {
	if t <= Tx8x8 {
		return 1
	}
	return 1 << (t - 1)
}

// BlockSize is a prediction block size at or above 8x8.
type BlockSize uint8

const (
	Block8x8 BlockSize = iota
	Block8x16
	Block16x8
	Block16x16
	Block16x32
	Block32x16
	Block32x32
	Block32x64
	Block64x32
	Block64x64
	blockSizes
)

// blockDims holds width and height in mode-info units.
var blockDims = [blockSizes][2]int{
	Block8x8:   {1, 1},
	Block8x16:  {1, 2},
	Block16x8:  {2, 1},
	Block16x16: {2, 2},
	Block16x32: {2, 4},
	Block32x16: {4, 2},
	Block32x32: {4, 4},
	Block32x64: {4, 8},
	Block64x32: {8, 4},
	Block64x64: {8, 8},
}

// Dims returns the block width and height in mode-info units.
func (b BlockSize) Dims() (w, h int) {
	d := blockDims[b]
	return d[0], d[1]
}

// maxTx returns the largest transform that fits a square of the given
// side in pixels.
func maxTx(px int) TxSize {
	switch {
	case px >= 32:
		return Tx32x32
	case px >= 16:
		return Tx16x16
	case px >= 8:
		return Tx8x8
	}
	return Tx4x4
}

// uvTxSize returns the chroma transform size for a 4:2:0 block.
func uvTxSize(b BlockSize, tx TxSize) TxSize {
	w, h := b.Dims()
	limit := maxTx(min(w, h) * MiSize / 2)
	return min(tx, limit)
}

// BlockInfo is the mode info the filter reads for one block.
type BlockInfo struct {
	Size    BlockSize
	TxSize  TxSize
	Segment uint8
	Ref     RefFrame
	Mode    PredictionMode
	Skip    bool // no residual coded
}

// isSkippedInter reports whether transform edges inside the block are left
// unfiltered.
func (b *BlockInfo) isSkippedInter() bool {
	return b.Skip && b.Ref != IntraFrame
}

// ModeInfo is the grid of BlockInfo for a frame, one entry per 8x8 luma unit.
type ModeInfo struct {
	MiRows, MiCols int
	blocks         []BlockInfo
}

// NewModeInfo returns a grid covering a width x height frame. Every unit
// starts as an intra 8x8 block with a 4x4 transform.
func NewModeInfo(width, height int) (*ModeInfo, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: frame size %dx%d", ErrInvalidParameter, width, height)
	}
	mi := &ModeInfo{
		MiRows: (height + MiSize - 1) / MiSize,
		MiCols: (width + MiSize - 1) / MiSize,
	}
	mi.blocks = make([]BlockInfo, mi.MiRows*mi.MiCols)
	return mi, nil
}

// At returns the block info covering unit (row, col).
func (mi *ModeInfo) At(row, col int) (BlockInfo, error) {
	if row < 0 || row >= mi.MiRows || col < 0 || col >= mi.MiCols {
		return BlockInfo{}, fmt.Errorf("%w: unit (%d,%d) outside %dx%d grid",
			ErrInvalidParameter, row, col, mi.MiRows, mi.MiCols)
	}
	return *mi.at(row, col), nil
}

func (mi *ModeInfo) at(row, col int) *BlockInfo {
	return &mi.blocks[row*mi.MiCols+col]
}

// SetBlock records info for the block whose top-left unit is (row, col) and
// copies it over the block's footprint, clipped to the frame. Blocks must be
// aligned to their own size and carry a transform no larger than the block.
func (mi *ModeInfo) SetBlock(row, col int, info BlockInfo) error {
	if info.Size >= blockSizes {
		return fmt.Errorf("%w: block size %d", ErrInvalidParameter, info.Size)
	}
	if info.TxSize > Tx32x32 {
		return fmt.Errorf("%w: transform size %d", ErrInvalidParameter, info.TxSize)
	}
	if int(info.Segment) >= MaxSegments {
		return fmt.Errorf("%w: segment %d", ErrInvalidParameter, info.Segment)
	}
	if info.Ref >= MaxRefFrames || int(info.Mode) >= MBModeCount {
		return fmt.Errorf("%w: ref %d mode %d", ErrInvalidParameter, info.Ref, info.Mode)
	}
	if (info.Ref == IntraFrame) == info.Mode.IsInter() {
		return fmt.Errorf("%w: mode %d does not match reference %s", ErrInvalidParameter, info.Mode, info.Ref)
	}
	w, h := info.Size.Dims()
	if info.TxSize.pixels() > min(w, h)*MiSize {
		return fmt.Errorf("%w: transform %d larger than block %d", ErrInvalidParameter, info.TxSize, info.Size)
	}
	if row < 0 || col < 0 || row >= mi.MiRows || col >= mi.MiCols {
		return fmt.Errorf("%w: block position (%d,%d) outside %dx%d units", ErrInvalidParameter, row, col, mi.MiRows, mi.MiCols)
	}
	if row%h != 0 || col%w != 0 {
		return fmt.Errorf("%w: block at (%d,%d) not aligned to its size", ErrInvalidParameter, row, col)
	}
	for r := row; r < min(row+h, mi.MiRows); r++ {
		for c := col; c < min(col+w, mi.MiCols); c++ {
			mi.blocks[r*mi.MiCols+c] = info
		}
	}
	return nil
}

// Fill tiles the whole grid with blocks of info.Size carrying info.
func (mi *ModeInfo) Fill(info BlockInfo) error {
	w, h := info.Size.Dims()
	for r := 0; r < mi.MiRows; r += h {
		for c := 0; c < mi.MiCols; c += w {
			if err := mi.SetBlock(r, c, info); err != nil {
				return err
			}
		}
	}
	return nil
}
