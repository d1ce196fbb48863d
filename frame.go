package vp9lf

import (
	"fmt"

	"github.com/deepteams/vp9lf/internal/pool"
)

// Frame holds the reconstructed 4:2:0 planes the filter mutates in place.
// Planes must cover the frame rounded up to 16 luma pixels in each direction
// (the area addressed by whole chroma 8x8 units); NewFrame pads to 64.
type Frame struct {
	Width, Height int
	Y, U, V       []byte
	YStride       int
	UVStride      int

	pooled bool
}

func alignUp(v, a int) int { return (v + a - 1) &^ (a - 1) }

// NewFrame allocates a zeroed frame from the plane pool. Call Release when
// done.
func NewFrame(width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: frame size %dx%d", ErrInvalidParameter, width, height)
	}
	alignedW := alignUp(width, 64)
	alignedH := alignUp(height, 64)
	f := &Frame{
		Width:    width,
		Height:   height,
		YStride:  alignedW,
		UVStride: alignedW / 2,
		pooled:   true,
	}
	f.Y = pool.Get(alignedW * alignedH)
	f.U = pool.Get(f.UVStride * alignedH / 2)
	f.V = pool.Get(f.UVStride * alignedH / 2)
	clear(f.Y)
	clear(f.U)
	clear(f.V)
	return f, nil
}

// Release returns pooled planes. The frame must not be used afterwards.
func (f *Frame) Release() {
	if f == nil || !f.pooled {
		return
	}
	pool.Put(f.Y)
	pool.Put(f.U)
	pool.Put(f.V)
	f.Y, f.U, f.V = nil, nil, nil
	f.pooled = false
}

// checkGeometry verifies that the planes cover the area the filter touches
// for a mode-info grid.
func (f *Frame) checkGeometry(mi *ModeInfo) error {
	if mi.MiCols != (f.Width+MiSize-1)/MiSize || mi.MiRows != (f.Height+MiSize-1)/MiSize {
		return fmt.Errorf("%w: mode info %dx%d units does not match frame %dx%d",
			ErrInvalidParameter, mi.MiCols, mi.MiRows, f.Width, f.Height)
	}
	lumaW := alignUp(mi.MiCols, 2) * MiSize
	lumaH := alignUp(mi.MiRows, 2) * MiSize
	if f.YStride < lumaW || len(f.Y) < f.YStride*(lumaH-1)+lumaW {
		return fmt.Errorf("%w: luma plane smaller than %dx%d", ErrInvalidParameter, lumaW, lumaH)
	}
	chromaW, chromaH := lumaW/2, lumaH/2
	if f.UVStride < chromaW ||
		len(f.U) < f.UVStride*(chromaH-1)+chromaW ||
		len(f.V) < f.UVStride*(chromaH-1)+chromaW {
		return fmt.Errorf("%w: chroma planes smaller than %dx%d", ErrInvalidParameter, chromaW, chromaH)
	}
	return nil
}
