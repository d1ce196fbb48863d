// Package dsp provides the pixel kernels of the VP9 loop filter.
// This file contains pre-computed clamp and absolute-value lookup tables used
// by the edge masks and taps. Negative-index access is emulated through fixed
// offsets into oversized arrays.
package dsp

// Table sizes accommodate the full range of intermediate values produced by
// the filter4 arithmetic: 3*(q0-p0) plus a clamped outer tap.
var (
	sclamp [893 + 892 + 1]int8  // clamps [-893, 892] to [-128, 127]
	abs0   [255 + 255 + 1]uint8 // abs(x) for x in [-255, 255]
)

// Offsets for indexing with negative values.
const (
	sclampOffset = 893
	abs0Offset   = 255
)

// SignedClamp returns v clamped to [-128, 127] (signed_char_clamp).
func SignedClamp(v int) int8 { return sclamp[sclampOffset+v] }

// Abs returns |v| for v in [-255, 255].
func Abs(v int) int { return int(abs0[abs0Offset+v]) }

func init() {
	for i := -893; i <= 892; i++ {
		v := i
		if v < -128 {
			v = -128
		} else if v > 127 {
			v = 127
		}
		sclamp[sclampOffset+i] = int8(v)
	}

	for i := -255; i <= 255; i++ {
		v := i
		if v < 0 {
			v = -v
		}
		abs0[abs0Offset+i] = uint8(v)
	}
}
