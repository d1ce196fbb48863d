//go:build testc

// Package filter exposes a C reference of the VP9 loop filter for
// conformance tests of the Go kernels.
package filter

// #include "wrapper.h"
import "C"

import "unsafe"

// CFilter filters SegmentLength positions of an edge with the C reference.
// p addresses q0 of the first position.
func CFilter(width int, vertical bool, p *byte, stride int, blimit, limit, thresh byte) {
	v := 0
	if vertical {
		v = 1
	}
	C.c_lpf(C.int(width), C.int(v), (*C.uint8_t)(unsafe.Pointer(p)), C.int(stride),
		C.uint8_t(blimit), C.uint8_t(limit), C.uint8_t(thresh))
}

// CSignedClamp is signed_char_clamp.
func CSignedClamp(v int) int8 {
	return int8(C.c_signed_char_clamp(C.int(v)))
}
