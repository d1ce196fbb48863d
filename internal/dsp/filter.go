package dsp

// VP9 loop filter implementations matching vpx_dsp/loopfilter.c.
//
// All kernels use a full-buffer + base-offset approach so that
// "negative-context" access (e.g. s[off-4*step]) always resolves to a valid
// non-negative index within the buffer. off addresses q0, the first pixel on
// the far side of the edge.

// SegmentLength is the number of pixel positions along an edge that a single
// kernel call filters (one 8x8 block side).
const SegmentLength = 8

// Width selects the filter taps: 4 (filter4), 8 (filter8 with filter4
// fallback) or 16 (filter16 with filter8/filter4 fallback).
type Width uint8

const (
	Width4  Width = 4
	Width8  Width = 8
	Width16 Width = 16
)

// Direction is the orientation of the edge being filtered.
type Direction uint8

const (
	// VerticalEdge is a boundary between two columns; taps run along x.
	VerticalEdge Direction = iota
	// HorizontalEdge is a boundary between two rows; taps run along y.
	HorizontalEdge
)

// steps returns the tap step (across the edge) and the advance between
// positions (along the edge) for a plane with the given stride.
func (d Direction) steps(stride int) (step, adv int) {
	if d == VerticalEdge {
		return 1, stride
	}
	return stride, 1
}

// Reach returns how many pixels on each side of the edge a kernel of width w
// reads.
func (w Width) Reach() int {
	if w == Width16 {
		return 8
	}
	return 4
}

// EdgeParams points at the lane rows used for one edge segment. Each row
// holds at least SegmentLength lanes; lane i applies to position i.
type EdgeParams struct {
	BLimit []byte // edge activity limit (mblim for block edges, blim for inner 4x4 edges)
	Limit  []byte // interior difference limit
	Thresh []byte // high edge variance threshold
}

// filterMask reports whether the edge should be filtered at all.
// Matches C filter_mask.
func filterMask(limit, blimit byte, p3, p2, p1, p0, q0, q1, q2, q3 int) bool {
	l := int(limit)
	if Abs(p3-p2) > l || Abs(p2-p1) > l || Abs(p1-p0) > l ||
		Abs(q1-q0) > l || Abs(q2-q1) > l || Abs(q3-q2) > l {
		return false
	}
	return Abs(p0-q0)*2+Abs(p1-q1)/2 <= int(blimit)
}

// flatMask4 reports whether p3..q3 are within 1 of p0/q0.
// Matches C flat_mask4 with thresh 1.
func flatMask4(p3, p2, p1, p0, q0, q1, q2, q3 int) bool {
	return Abs(p1-p0) <= 1 && Abs(q1-q0) <= 1 &&
		Abs(p2-p0) <= 1 && Abs(q2-q0) <= 1 &&
		Abs(p3-p0) <= 1 && Abs(q3-q0) <= 1
}

// flatMask5 extends flatMask4 to the outer taps p7..p4 and q4..q7.
func flatMask5(p7, p6, p5, p4, p0, q0, q4, q5, q6, q7 int) bool {
	return Abs(p4-p0) <= 1 && Abs(q4-q0) <= 1 &&
		Abs(p5-p0) <= 1 && Abs(q5-q0) <= 1 &&
		Abs(p6-p0) <= 1 && Abs(q6-q0) <= 1 &&
		Abs(p7-p0) <= 1 && Abs(q7-q0) <= 1
}

// hevMask reports high edge variance around the edge.
func hevMask(thresh byte, p1, p0, q0, q1 int) bool {
	t := int(thresh)
	return Abs(p1-p0) > t || Abs(q1-q0) > t
}

// filter4 applies the narrow filter to p1, p0, q0, q1.
// Matches C filter4: the outer taps contribute only under high edge
// variance and are adjusted only without it.
func filter4(s []byte, off, step int, thresh byte) {
	op1, op0, oq0, oq1 := s[off-2*step], s[off-step], s[off], s[off+step]
	hev := hevMask(thresh, int(op1), int(op0), int(oq0), int(oq1))

	ps1 := int(int8(op1 ^ 0x80))
	ps0 := int(int8(op0 ^ 0x80))
	qs0 := int(int8(oq0 ^ 0x80))
	qs1 := int(int8(oq1 ^ 0x80))

	f := 0
	if hev {
		f = int(SignedClamp(ps1 - qs1))
	}
	f = int(SignedClamp(f + 3*(qs0-ps0)))

	// Round one side +4 and the other +3.
	f1 := int(SignedClamp(f+4)) >> 3
	f2 := int(SignedClamp(f+3)) >> 3

	s[off] = byte(SignedClamp(qs0-f1)) ^ 0x80
	s[off-step] = byte(SignedClamp(ps0+f2)) ^ 0x80

	if !hev {
		f = (f1 + 1) >> 1
		s[off+step] = byte(SignedClamp(qs1-f)) ^ 0x80
		s[off-2*step] = byte(SignedClamp(ps1+f)) ^ 0x80
	}
}

// lpf4 filters one position of a 4-wide edge.
// Matches one iteration of C vpx_lpf_horizontal_4_c.
func lpf4(s []byte, off, step int, blimit, limit, thresh byte) {
	p3 := int(s[off-4*step])
	p2 := int(s[off-3*step])
	p1 := int(s[off-2*step])
	p0 := int(s[off-step])
	q0 := int(s[off])
	q1 := int(s[off+step])
	q2 := int(s[off+2*step])
	q3 := int(s[off+3*step])
	if filterMask(limit, blimit, p3, p2, p1, p0, q0, q1, q2, q3) {
		filter4(s, off, step, thresh)
	}
}

// lpf8 filters one position of an 8-wide edge.
// Flat neighbourhoods get the 7-tap [1, 1, 1, 2, 1, 1, 1] smoothing filter.
func lpf8(s []byte, off, step int, blimit, limit, thresh byte) {
	p3 := int(s[off-4*step])
	p2 := int(s[off-3*step])
	p1 := int(s[off-2*step])
	p0 := int(s[off-step])
	q0 := int(s[off])
	q1 := int(s[off+step])
	q2 := int(s[off+2*step])
	q3 := int(s[off+3*step])
	if !filterMask(limit, blimit, p3, p2, p1, p0, q0, q1, q2, q3) {
		return
	}
	if flatMask4(p3, p2, p1, p0, q0, q1, q2, q3) {
		s[off-3*step] = byte((p3 + p3 + p3 + 2*p2 + p1 + p0 + q0 + 4) >> 3)
		s[off-2*step] = byte((p3 + p3 + p2 + 2*p1 + p0 + q0 + q1 + 4) >> 3)
		s[off-step] = byte((p3 + p2 + p1 + 2*p0 + q0 + q1 + q2 + 4) >> 3)
		s[off] = byte((p2 + p1 + p0 + 2*q0 + q1 + q2 + q3 + 4) >> 3)
		s[off+step] = byte((p1 + p0 + q0 + 2*q1 + q2 + q3 + q3 + 4) >> 3)
		s[off+2*step] = byte((p0 + q0 + q1 + 2*q2 + q3 + q3 + q3 + 4) >> 3)
		return
	}
	filter4(s, off, step, thresh)
}

// lpf16 filters one position of a 16-wide edge.
// Neighbourhoods flat out to p7/q7 get the 15-tap
// [1, 1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1] filter.
func lpf16(s []byte, off, step int, blimit, limit, thresh byte) {
	var px [16]int
	for t := 0; t < 16; t++ {
		px[t] = int(s[off+(t-8)*step])
	}
	p7, p6, p5, p4, p3, p2, p1, p0 := px[0], px[1], px[2], px[3], px[4], px[5], px[6], px[7]
	q0, q1, q2, q3, q4, q5, q6, q7 := px[8], px[9], px[10], px[11], px[12], px[13], px[14], px[15]

	if !filterMask(limit, blimit, p3, p2, p1, p0, q0, q1, q2, q3) {
		return
	}
	flat := flatMask4(p3, p2, p1, p0, q0, q1, q2, q3)
	if flat && flatMask5(p7, p6, p5, p4, p0, q0, q4, q5, q6, q7) {
		// Each output k averages the 15 taps centred on k (edge taps
		// replicated) with the centre counted twice.
		for k := 1; k <= 14; k++ {
			sum := px[k]
			for j := k - 7; j <= k+7; j++ {
				sum += px[clampTap(j, 15)]
			}
			s[off+(k-8)*step] = byte((sum + 8) >> 4)
		}
		return
	}
	if flat {
		s[off-3*step] = byte((p3 + p3 + p3 + 2*p2 + p1 + p0 + q0 + 4) >> 3)
		s[off-2*step] = byte((p3 + p3 + p2 + 2*p1 + p0 + q0 + q1 + 4) >> 3)
		s[off-step] = byte((p3 + p2 + p1 + 2*p0 + q0 + q1 + q2 + 4) >> 3)
		s[off] = byte((p2 + p1 + p0 + 2*q0 + q1 + q2 + q3 + 4) >> 3)
		s[off+step] = byte((p1 + p0 + q0 + 2*q1 + q2 + q3 + q3 + 4) >> 3)
		s[off+2*step] = byte((p0 + q0 + q1 + 2*q2 + q3 + q3 + q3 + 4) >> 3)
		return
	}
	filter4(s, off, step, thresh)
}

func clampTap(j, hi int) int {
	if j < 0 {
		return 0
	}
	if j > hi {
		return hi
	}
	return j
}

// genericKernel is the per-pixel scalar implementation.
type genericKernel struct{}

func (genericKernel) Name() string { return "generic" }

func (genericKernel) Filter(w Width, d Direction, s []byte, off, stride int, p *EdgeParams) {
	step, adv := d.steps(stride)
	_ = p.BLimit[SegmentLength-1] // BCE hint
	_ = p.Limit[SegmentLength-1]
	_ = p.Thresh[SegmentLength-1]
	switch w {
	case Width4:
		for i := 0; i < SegmentLength; i++ {
			lpf4(s, off+i*adv, step, p.BLimit[i], p.Limit[i], p.Thresh[i])
		}
	case Width8:
		for i := 0; i < SegmentLength; i++ {
			lpf8(s, off+i*adv, step, p.BLimit[i], p.Limit[i], p.Thresh[i])
		}
	default:
		for i := 0; i < SegmentLength; i++ {
			lpf16(s, off+i*adv, step, p.BLimit[i], p.Limit[i], p.Thresh[i])
		}
	}
}
