package dsp

// lanesKernel filters a whole edge segment at once. Taps are gathered into
// tap-major lane arrays (taps[t][lane]): every mask and tap is evaluated
// across all SegmentLength lanes before any pixel is written back, and the
// limits come straight from the broadcast table rows.
//
// It is plain Go, like genericKernel. The CPU feature check in init only
// picks which of the two Go paths runs by default; no assembly is involved.
type lanesKernel struct{}

func (lanesKernel) Name() string { return "lanes" }

// laneSegment holds the taps of one segment. Tap index 0 is p7, 7 is p0,
// 8 is q0 and 15 is q7.
type laneSegment struct {
	taps  [16][SegmentLength]int32
	out   [16][SegmentLength]int32
	mask  [SegmentLength]bool
	flat  [SegmentLength]bool
	flat2 [SegmentLength]bool
}

func (lanesKernel) Filter(w Width, d Direction, s []byte, off, stride int, p *EdgeParams) {
	step, adv := d.steps(stride)
	reach := w.Reach()

	var seg laneSegment
	for t := -reach; t < reach; t++ {
		row := &seg.taps[8+t]
		base := off + t*step
		for l := 0; l < SegmentLength; l++ {
			row[l] = int32(s[base+l*adv])
		}
	}
	seg.out = seg.taps

	seg.masks(w, p)

	lo, hi := 6, 9 // p1..q1
	switch w {
	case Width8:
		seg.smooth7()
		lo, hi = 5, 10
	case Width16:
		seg.smooth7()
		seg.smooth15()
		lo, hi = 1, 14
	}
	seg.narrow(p)

	for t := lo; t <= hi; t++ {
		row := &seg.out[t]
		base := off + (t-8)*step
		for l := 0; l < SegmentLength; l++ {
			s[base+l*adv] = byte(row[l])
		}
	}
}

func absLane(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// masks evaluates filter_mask, flat_mask4 and flat_mask5 for every lane.
func (seg *laneSegment) masks(w Width, p *EdgeParams) {
	t := &seg.taps
	for l := 0; l < SegmentLength; l++ {
		limit := int32(p.Limit[l])
		blimit := int32(p.BLimit[l])
		p3, p2, p1, p0 := t[4][l], t[5][l], t[6][l], t[7][l]
		q0, q1, q2, q3 := t[8][l], t[9][l], t[10][l], t[11][l]

		m := absLane(p3-p2) <= limit && absLane(p2-p1) <= limit &&
			absLane(p1-p0) <= limit && absLane(q1-q0) <= limit &&
			absLane(q2-q1) <= limit && absLane(q3-q2) <= limit &&
			absLane(p0-q0)*2+absLane(p1-q1)/2 <= blimit
		seg.mask[l] = m
		if !m || w == Width4 {
			continue
		}

		flat := true
		for k := 4; k <= 6; k++ {
			flat = flat && absLane(t[k][l]-p0) <= 1 && absLane(t[15-k][l]-q0) <= 1
		}
		seg.flat[l] = flat
		if !flat || w != Width16 {
			continue
		}

		flat2 := true
		for k := 0; k <= 3; k++ {
			flat2 = flat2 && absLane(t[k][l]-p0) <= 1 && absLane(t[15-k][l]-q0) <= 1
		}
		seg.flat2[l] = flat2
	}
}

// smooth7 applies the 7-tap filter to lanes that are flat but not flat2,
// using a running sum over p3..q3.
func (seg *laneSegment) smooth7() {
	t := &seg.taps
	for l := 0; l < SegmentLength; l++ {
		if !seg.flat[l] || seg.flat2[l] {
			continue
		}
		// Window for p2 (tap 5) covers taps 2..8 clamped to [4, 11].
		sum := 3*t[4][l] + t[5][l] + t[6][l] + t[7][l] + t[8][l]
		for k := 5; k <= 10; k++ {
			seg.out[k][l] = (sum + t[k][l] + 4) >> 3
			sum += t[min(k+4, 11)][l] - t[max(k-3, 4)][l]
		}
	}
}

// smooth15 applies the 15-tap filter to flat2 lanes with a running sum over
// p7..q7.
func (seg *laneSegment) smooth15() {
	t := &seg.taps
	for l := 0; l < SegmentLength; l++ {
		if !seg.flat2[l] {
			continue
		}
		// Window for p6 (tap 1) covers taps -6..8 clamped to [0, 15].
		sum := 7 * t[0][l]
		for k := 1; k <= 8; k++ {
			sum += t[k][l]
		}
		for k := 1; k <= 14; k++ {
			seg.out[k][l] = (sum + t[k][l] + 8) >> 4
			sum += t[min(k+8, 15)][l] - t[max(k-7, 0)][l]
		}
	}
}

func clampS8(v int32) int32 {
	if v < -128 {
		return -128
	}
	if v > 127 {
		return 127
	}
	return v
}

// narrow applies filter4 to masked lanes that were not smoothed.
func (seg *laneSegment) narrow(p *EdgeParams) {
	t := &seg.taps
	for l := 0; l < SegmentLength; l++ {
		if !seg.mask[l] || seg.flat[l] {
			continue
		}
		thresh := int32(p.Thresh[l])
		hev := absLane(t[6][l]-t[7][l]) > thresh || absLane(t[9][l]-t[8][l]) > thresh

		ps1, ps0 := t[6][l]-128, t[7][l]-128
		qs0, qs1 := t[8][l]-128, t[9][l]-128

		var f int32
		if hev {
			f = clampS8(ps1 - qs1)
		}
		f = clampS8(f + 3*(qs0-ps0))
		f1 := clampS8(f+4) >> 3
		f2 := clampS8(f+3) >> 3

		seg.out[8][l] = clampS8(qs0-f1) + 128
		seg.out[7][l] = clampS8(ps0+f2) + 128
		if !hev {
			f = (f1 + 1) >> 1
			seg.out[9][l] = clampS8(qs1-f) + 128
			seg.out[6][l] = clampS8(ps1+f) + 128
		}
	}
}
