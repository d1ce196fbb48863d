package container

import "fmt"

// SplitSuperframe returns the frames packed in a VP9 superframe. Data
// without a superframe index is returned as a single frame. The returned
// slices alias data.
func SplitSuperframe(data []byte) ([][]byte, error) {
	if len(data) == 0 {
		return nil, ErrTruncated
	}
	marker := data[len(data)-1]
	if marker&superframeMarkerMask != superframeMarker {
		return [][]byte{data}, nil
	}
	frames := int(marker&0x7) + 1
	mag := int((marker>>3)&0x3) + 1
	indexSize := 2 + mag*frames
	if len(data) < indexSize || data[len(data)-indexSize] != marker {
		// A trailing byte that only looks like a marker.
		return [][]byte{data}, nil
	}

	index := data[len(data)-indexSize+1 : len(data)-1]
	payload := data[:len(data)-indexSize]
	out := make([][]byte, 0, frames)
	off := 0
	for i := 0; i < frames; i++ {
		size := 0
		for b := 0; b < mag; b++ {
			size |= int(index[i*mag+b]) << (8 * b)
		}
		if off+size > len(payload) {
			return nil, fmt.Errorf("%w: frame %d of %d bytes overruns %d", ErrInvalidSuperframe, i, size, len(payload))
		}
		if size > 0 {
			out = append(out, payload[off:off+size])
		}
		off += size
	}
	return out, nil
}

// BuildSuperframe packs frames behind a superframe index with the smallest
// size field that fits.
func BuildSuperframe(frames [][]byte) ([]byte, error) {
	if len(frames) == 0 || len(frames) > MaxSuperframeFrames {
		return nil, fmt.Errorf("%w: %d frames", ErrInvalidSuperframe, len(frames))
	}
	largest := 0
	total := 0
	for _, f := range frames {
		largest = max(largest, len(f))
		total += len(f)
	}
	mag := 1
	for largest >= 1<<(8*mag) {
		mag++
		if mag > 4 {
			return nil, ErrTooLarge
		}
	}
	marker := byte(superframeMarker | (mag-1)<<3 | (len(frames) - 1))
	out := make([]byte, 0, total+2+mag*len(frames))
	for _, f := range frames {
		out = append(out, f...)
	}
	out = append(out, marker)
	for _, f := range frames {
		for b := 0; b < mag; b++ {
			out = append(out, byte(len(f)>>(8*b)))
		}
	}
	return append(out, marker), nil
}
