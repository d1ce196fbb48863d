package vp9lf

import "fmt"

// Segment feature indices.
const (
	SegLvlAltQ = iota
	SegLvlAltLF
	SegLvlRefFrame
	SegLvlSkip
	SegLvlMax
)

// Segmentation is the frame's segmentation state. Only the alternate loop
// filter feature affects filtering; the rest is carried for header parsing.
type Segmentation struct {
	Enabled        bool
	UpdateMap      bool
	TemporalUpdate bool
	UpdateData     bool
	AbsDelta       bool // feature data replaces the base value instead of adjusting it

	TreeProbs [7]uint8
	PredProbs [3]uint8

	FeatureEnabled [MaxSegments][SegLvlMax]bool
	FeatureData    [MaxSegments][SegLvlMax]int
}

// featureActive reports whether feature f is in effect for segment seg.
func (s *Segmentation) featureActive(seg, f int) bool {
	return s.Enabled && s.FeatureEnabled[seg][f]
}

// DefaultRefDeltas and DefaultModeDeltas are the delta values a VP9 decoder
// resets to on key frames, intra-only frames and error-resilient frames.
var (
	DefaultRefDeltas  = [MaxRefFrames]int{1, 0, -1, -1}
	DefaultModeDeltas = [MaxModeLFDeltas]int{0, 0}
)

// LevelConfig carries the frame-level inputs of level resolution.
type LevelConfig struct {
	BaseLevel     int // 0..MaxLoopFilter; 0 disables the filter for the frame
	Sharpness     int // 0..MaxSharpness
	DeltasEnabled bool
	RefDeltas     [MaxRefFrames]int    // indexed by RefFrame
	ModeDeltas    [MaxModeLFDeltas]int // indexed by mode bucket
	Segmentation  Segmentation
}

func (c *LevelConfig) validate() error {
	if c.BaseLevel < 0 || c.BaseLevel > MaxLoopFilter {
		return fmt.Errorf("%w: base level %d outside [0,%d]", ErrInvalidParameter, c.BaseLevel, MaxLoopFilter)
	}
	if c.Sharpness < 0 || c.Sharpness > MaxSharpness {
		return fmt.Errorf("%w: sharpness %d outside [0,%d]", ErrInvalidParameter, c.Sharpness, MaxSharpness)
	}
	for i, d := range c.RefDeltas {
		if d < -MaxLoopFilter || d > MaxLoopFilter {
			return fmt.Errorf("%w: ref delta[%d] = %d", ErrInvalidParameter, i, d)
		}
	}
	for i, d := range c.ModeDeltas {
		if d < -MaxLoopFilter || d > MaxLoopFilter {
			return fmt.Errorf("%w: mode delta[%d] = %d", ErrInvalidParameter, i, d)
		}
	}
	for s := 0; s < MaxSegments; s++ {
		if !c.Segmentation.featureActive(s, SegLvlAltLF) {
			continue
		}
		d := c.Segmentation.FeatureData[s][SegLvlAltLF]
		if d < -MaxLoopFilter || d > MaxLoopFilter {
			return fmt.Errorf("%w: segment %d filter data %d", ErrInvalidParameter, s, d)
		}
	}
	return nil
}

// Levels is the resolved filter level of every (segment, reference, mode
// bucket) combination for one frame. Read-only once resolved.
type Levels struct {
	lvl  [MaxSegments][MaxRefFrames][MaxModeLFDeltas]uint8
	base int
}

func clampLevel(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxLoopFilter {
		return MaxLoopFilter
	}
	return v
}

// ResolveLevels computes the level table for a frame.
// Matches C vp9_loop_filter_frame_init: deltas are scaled by 2 when the base
// level is 32 or more, intra blocks take no mode delta, and every result is
// clamped to [0, MaxLoopFilter].
func ResolveLevels(cfg LevelConfig) (*Levels, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	lv := &Levels{base: cfg.BaseLevel}
	scale := 1 << (cfg.BaseLevel >> 5)
	seg := &cfg.Segmentation

	for s := 0; s < MaxSegments; s++ {
		segLevel := cfg.BaseLevel
		if seg.featureActive(s, SegLvlAltLF) {
			data := seg.FeatureData[s][SegLvlAltLF]
			if seg.AbsDelta {
				segLevel = clampLevel(data)
			} else {
				segLevel = clampLevel(cfg.BaseLevel + data)
			}
		}

		if !cfg.DeltasEnabled {
			for r := 0; r < MaxRefFrames; r++ {
				for m := 0; m < MaxModeLFDeltas; m++ {
					lv.lvl[s][r][m] = uint8(segLevel)
				}
			}
			continue
		}

		intra := uint8(clampLevel(segLevel + cfg.RefDeltas[IntraFrame]*scale))
		for m := 0; m < MaxModeLFDeltas; m++ {
			lv.lvl[s][IntraFrame][m] = intra
		}
		for r := LastFrame; r < MaxRefFrames; r++ {
			for m := 0; m < MaxModeLFDeltas; m++ {
				inter := segLevel + cfg.RefDeltas[r]*scale + cfg.ModeDeltas[m]*scale
				lv.lvl[s][r][m] = uint8(clampLevel(inter))
			}
		}
	}
	return lv, nil
}

// Base returns the frame's base level.
func (lv *Levels) Base() int { return lv.base }

// Get returns the level for a segment, reference and mode bucket.
func (lv *Levels) Get(segment int, ref RefFrame, bucket int) (int, error) {
	if segment < 0 || segment >= MaxSegments {
		return 0, fmt.Errorf("%w: segment %d outside [0,%d)", ErrInvalidParameter, segment, MaxSegments)
	}
	if ref >= MaxRefFrames {
		return 0, fmt.Errorf("%w: reference %d", ErrInvalidParameter, ref)
	}
	if bucket < 0 || bucket >= MaxModeLFDeltas {
		return 0, fmt.Errorf("%w: mode bucket %d outside [0,%d)", ErrInvalidParameter, bucket, MaxModeLFDeltas)
	}
	return int(lv.lvl[segment][ref][bucket]), nil
}

// Level returns the level for a block with the given segment, reference and
// prediction mode.
func (lv *Levels) Level(segment int, ref RefFrame, mode PredictionMode) (int, error) {
	bucket, err := ModeToBucket(mode)
	if err != nil {
		return 0, err
	}
	return lv.Get(segment, ref, bucket)
}

// block returns the level for a block's mode info.
func (lv *Levels) block(b *BlockInfo) int {
	return int(lv.lvl[b.Segment][b.Ref][modeLFLUT[b.Mode]])
}
