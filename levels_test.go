package vp9lf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segmented(seg int, data int, abs bool) Segmentation {
	var s Segmentation
	s.Enabled = true
	s.AbsDelta = abs
	s.FeatureEnabled[seg][SegLvlAltLF] = true
	s.FeatureData[seg][SegLvlAltLF] = data
	return s
}

func levelOf(t *testing.T, lv *Levels, seg int, ref RefFrame, mode PredictionMode) int {
	t.Helper()
	v, err := lv.Level(seg, ref, mode)
	require.NoError(t, err)
	return v
}

func getLevel(t *testing.T, lv *Levels, seg int, ref RefFrame, bucket int) int {
	t.Helper()
	v, err := lv.Get(seg, ref, bucket)
	require.NoError(t, err)
	return v
}

func TestResolveLevelsExamples(t *testing.T) {
	t.Run("segment and mode delta", func(t *testing.T) {
		cfg := LevelConfig{
			BaseLevel:     20,
			DeltasEnabled: true,
			RefDeltas:     [MaxRefFrames]int{0, 0, 0, 0},
			ModeDeltas:    [MaxModeLFDeltas]int{0, 10},
			Segmentation:  segmented(2, -5, false),
		}
		lv, err := ResolveLevels(cfg)
		require.NoError(t, err)
		assert.Equal(t, 25, levelOf(t, lv, 2, LastFrame, NewMV))
		assert.Equal(t, 15, levelOf(t, lv, 2, LastFrame, ZeroMV))
		assert.Equal(t, 30, levelOf(t, lv, 0, GoldenFrame, NearMV))
	})

	t.Run("segment clamps high", func(t *testing.T) {
		lv, err := ResolveLevels(LevelConfig{BaseLevel: 60, Segmentation: segmented(1, 10, false)})
		require.NoError(t, err)
		assert.Equal(t, 63, levelOf(t, lv, 1, IntraFrame, DCPred))
		assert.Equal(t, 60, levelOf(t, lv, 0, IntraFrame, DCPred))
	})

	t.Run("absolute segment level", func(t *testing.T) {
		lv, err := ResolveLevels(LevelConfig{BaseLevel: 40, Segmentation: segmented(3, 7, true)})
		require.NoError(t, err)
		assert.Equal(t, 7, levelOf(t, lv, 3, AltRefFrame, NearestMV))
		assert.Equal(t, 40, levelOf(t, lv, 4, AltRefFrame, NearestMV))
	})

	t.Run("absolute negative clamps to zero", func(t *testing.T) {
		lv, err := ResolveLevels(LevelConfig{BaseLevel: 40, Segmentation: segmented(0, -12, true)})
		require.NoError(t, err)
		assert.Equal(t, 0, levelOf(t, lv, 0, IntraFrame, TMPred))
	})
}

func TestResolveLevelsScale(t *testing.T) {
	cfg := LevelConfig{
		BaseLevel:     40,
		DeltasEnabled: true,
		RefDeltas:     DefaultRefDeltas,
		ModeDeltas:    [MaxModeLFDeltas]int{0, 3},
	}
	lv, err := ResolveLevels(cfg)
	require.NoError(t, err)
	// Deltas double once the base level reaches 32.
	assert.Equal(t, 42, levelOf(t, lv, 0, IntraFrame, DCPred))
	assert.Equal(t, 40, levelOf(t, lv, 0, LastFrame, ZeroMV))
	assert.Equal(t, 46, levelOf(t, lv, 0, LastFrame, NewMV))
	assert.Equal(t, 38, levelOf(t, lv, 0, GoldenFrame, ZeroMV))
	assert.Equal(t, 44, levelOf(t, lv, 0, AltRefFrame, NearestMV))
}

func TestResolveLevelsIntraIgnoresModeDelta(t *testing.T) {
	cfg := LevelConfig{
		BaseLevel:     10,
		DeltasEnabled: true,
		RefDeltas:     [MaxRefFrames]int{2, 0, 0, 0},
		ModeDeltas:    [MaxModeLFDeltas]int{5, 5},
	}
	lv, err := ResolveLevels(cfg)
	require.NoError(t, err)
	for b := 0; b < MaxModeLFDeltas; b++ {
		assert.Equal(t, 12, getLevel(t, lv, 0, IntraFrame, b))
	}
}

func TestResolveLevelsDisabledDeltas(t *testing.T) {
	for base := 0; base <= MaxLoopFilter; base += 7 {
		cfg := LevelConfig{
			BaseLevel:  base,
			RefDeltas:  [MaxRefFrames]int{63, -63, 20, -20},
			ModeDeltas: [MaxModeLFDeltas]int{-30, 30},
		}
		lv, err := ResolveLevels(cfg)
		require.NoError(t, err)
		for s := 0; s < MaxSegments; s++ {
			for r := IntraFrame; r <= AltRefFrame; r++ {
				for b := 0; b < MaxModeLFDeltas; b++ {
					assert.Equal(t, base, getLevel(t, lv, s, r, b))
				}
			}
		}
	}
}

func TestResolveLevelsRange(t *testing.T) {
	for _, base := range []int{0, 1, 31, 32, 63} {
		for _, d := range []int{-63, -9, 0, 9, 63} {
			cfg := LevelConfig{
				BaseLevel:     base,
				DeltasEnabled: true,
				RefDeltas:     [MaxRefFrames]int{d, -d, d, -d},
				ModeDeltas:    [MaxModeLFDeltas]int{d, -d},
				Segmentation:  segmented(5, d, false),
			}
			lv, err := ResolveLevels(cfg)
			require.NoError(t, err)
			for s := 0; s < MaxSegments; s++ {
				for r := IntraFrame; r <= AltRefFrame; r++ {
					for b := 0; b < MaxModeLFDeltas; b++ {
						v := getLevel(t, lv, s, r, b)
						assert.True(t, v >= 0 && v <= MaxLoopFilter, "level %d out of range", v)
					}
				}
			}
		}
	}
}

func TestResolveLevelsInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  LevelConfig
	}{
		{"base high", LevelConfig{BaseLevel: 64}},
		{"base negative", LevelConfig{BaseLevel: -1}},
		{"sharpness", LevelConfig{BaseLevel: 10, Sharpness: 8}},
		{"ref delta", LevelConfig{BaseLevel: 10, RefDeltas: [MaxRefFrames]int{0, 64, 0, 0}}},
		{"mode delta", LevelConfig{BaseLevel: 10, ModeDeltas: [MaxModeLFDeltas]int{-64, 0}}},
		{"segment data", LevelConfig{BaseLevel: 10, Segmentation: segmented(0, 100, false)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveLevels(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func bucketOf(t *testing.T, m PredictionMode) int {
	t.Helper()
	b, err := ModeToBucket(m)
	require.NoError(t, err)
	return b
}

func TestModeToBucket(t *testing.T) {
	for m := DCPred; m <= TMPred; m++ {
		assert.Equal(t, 0, bucketOf(t, m), "mode %d", m)
		assert.False(t, m.IsInter())
	}
	assert.Equal(t, 1, bucketOf(t, NearestMV))
	assert.Equal(t, 1, bucketOf(t, NearMV))
	assert.Equal(t, 0, bucketOf(t, ZeroMV))
	assert.Equal(t, 1, bucketOf(t, NewMV))
	assert.True(t, ZeroMV.IsInter())

	_, err := ModeToBucket(PredictionMode(MBModeCount))
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = ModeToBucket(40)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestLevelsLookupOutOfRange(t *testing.T) {
	lv, err := ResolveLevels(LevelConfig{BaseLevel: 20})
	require.NoError(t, err)

	tests := []struct {
		name   string
		lookup func() (int, error)
	}{
		{"segment high", func() (int, error) { return lv.Level(MaxSegments, LastFrame, ZeroMV) }},
		{"segment negative", func() (int, error) { return lv.Get(-1, IntraFrame, 0) }},
		{"reference", func() (int, error) { return lv.Get(0, RefFrame(MaxRefFrames), 0) }},
		{"bucket high", func() (int, error) { return lv.Get(0, LastFrame, MaxModeLFDeltas) }},
		{"bucket negative", func() (int, error) { return lv.Get(0, LastFrame, -1) }},
		{"mode", func() (int, error) { return lv.Level(0, LastFrame, PredictionMode(40)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				v   int
				err error
			)
			require.NotPanics(t, func() { v, err = tt.lookup() })
			assert.ErrorIs(t, err, ErrInvalidParameter)
			assert.Zero(t, v)
		})
	}
	assert.Equal(t, 20, levelOf(t, lv, MaxSegments-1, AltRefFrame, NewMV))
}
