package vp9lf_test

import (
	"fmt"

	"github.com/deepteams/vp9lf"
)

func ExampleNewTables() {
	for _, sharpness := range []int{0, 3} {
		t, err := vp9lf.NewTables(sharpness)
		if err != nil {
			fmt.Println(err)
			return
		}
		ep, err := t.EdgeParams(32)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("sharpness %d level 32: edge=%d block=%d flat=%d hev=%d\n", sharpness,
			ep.EdgeLimit[0], ep.BlockLimit[0], ep.FlatnessLimit[0], ep.HEVThreshold[0])
	}
	// Output:
	// sharpness 0 level 32: edge=100 block=32 flat=96 hev=2
	// sharpness 3 level 32: edge=74 block=6 flat=70 hev=2
}

func ExampleResolveLevels() {
	lv, err := vp9lf.ResolveLevels(vp9lf.LevelConfig{
		BaseLevel:     40,
		DeltasEnabled: true,
		RefDeltas:     vp9lf.DefaultRefDeltas,
		ModeDeltas:    [vp9lf.MaxModeLFDeltas]int{0, -1},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	// Deltas are doubled at base levels of 32 and above.
	for _, b := range []struct {
		name string
		ref  vp9lf.RefFrame
		mode vp9lf.PredictionMode
	}{
		{"intra", vp9lf.IntraFrame, vp9lf.DCPred},
		{"last zeromv", vp9lf.LastFrame, vp9lf.ZeroMV},
		{"golden newmv", vp9lf.GoldenFrame, vp9lf.NewMV},
	} {
		level, err := lv.Level(0, b.ref, b.mode)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("%s: %d\n", b.name, level)
	}
	// Output:
	// intra: 42
	// last zeromv: 40
	// golden newmv: 36
}

func ExamplePlan_Apply() {
	frame, err := vp9lf.NewFrame(16, 16)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer frame.Release()
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := byte(100)
			if x >= 8 {
				v = 104
			}
			frame.Y[y*frame.YStride+x] = v
		}
	}

	// Every unit defaults to an intra 8x8 block with 4x4 transforms.
	mi, err := vp9lf.NewModeInfo(16, 16)
	if err != nil {
		fmt.Println(err)
		return
	}

	f, err := vp9lf.New(vp9lf.WithWorkers(1))
	if err != nil {
		fmt.Println(err)
		return
	}
	plan, err := f.Prepare(vp9lf.LevelConfig{BaseLevel: 40})
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := plan.Apply(frame, mi); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(frame.Y[5:11], f.State())
	// Output:
	// [100 101 101 102 103 104] done
}
