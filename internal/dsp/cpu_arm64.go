//go:build arm64 && !purego

package dsp

import "golang.org/x/sys/cpu"

func hasVectorUnit() bool {
	return cpu.ARM64.HasASIMD
}
