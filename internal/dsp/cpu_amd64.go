//go:build amd64 && !purego

package dsp

import "golang.org/x/sys/cpu"

// hasVectorUnit reports whether the lane kernel should be the default.
// SSE2 is part of the amd64 baseline, but the OS may still hide it in
// emulated environments.
func hasVectorUnit() bool {
	return cpu.X86.HasSSE2
}
