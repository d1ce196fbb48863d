//go:build (!amd64 && !arm64) || purego

package dsp

// hasVectorUnit is always false without a detected vector unit; the generic
// kernel is used.
func hasVectorUnit() bool {
	return false
}
