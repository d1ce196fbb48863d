package dsp

import "fmt"

// Kernel filters one SegmentLength-long piece of an edge. off addresses q0 of
// the first position; stride is the plane stride. Implementations must be
// bit-exact with each other and safe for concurrent use.
type Kernel interface {
	Name() string
	Filter(w Width, d Direction, s []byte, off, stride int, p *EdgeParams)
}

// Kernel variants.
var (
	Generic Kernel = genericKernel{}
	Lanes   Kernel = lanesKernel{}
)

// defaultKernel is chosen once by init from the CPU feature check. Both
// variants are portable Go, so the check selects a loop shape, not an
// instruction set.
var defaultKernel = Generic

func init() {
	if hasVectorUnit() {
		defaultKernel = Lanes
	}
}

// Default returns the kernel selected for this CPU.
func Default() Kernel {
	return defaultKernel
}

// KernelByName returns the variant with the given name. The empty string and
// "auto" select Default.
func KernelByName(name string) (Kernel, error) {
	switch name {
	case "", "auto":
		return defaultKernel, nil
	case "generic":
		return Generic, nil
	case "lanes":
		return Lanes, nil
	}
	return nil, fmt.Errorf("dsp: unknown kernel %q", name)
}
