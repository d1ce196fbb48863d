// Package container reads the IVF container that carries VP9 frames,
// rebuilds VP9 frames from RTP, and splits VP9 superframes into their
// frames.
package container

// FourCCVP90 is the IVF FourCC of a VP9 stream.
const FourCCVP90 = "VP90"

// Superframe index constants. The index trails the superframe: a marker
// byte, the frame sizes, then the marker byte again.
const (
	superframeMarkerMask = 0xe0
	superframeMarker     = 0xc0
	MaxSuperframeFrames  = 8
)
