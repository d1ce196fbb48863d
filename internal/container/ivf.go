package container

import (
	"errors"
	"fmt"
	"io"

	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
)

// Common errors.
var (
	ErrInvalidIVF        = errors.New("ivf: invalid file")
	ErrTruncated         = errors.New("ivf: truncated data")
	ErrTooLarge          = errors.New("ivf: frame too large")
	ErrInvalidSuperframe = errors.New("ivf: invalid superframe index")
)

// IVFHeader holds the fields of the IVF file header that matter here.
type IVFHeader struct {
	FourCC      string
	Width       int
	Height      int
	TimebaseDen uint32 // rate field
	TimebaseNum uint32 // scale field
	FrameCount  int    // as declared; may differ from the frames present
}

// Frame is one frame record of an IVF file, or one frame rebuilt from RTP.
type Frame struct {
	PTS     uint64
	Payload []byte
}

// Reader streams the frame records of an IVF file.
type Reader struct {
	ivf    *ivfreader.IVFReader
	frames int
}

// NewReader reads and validates the IVF file header from r.
func NewReader(r io.Reader) (*Reader, IVFHeader, error) {
	ivf, fh, err := ivfreader.NewWith(r)
	if err != nil {
		return nil, IVFHeader{}, fmt.Errorf("%w: %w", ErrInvalidIVF, err)
	}
	hdr := IVFHeader{
		FourCC:      fh.FourCC,
		Width:       int(fh.Width),
		Height:      int(fh.Height),
		TimebaseDen: fh.TimebaseDenominator,
		TimebaseNum: fh.TimebaseNumerator,
		FrameCount:  int(fh.NumFrames),
	}
	return &Reader{ivf: ivf}, hdr, nil
}

// Next returns the next frame record. It returns io.EOF when the stream
// ends at a record boundary.
func (r *Reader) Next() (Frame, error) {
	payload, fh, err := r.ivf.ParseNextFrame()
	if errors.Is(err, io.EOF) {
		return Frame{}, io.EOF
	}
	if err != nil {
		return Frame{}, fmt.Errorf("%w: frame %d: %w", ErrTruncated, r.frames, err)
	}
	r.frames++
	return Frame{PTS: fh.Timestamp, Payload: payload}, nil
}

// Frames returns the number of frame records read so far.
func (r *Reader) Frames() int { return r.frames }
