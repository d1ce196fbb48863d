package vp9lf

import (
	"fmt"

	"github.com/deepteams/vp9lf/internal/bitio"
)

// FrameType is the VP9 frame type.
type FrameType uint8

const (
	KeyFrame FrameType = iota
	NonKeyFrame
)

// ColorSpace values of the color_space field.
const (
	ColorSpaceUnknown  = 0
	ColorSpaceBT601    = 1
	ColorSpaceBT709    = 2
	ColorSpaceSMPTE170 = 3
	ColorSpaceSMPTE240 = 4
	ColorSpaceBT2020   = 5
	ColorSpaceReserved = 6
	ColorSpaceSRGB     = 7
)

// InterpFilter is the frame's motion interpolation filter.
type InterpFilter uint8

const (
	EightTap InterpFilter = iota
	EightTapSmooth
	EightTapSharp
	Bilinear
	Switchable
)

// literalToFilter maps the 2-bit interp_filter literal to InterpFilter.
var literalToFilter = [4]InterpFilter{EightTapSmooth, EightTap, EightTapSharp, Bilinear}

const (
	numRefSlots       = 8
	syncCode          = 0x498342
	minTileWidthB64   = 4
	maxTileWidthB64   = 64
	refsPerFrame      = 3
	frameMarker       = 2
	segmentTreeProbs  = 7
	segmentPredProbs  = 3
	maxProfile        = 3
	filterLevelBits   = 6
	sharpnessBits     = 3
	deltaBits         = 6
	deltaQBits        = 4
	baseQBits         = 8
	frameSizeBits     = 16
	headerSizeBits    = 16
	refreshFlagsBits  = 8
	refIndexBits      = 3
	frameContextBits  = 2
	resetContextBits  = 2
	colorSpaceBits    = 3
	interpLiteralBits = 2
)

// segmentation feature field widths and signedness, indexed by feature.
var (
	segFeatureBits   = [SegLvlMax]int{8, 6, 2, 0}
	segFeatureSigned = [SegLvlMax]bool{true, true, false, false}
)

// LoopFilterParams are the loop_filter_params() fields of a frame, with the
// deltas carried over from earlier frames where not updated.
type LoopFilterParams struct {
	Level        int
	Sharpness    int
	DeltaEnabled bool
	DeltaUpdate  bool
	RefDeltas    [MaxRefFrames]int
	ModeDeltas   [MaxModeLFDeltas]int
}

// QuantParams are the quantization_params() fields of a frame.
type QuantParams struct {
	BaseQIdx   int
	DeltaQYDC  int
	DeltaQUVDC int
	DeltaQUVAC int
	Lossless   bool
}

// FrameHeader is a parsed VP9 uncompressed frame header.
type FrameHeader struct {
	Profile           int
	ShowExistingFrame bool
	FrameToShow       int

	FrameType         FrameType
	ShowFrame         bool
	ErrorResilient    bool
	IntraOnly         bool
	ResetFrameContext int

	BitDepth     int
	ColorSpace   int
	FullRange    bool
	SubsamplingX bool
	SubsamplingY bool

	Width, Height             int
	RenderWidth, RenderHeight int

	RefreshFrameFlags    uint8
	RefFrameIdx          [refsPerFrame]int
	RefFrameSignBias     [MaxRefFrames]bool
	AllowHighPrecisionMV bool
	InterpFilter         InterpFilter

	RefreshFrameContext   bool
	FrameParallelDecoding bool
	FrameContextIdx       int

	LoopFilter   LoopFilterParams
	Quant        QuantParams
	Segmentation Segmentation

	TileColsLog2 int
	TileRowsLog2 int

	// CompressedHeaderSize is the size in bytes of the compressed header
	// that follows; UncompressedHeaderSize is the size of this header.
	CompressedHeaderSize   int
	UncompressedHeaderSize int
}

// IsIntra reports whether the frame uses only intra prediction.
func (h *FrameHeader) IsIntra() bool {
	return h.FrameType == KeyFrame || h.IntraOnly
}

// MiCols returns the frame width in 8x8 mode-info units.
func (h *FrameHeader) MiCols() int { return (h.Width + MiSize - 1) / MiSize }

// MiRows returns the frame height in 8x8 mode-info units.
func (h *FrameHeader) MiRows() int { return (h.Height + MiSize - 1) / MiSize }

// LevelConfig returns the loop filter inputs of the frame.
func (h *FrameHeader) LevelConfig() LevelConfig {
	return LevelConfig{
		BaseLevel:     h.LoopFilter.Level,
		Sharpness:     h.LoopFilter.Sharpness,
		DeltasEnabled: h.LoopFilter.DeltaEnabled,
		RefDeltas:     h.LoopFilter.RefDeltas,
		ModeDeltas:    h.LoopFilter.ModeDeltas,
		Segmentation:  h.Segmentation,
	}
}

// parserState is what a decoder carries from one frame header to the next.
type parserState struct {
	refDeltas    [MaxRefFrames]int
	modeDeltas   [MaxModeLFDeltas]int
	segmentation Segmentation
	refWidth     [numRefSlots]int
	refHeight    [numRefSlots]int
}

// HeaderParser parses a stream of VP9 uncompressed headers, carrying loop
// filter deltas, segmentation data and reference frame sizes across frames.
// It is not safe for concurrent use.
type HeaderParser struct {
	st parserState
}

// NewHeaderParser returns a parser in the state of a fresh decoder.
func NewHeaderParser() *HeaderParser {
	p := &HeaderParser{}
	p.st.refDeltas = DefaultRefDeltas
	p.st.modeDeltas = DefaultModeDeltas
	return p
}

// Parse reads the uncompressed header at the start of data. The parser's
// carried state is only updated when the header parses successfully.
func (p *HeaderParser) Parse(data []byte) (*FrameHeader, error) {
	st := p.st
	hp := headerReader{r: bitio.NewReader(data), st: &st}
	h, err := hp.parse()
	if err != nil {
		return nil, err
	}
	if err := hp.r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	h.UncompressedHeaderSize = hp.r.BytePos()
	if !h.ShowExistingFrame {
		for i := 0; i < numRefSlots; i++ {
			if h.RefreshFrameFlags&(1<<i) != 0 {
				st.refWidth[i], st.refHeight[i] = h.Width, h.Height
			}
		}
	}
	p.st = st
	return h, nil
}

type headerReader struct {
	r  *bitio.Reader
	st *parserState
}

func (hr *headerReader) bits(n int) int { return int(hr.r.ReadBits(n)) }

func (hr *headerReader) parse() (*FrameHeader, error) {
	r := hr.r
	h := &FrameHeader{BitDepth: 8}

	if m := hr.bits(2); m != frameMarker {
		return nil, fmt.Errorf("%w: frame marker %d", ErrInvalidHeader, m)
	}
	low := hr.bits(1)
	h.Profile = hr.bits(1)<<1 | low
	if h.Profile == maxProfile && r.ReadBit() {
		return nil, fmt.Errorf("%w: reserved bit set", ErrInvalidHeader)
	}

	h.ShowExistingFrame = r.ReadBit()
	if h.ShowExistingFrame {
		h.FrameToShow = hr.bits(refIndexBits)
		h.ShowFrame = true
		return h, nil
	}

	h.FrameType = FrameType(hr.bits(1))
	h.ShowFrame = r.ReadBit()
	h.ErrorResilient = r.ReadBit()

	if h.FrameType == KeyFrame {
		if err := hr.frameSyncCode(); err != nil {
			return nil, err
		}
		if err := hr.colorConfig(h); err != nil {
			return nil, err
		}
		hr.frameSize(h)
		hr.renderSize(h)
		h.RefreshFrameFlags = 0xff
	} else {
		if !h.ShowFrame {
			h.IntraOnly = r.ReadBit()
		}
		if !h.ErrorResilient {
			h.ResetFrameContext = hr.bits(resetContextBits)
		}
		if h.IntraOnly {
			if err := hr.frameSyncCode(); err != nil {
				return nil, err
			}
			if h.Profile > 0 {
				if err := hr.colorConfig(h); err != nil {
					return nil, err
				}
			} else {
				h.ColorSpace = ColorSpaceBT601
				h.SubsamplingX, h.SubsamplingY = true, true
			}
			h.RefreshFrameFlags = uint8(hr.bits(refreshFlagsBits))
			hr.frameSize(h)
			hr.renderSize(h)
		} else {
			h.RefreshFrameFlags = uint8(hr.bits(refreshFlagsBits))
			for i := 0; i < refsPerFrame; i++ {
				h.RefFrameIdx[i] = hr.bits(refIndexBits)
				h.RefFrameSignBias[LastFrame+RefFrame(i)] = r.ReadBit()
			}
			if err := hr.frameSizeWithRefs(h); err != nil {
				return nil, err
			}
			h.AllowHighPrecisionMV = r.ReadBit()
			if r.ReadBit() {
				h.InterpFilter = Switchable
			} else {
				h.InterpFilter = literalToFilter[hr.bits(interpLiteralBits)]
			}
		}
	}

	if !h.ErrorResilient {
		h.RefreshFrameContext = r.ReadBit()
		h.FrameParallelDecoding = r.ReadBit()
	} else {
		h.FrameParallelDecoding = true
	}
	h.FrameContextIdx = hr.bits(frameContextBits)

	if h.IsIntra() || h.ErrorResilient {
		hr.setupPastIndependence()
		h.FrameContextIdx = 0
	}

	hr.loopFilterParams(h)
	hr.quantizationParams(h)
	hr.segmentationParams(h)
	hr.tileInfo(h)
	h.CompressedHeaderSize = hr.bits(headerSizeBits)
	if r.Err() == nil && h.CompressedHeaderSize == 0 {
		return nil, fmt.Errorf("%w: empty compressed header", ErrInvalidHeader)
	}
	return h, nil
}

func (hr *headerReader) frameSyncCode() error {
	if c := hr.bits(24); c != syncCode {
		return fmt.Errorf("%w: sync code %#06x", ErrInvalidHeader, c)
	}
	return nil
}

func (hr *headerReader) colorConfig(h *FrameHeader) error {
	r := hr.r
	if h.Profile >= 2 {
		if r.ReadBit() {
			h.BitDepth = 12
		} else {
			h.BitDepth = 10
		}
	}
	h.ColorSpace = hr.bits(colorSpaceBits)
	oddProfile := h.Profile == 1 || h.Profile == 3
	if h.ColorSpace != ColorSpaceSRGB {
		h.FullRange = r.ReadBit()
		if oddProfile {
			h.SubsamplingX = r.ReadBit()
			h.SubsamplingY = r.ReadBit()
			if r.ReadBit() {
				return fmt.Errorf("%w: reserved bit set in color config", ErrInvalidHeader)
			}
		} else {
			h.SubsamplingX, h.SubsamplingY = true, true
		}
		return nil
	}
	h.FullRange = true
	if !oddProfile {
		return fmt.Errorf("%w: RGB not supported in profile %d", ErrInvalidHeader, h.Profile)
	}
	if r.ReadBit() {
		return fmt.Errorf("%w: reserved bit set in color config", ErrInvalidHeader)
	}
	return nil
}

func (hr *headerReader) frameSize(h *FrameHeader) {
	h.Width = hr.bits(frameSizeBits) + 1
	h.Height = hr.bits(frameSizeBits) + 1
}

func (hr *headerReader) renderSize(h *FrameHeader) {
	if hr.r.ReadBit() {
		h.RenderWidth = hr.bits(frameSizeBits) + 1
		h.RenderHeight = hr.bits(frameSizeBits) + 1
		return
	}
	h.RenderWidth, h.RenderHeight = h.Width, h.Height
}

func (hr *headerReader) frameSizeWithRefs(h *FrameHeader) error {
	found := false
	for i := 0; i < refsPerFrame; i++ {
		if hr.r.ReadBit() {
			slot := h.RefFrameIdx[i]
			h.Width, h.Height = hr.st.refWidth[slot], hr.st.refHeight[slot]
			if h.Width == 0 || h.Height == 0 {
				return fmt.Errorf("%w: reference slot %d has no frame", ErrInvalidHeader, slot)
			}
			found = true
			break
		}
	}
	if !found {
		hr.frameSize(h)
	}
	hr.renderSize(h)
	return nil
}

// setupPastIndependence resets what intra and error resilient frames must
// not inherit.
func (hr *headerReader) setupPastIndependence() {
	seg := &hr.st.segmentation
	seg.FeatureEnabled = [MaxSegments][SegLvlMax]bool{}
	seg.FeatureData = [MaxSegments][SegLvlMax]int{}
	seg.AbsDelta = false
	hr.st.refDeltas = DefaultRefDeltas
	hr.st.modeDeltas = DefaultModeDeltas
}

func (hr *headerReader) loopFilterParams(h *FrameHeader) {
	r := hr.r
	lf := &h.LoopFilter
	lf.Level = hr.bits(filterLevelBits)
	lf.Sharpness = hr.bits(sharpnessBits)
	lf.DeltaEnabled = r.ReadBit()
	if lf.DeltaEnabled {
		lf.DeltaUpdate = r.ReadBit()
		if lf.DeltaUpdate {
			for i := range hr.st.refDeltas {
				if r.ReadBit() {
					hr.st.refDeltas[i] = r.ReadSigned(deltaBits)
				}
			}
			for i := range hr.st.modeDeltas {
				if r.ReadBit() {
					hr.st.modeDeltas[i] = r.ReadSigned(deltaBits)
				}
			}
		}
	}
	lf.RefDeltas = hr.st.refDeltas
	lf.ModeDeltas = hr.st.modeDeltas
}

func (hr *headerReader) deltaQ() int {
	if hr.r.ReadBit() {
		return hr.r.ReadSigned(deltaQBits)
	}
	return 0
}

func (hr *headerReader) quantizationParams(h *FrameHeader) {
	q := &h.Quant
	q.BaseQIdx = hr.bits(baseQBits)
	q.DeltaQYDC = hr.deltaQ()
	q.DeltaQUVDC = hr.deltaQ()
	q.DeltaQUVAC = hr.deltaQ()
	q.Lossless = q.BaseQIdx == 0 && q.DeltaQYDC == 0 && q.DeltaQUVDC == 0 && q.DeltaQUVAC == 0
}

func (hr *headerReader) segmentationParams(h *FrameHeader) {
	r := hr.r
	seg := &hr.st.segmentation
	seg.Enabled = r.ReadBit()
	seg.UpdateMap = false
	seg.TemporalUpdate = false
	seg.UpdateData = false
	if seg.Enabled {
		seg.UpdateMap = r.ReadBit()
		if seg.UpdateMap {
			for i := 0; i < segmentTreeProbs; i++ {
				seg.TreeProbs[i] = r.ReadProb()
			}
			seg.TemporalUpdate = r.ReadBit()
			for i := 0; i < segmentPredProbs; i++ {
				if seg.TemporalUpdate {
					seg.PredProbs[i] = r.ReadProb()
				} else {
					seg.PredProbs[i] = 255
				}
			}
		}
		seg.UpdateData = r.ReadBit()
		if seg.UpdateData {
			seg.AbsDelta = r.ReadBit()
			for i := 0; i < MaxSegments; i++ {
				for j := 0; j < SegLvlMax; j++ {
					v := 0
					enabled := r.ReadBit()
					if enabled {
						v = hr.bits(segFeatureBits[j])
						if segFeatureSigned[j] && r.ReadBit() {
							v = -v
						}
					}
					seg.FeatureEnabled[i][j] = enabled
					seg.FeatureData[i][j] = v
				}
			}
		}
	}
	h.Segmentation = *seg
}

func (hr *headerReader) tileInfo(h *FrameHeader) {
	sb64Cols := (h.MiCols() + MiPerSuperblock - 1) / MiPerSuperblock
	minLog2 := 0
	for maxTileWidthB64<<minLog2 < sb64Cols {
		minLog2++
	}
	maxLog2 := 1
	for sb64Cols>>maxLog2 >= minTileWidthB64 {
		maxLog2++
	}
	maxLog2--

	h.TileColsLog2 = minLog2
	for h.TileColsLog2 < maxLog2 && hr.r.ReadBit() {
		h.TileColsLog2++
	}
	h.TileRowsLog2 = hr.bits(1)
	if h.TileRowsLog2 == 1 {
		h.TileRowsLog2 += hr.bits(1)
	}
}
