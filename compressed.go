package vp9lf

import (
	"fmt"

	"github.com/deepteams/vp9lf/internal/bitio"
)

// TxMode is the frame-level transform size mode coded at the start of the
// compressed header.
type TxMode uint8

const (
	Only4x4 TxMode = iota
	Allow8x8
	Allow16x16
	Allow32x32
	TxModeSelect
)

func (m TxMode) String() string {
	switch m {
	case Only4x4:
		return "only-4x4"
	case Allow8x8:
		return "allow-8x8"
	case Allow16x16:
		return "allow-16x16"
	case Allow32x32:
		return "allow-32x32"
	case TxModeSelect:
		return "select"
	}
	return fmt.Sprintf("TxMode(%d)", uint8(m))
}

// MaxTxSize returns the largest transform a block may use under m.
func (m TxMode) MaxTxSize() TxSize {
	if m >= Allow32x32 {
		return Tx32x32
	}
	return TxSize(m)
}

// ParseTxMode reads tx_mode from the compressed header of a frame. data is
// the whole frame, starting with the uncompressed header h was parsed from.
// Lossless frames code no tx_mode and always use 4x4 transforms.
func ParseTxMode(h *FrameHeader, data []byte) (TxMode, error) {
	if h.ShowExistingFrame {
		return 0, fmt.Errorf("%w: show-existing frame has no compressed header", ErrInvalidParameter)
	}
	start := h.UncompressedHeaderSize
	end := start + h.CompressedHeaderSize
	if h.CompressedHeaderSize <= 0 || end > len(data) {
		return 0, fmt.Errorf("%w: compressed header [%d,%d) outside %d byte frame",
			ErrInvalidHeader, start, end, len(data))
	}
	if h.Quant.Lossless {
		return Only4x4, nil
	}
	br := bitio.NewBoolReader(data[start:end])
	if br.GetBit(0x80) != 0 {
		return 0, fmt.Errorf("%w: compressed header marker bit set", ErrInvalidHeader)
	}
	m := TxMode(br.GetValue(2))
	if m == Allow32x32 {
		m += TxMode(br.GetValue(1))
	}
	return m, nil
}
