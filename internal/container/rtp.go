package container

import (
	"errors"
	"fmt"
	"io"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/rtpdump"
	"github.com/pion/webrtc/v4/pkg/media/samplebuilder"
)

// ErrInvalidRTP is returned for packets that do not carry a VP9 payload.
var ErrInvalidRTP = errors.New("rtp: invalid VP9 payload")

const (
	// vp9ClockRate is the RTP clock of the VP9 payload format.
	vp9ClockRate = 90000
	// maxLatePackets bounds how far the sample builder waits for a
	// missing packet before giving up on its frame.
	maxLatePackets = 256
)

// FrameAssembler rebuilds VP9 frames from RTP packets in the VP9 payload
// format. Frames span from a packet with the B bit to the packet carrying
// the marker; frames with missing packets are dropped.
type FrameAssembler struct {
	sb      *samplebuilder.SampleBuilder
	dropped int
}

// NewFrameAssembler returns an assembler waiting for a frame start.
func NewFrameAssembler() *FrameAssembler {
	return &FrameAssembler{
		sb: samplebuilder.New(maxLatePackets, &codecs.VP9Packet{}, vp9ClockRate),
	}
}

// Push adds one packet and returns the frames it completed, usually none.
// A frame is only released once the packet after it has arrived; Flush
// releases the rest.
func (a *FrameAssembler) Push(pkt *rtp.Packet) ([]Frame, error) {
	var vp9 codecs.VP9Packet
	if _, err := vp9.Unmarshal(pkt.Payload); err != nil {
		return nil, fmt.Errorf("%w: seq %d: %w", ErrInvalidRTP, pkt.SequenceNumber, err)
	}
	a.sb.Push(pkt)
	return a.pop(), nil
}

// Flush releases every frame still held, dropping incomplete ones.
func (a *FrameAssembler) Flush() []Frame {
	a.sb.Flush()
	return a.pop()
}

func (a *FrameAssembler) pop() []Frame {
	var frames []Frame
	for s := a.sb.Pop(); s != nil; s = a.sb.Pop() {
		frames = append(frames, a.frame(s))
	}
	return frames
}

func (a *FrameAssembler) frame(s *media.Sample) Frame {
	a.dropped += int(s.PrevDroppedPackets)
	return Frame{PTS: uint64(s.PacketTimestamp), Payload: s.Data}
}

// Dropped returns the number of packets discarded before the frames
// returned so far.
func (a *FrameAssembler) Dropped() int { return a.dropped }

// ReadRTPDump reads an rtpdump recording and returns the VP9 frames of the
// RTP packets with the given payload type (0 accepts any), and the number of
// packets dropped. Frame PTS is the RTP timestamp. RTCP records are skipped.
func ReadRTPDump(r io.Reader, payloadType uint8) ([]Frame, int, error) {
	rd, _, err := rtpdump.NewReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("rtpdump: %w", err)
	}
	asm := NewFrameAssembler()
	var frames []Frame
	for n := 0; ; n++ {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("rtpdump: record %d: %w", n, err)
		}
		if rec.IsRTCP {
			continue
		}
		var pkt rtp.Packet
		if err := pkt.Unmarshal(rec.Payload); err != nil {
			return nil, 0, fmt.Errorf("rtpdump: record %d: %w", n, err)
		}
		if payloadType != 0 && pkt.PayloadType != payloadType {
			continue
		}
		done, err := asm.Push(&pkt)
		if err != nil {
			return nil, 0, err
		}
		frames = append(frames, done...)
	}
	frames = append(frames, asm.Flush()...)
	return frames, asm.Dropped(), nil
}
