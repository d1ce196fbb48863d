package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"flag"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/deepteams/vp9lf"
	"github.com/deepteams/vp9lf/internal/bitio"
	"github.com/deepteams/vp9lf/internal/container"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4/pkg/media/rtpdump"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keyFrameHeader writes a profile 0 key frame header for a 64x64 frame
// with loop filter deltas enabled and no tiles.
func keyFrameHeader(level, sharpness int) []byte {
	w := bitio.NewWriter(32)
	w.WriteBits(2, 2) // frame marker
	w.WriteBits(0, 2) // profile 0
	w.WriteBit(false) // show_existing_frame
	w.WriteBit(false) // key frame
	w.WriteBit(true)  // show_frame
	w.WriteBit(false) // error_resilient_mode
	w.WriteBits(0x498342, 24)
	w.WriteBits(uint32(vp9lf.ColorSpaceBT709), 3)
	w.WriteBit(false) // color_range
	w.WriteBits(63, 16)
	w.WriteBits(63, 16)
	w.WriteBit(false) // render_and_frame_size_different
	w.WriteBit(true)  // refresh_frame_context
	w.WriteBit(false) // frame_parallel_decoding_mode
	w.WriteBits(0, 2) // frame_context_idx
	w.WriteBits(uint32(level), 6)
	w.WriteBits(uint32(sharpness), 3)
	w.WriteBit(true)  // mode_ref_delta_enabled
	w.WriteBit(false) // mode_ref_delta_update
	w.WriteBits(90, 8)
	w.WriteBit(false)
	w.WriteBit(false)
	w.WriteBit(false)
	w.WriteBit(false) // segmentation_enabled
	w.WriteBit(false) // tile_rows_log2
	w.WriteBits(20, 16)
	return append(w.Finish(), make([]byte, 20)...)
}

func showExistingHeader(slot int) []byte {
	w := bitio.NewWriter(2)
	w.WriteBits(2, 2)
	w.WriteBits(0, 2)
	w.WriteBit(true)
	w.WriteBits(uint32(slot), 3)
	return w.Finish()
}

// writeIVF writes a 64x64 VP90 IVF file holding frames with PTS 0, 1, ...
func writeIVF(t *testing.T, frames ...[]byte) string {
	t.Helper()
	data := make([]byte, 32)
	copy(data[0:4], "DKIF")
	binary.LittleEndian.PutUint16(data[6:8], 32)
	copy(data[8:12], container.FourCCVP90)
	binary.LittleEndian.PutUint16(data[12:14], 64)
	binary.LittleEndian.PutUint16(data[14:16], 64)
	binary.LittleEndian.PutUint32(data[16:20], 30)
	binary.LittleEndian.PutUint32(data[20:24], 1)
	binary.LittleEndian.PutUint32(data[24:28], uint32(len(frames)))
	for i, f := range frames {
		var rec [12]byte
		binary.LittleEndian.PutUint32(rec[0:4], uint32(len(f)))
		binary.LittleEndian.PutUint64(rec[4:12], uint64(i))
		data = append(data, rec[:]...)
		data = append(data, f...)
	}
	path := filepath.Join(t.TempDir(), "in.ivf")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestTables(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runTables([]string{"-sharpness", "3"}, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2+vp9lf.MaxLoopFilter+1)
	assert.Equal(t, "sharpness 3", lines[0])
	assert.Contains(t, lines[1], "level")

	tab, err := vp9lf.NewTables(3)
	require.NoError(t, err)
	fields := strings.Fields(lines[2+40])
	require.Len(t, fields, 5)
	assert.Equal(t, "40", fields[0])
	ep, err := tab.EdgeParams(40)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(int(ep.EdgeLimit[0])), fields[1])
	assert.Equal(t, strconv.Itoa(int(ep.BlockLimit[0])), fields[2])
	assert.Equal(t, strconv.Itoa(int(ep.FlatnessLimit[0])), fields[3])
	assert.Equal(t, strconv.Itoa(int(ep.HEVThreshold[0])), fields[4])
}

func TestTablesSingleLevel(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runTables([]string{"-level", "10"}, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[2]), "10 "))
}

func TestTablesInvalid(t *testing.T) {
	var out bytes.Buffer
	err := runTables([]string{"-sharpness", "8"}, &out)
	assert.ErrorIs(t, err, vp9lf.ErrInvalidParameter)
	err = runTables([]string{"-level", "64"}, &out)
	assert.ErrorIs(t, err, vp9lf.ErrInvalidParameter)
	out.Reset()
	err = runTables([]string{"-level", "-5"}, &out)
	assert.ErrorIs(t, err, vp9lf.ErrInvalidParameter)
	assert.Empty(t, out.String())
	err = runTables([]string{"-h"}, &out)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestInspect(t *testing.T) {
	sf, err := container.BuildSuperframe([][]byte{keyFrameHeader(12, 0), showExistingHeader(0)})
	require.NoError(t, err)
	path := writeIVF(t, keyFrameHeader(20, 3), sf)

	var out bytes.Buffer
	require.NoError(t, runInspect([]string{"-levels", path}, nil, &out))
	s := out.String()
	assert.Contains(t, s, "Codec:      VP90")
	assert.Contains(t, s, "Frames:     2")
	assert.Contains(t, s, "frame 0.0 pts=0 key 64x64 q=90 level=20 sharpness=3 tx_mode=only-4x4")
	assert.Contains(t, s, "ref_deltas=[1 0 -1 -1]")
	assert.Contains(t, s, "frame 1.0 pts=1 key 64x64 q=90 level=12 sharpness=0")
	assert.Contains(t, s, "frame 1.1 pts=1 show-existing slot=0")
	// Base 12: intra takes +1, golden and altref take -1.
	assert.Contains(t, s, "segment 0: intra=13/13 last=12/12 golden=11/11 altref=11/11")
	assert.NotContains(t, s, "segment 1:")
}

func TestInspectStdin(t *testing.T) {
	path := writeIVF(t, keyFrameHeader(5, 1))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runInspect([]string{"-"}, bytes.NewReader(data), &out))
	assert.Contains(t, out.String(), "level=5 sharpness=1")
}

func TestInspectErrors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, runInspect(nil, nil, &out))
	assert.Error(t, runInspect([]string{filepath.Join(t.TempDir(), "missing.ivf")}, nil, &out))

	err := runInspect([]string{"-"}, bytes.NewReader([]byte("not an ivf file at all, not even close")), &out)
	assert.ErrorIs(t, err, container.ErrInvalidIVF)

	data, err := os.ReadFile(writeIVF(t, keyFrameHeader(5, 0)))
	require.NoError(t, err)
	err = runInspect([]string{"-"}, bytes.NewReader(data[:len(data)-3]), &out)
	assert.ErrorIs(t, err, container.ErrTruncated)

	bad := writeIVF(t, []byte{0x00, 0x01, 0x02})
	err = runInspect([]string{bad}, nil, &out)
	assert.ErrorIs(t, err, vp9lf.ErrInvalidHeader)
}

// writeRTPDump packetizes frames as VP9 RTP and records them in rtpdump
// format.
func writeRTPDump(t *testing.T, frames ...[]byte) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := rtpdump.NewWriter(&buf, rtpdump.Header{
		Start:  time.Unix(1700000000, 0).UTC(),
		Source: net.IPv4(10, 0, 0, 1),
		Port:   5004,
	})
	require.NoError(t, err)

	payloader := &codecs.VP9Payloader{FlexibleMode: true}
	seq := uint16(1)
	for i, f := range frames {
		payloads := payloader.Payload(24, f)
		for k, pl := range payloads {
			pkt := rtp.Packet{
				Header: rtp.Header{
					Version:        2,
					PayloadType:    98,
					SequenceNumber: seq,
					Timestamp:      uint32(3000 * (i + 1)),
					Marker:         k == len(payloads)-1,
				},
				Payload: pl,
			}
			seq++
			raw, err := pkt.Marshal()
			require.NoError(t, err)
			require.NoError(t, w.WritePacket(rtpdump.Packet{Offset: time.Duration(i) * 33 * time.Millisecond, Payload: raw}))
		}
	}
	path := filepath.Join(t.TempDir(), "in.rtpdump")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestInspectRTP(t *testing.T) {
	path := writeRTPDump(t, keyFrameHeader(30, 2), keyFrameHeader(31, 2))

	var out bytes.Buffer
	require.NoError(t, runInspect([]string{"-rtp", "-pt", "98", path}, nil, &out))
	s := out.String()
	assert.Contains(t, s, "Codec:      VP90 (RTP)")
	assert.Contains(t, s, "Frames:     2")
	assert.Contains(t, s, "frame 0.0 pts=3000 key 64x64 q=90 level=30 sharpness=2")
	assert.Contains(t, s, "frame 1.0 pts=6000 key 64x64 q=90 level=31 sharpness=2")

	out.Reset()
	require.NoError(t, runInspect([]string{"-rtp", "-pt", "100", path}, nil, &out))
	assert.Contains(t, out.String(), "Frames:     0")

	assert.Error(t, runInspect([]string{"-rtp", "-pt", "200", path}, nil, &out))
}

// --- filter ---

// blockyI420 returns frames of packed I420 with a small luma and chroma
// step every 8 pixels.
func blockyI420(w, h, frames int) []byte {
	cw, ch := (w+1)/2, (h+1)/2
	raw := make([]byte, 0, frames*i420Size(w, h))
	for n := 0; n < frames; n++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				raw = append(raw, byte(100+4*((x/8+y/8)&1)+n))
			}
		}
		for p := 0; p < 2; p++ {
			for y := 0; y < ch; y++ {
				for x := 0; x < cw; x++ {
					raw = append(raw, byte(120+3*((x/8)&1)))
				}
			}
		}
	}
	return raw
}

func runFilterFiles(t *testing.T, input []byte, args ...string) []byte {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "in.yuv")
	out := filepath.Join(dir, "out.yuv")
	require.NoError(t, os.WriteFile(in, input, 0o644))
	require.NoError(t, runFilter(append(args, in, out), nil, nil))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	return data
}

func TestFilterSmoothsEdges(t *testing.T) {
	input := blockyI420(48, 40, 2)
	out := runFilterFiles(t, input, "-w", "48", "-h", "40", "-level", "40")
	require.Len(t, out, len(input))
	assert.NotEqual(t, input, out)

	// The step at x=8 in row 0 narrows.
	assert.Greater(t, out[7], input[7])
	assert.Less(t, out[8], input[8])
}

func TestFilterLevelZero(t *testing.T) {
	input := blockyI420(32, 32, 1)
	out := runFilterFiles(t, input, "-w", "32", "-h", "32", "-level", "0")
	assert.Equal(t, input, out)
}

func TestFilterWorkersAndKernelsAgree(t *testing.T) {
	input := blockyI420(96, 72, 1)
	want := runFilterFiles(t, input, "-w", "96", "-h", "72", "-tx", "8", "-block", "16", "-workers", "1", "-kernel", "generic")
	for _, args := range [][]string{
		{"-workers", "4", "-kernel", "generic"},
		{"-workers", "3", "-kernel", "lanes"},
		{"-workers", "0"},
	} {
		got := runFilterFiles(t, input, append([]string{"-w", "96", "-h", "72", "-tx", "8", "-block", "16"}, args...)...)
		assert.Equal(t, want, got, "args %v", args)
	}
}

func TestFilterStdout(t *testing.T) {
	input := blockyI420(16, 16, 1)
	var out bytes.Buffer
	err := runFilter([]string{"-w", "16", "-h", "16", "-yonly", "-", "-"}, bytes.NewReader(input), &out)
	require.NoError(t, err)
	require.Equal(t, len(input), out.Len())
	// Chroma is untouched with -yonly.
	assert.Equal(t, input[16*16:], out.Bytes()[16*16:])
}

func TestFilterMaxFrames(t *testing.T) {
	input := blockyI420(16, 16, 3)
	var out bytes.Buffer
	require.NoError(t, runFilter([]string{"-w", "16", "-h", "16", "-frames", "2", "-", "-"}, bytes.NewReader(input), &out))
	assert.Equal(t, 2*i420Size(16, 16), out.Len())
}

func TestFilterErrors(t *testing.T) {
	var out bytes.Buffer
	tests := []struct {
		name string
		args []string
	}{
		{"no files", []string{"-w", "16", "-h", "16"}},
		{"no size", []string{"-", "-"}},
		{"block", []string{"-w", "16", "-h", "16", "-block", "12", "-", "-"}},
		{"tx", []string{"-w", "16", "-h", "16", "-tx", "64", "-", "-"}},
		{"kernel", []string{"-w", "16", "-h", "16", "-kernel", "neon", "-", "-"}},
		{"level", []string{"-w", "16", "-h", "16", "-level", "64", "-", "-"}},
		{"tx too large", []string{"-w", "16", "-h", "16", "-block", "8", "-tx", "16", "-", "-"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, runFilter(tt.args, bytes.NewReader(blockyI420(16, 16, 1)), &out))
		})
	}

	// A short trailing frame is an error.
	short := bytes.NewReader(make([]byte, i420Size(16, 16)+10))
	assert.Error(t, runFilter([]string{"-w", "16", "-h", "16", "-", "-"}, short, &out))
}

func TestCopyPlaneReplicatesEdges(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6}
	dst := make([]byte, 4*3)
	copyPlane(dst, 4, 3, src, 3, 2)
	assert.Equal(t, []byte{1, 2, 3, 3, 4, 5, 6, 6, 4, 5, 6, 6}, dst)
}
