// Command vp9lf inspects VP9 loop filter parameters and applies the loop
// filter to raw video from the command line.
//
// Usage:
//
//	vp9lf tables [options]                 Print the limit tables for a sharpness
//	vp9lf inspect [options] <input>          Print per-frame loop filter parameters of an IVF file or rtpdump
//	vp9lf filter [options] <in.yuv> <out>  Filter raw I420 frames (use "-" for stdin/stdout)
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/deepteams/vp9lf"
	"github.com/deepteams/vp9lf/internal/container"
	"github.com/pion/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "tables":
		err = runTables(os.Args[2:], os.Stdout)
	case "inspect":
		err = runInspect(os.Args[2:], os.Stdin, os.Stdout)
	case "filter":
		err = runFilter(os.Args[2:], os.Stdin, os.Stdout)
	case "-h", "-help", "--help", "help":
		printUsage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "vp9lf: unknown command %q\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "vp9lf: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage:
  vp9lf tables [options]                 Print the limit tables for a sharpness
  vp9lf inspect [options] <input>          Print per-frame loop filter parameters (IVF, or rtpdump with -rtp)
  vp9lf filter [options] <in.yuv> <out>  Filter raw I420 frames

Use "-" as input to read from stdin, and as output to write to stdout.

Run "vp9lf <command> -h" for command-specific options.
`)
}

// newLoggerFactory returns a factory writing to stderr, at debug level when
// verbose is set.
func newLoggerFactory(verbose bool) logging.LoggerFactory {
	lf := logging.NewDefaultLoggerFactory()
	lf.Writer = os.Stderr
	if verbose {
		lf.DefaultLogLevel = logging.LogLevelDebug
	}
	return lf
}

// openInput returns an io.ReadCloser for the given path.
// If path is "-", stdin is returned (caller may still close it).
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}

// --- tables ---

func runTables(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tables", flag.ContinueOnError)
	sharpness := fs.Int("sharpness", 0, "filter sharpness 0-7")
	level := fs.Int("level", -1, "print only this level (-1=all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := vp9lf.NewTables(*sharpness)
	if err != nil {
		return fmt.Errorf("tables: %w", err)
	}
	lo, hi := 0, vp9lf.MaxLoopFilter
	if *level != -1 {
		if *level < 0 || *level > vp9lf.MaxLoopFilter {
			return fmt.Errorf("tables: %w: level %d", vp9lf.ErrInvalidParameter, *level)
		}
		lo, hi = *level, *level
	}

	w := bufio.NewWriter(stdout)
	fmt.Fprintf(w, "sharpness %d\n", t.Sharpness())
	fmt.Fprintf(w, "%5s %5s %5s %5s %4s\n", "level", "edge", "block", "flat", "hev")
	for l := lo; l <= hi; l++ {
		ep, err := t.EdgeParams(l)
		if err != nil {
			return fmt.Errorf("tables: %w", err)
		}
		fmt.Fprintf(w, "%5d %5d %5d %5d %4d\n",
			l, ep.EdgeLimit[0], ep.BlockLimit[0], ep.FlatnessLimit[0], ep.HEVThreshold[0])
	}
	return w.Flush()
}

// --- inspect ---

func runInspect(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose logging")
	levels := fs.Bool("levels", false, "print the resolved level of every segment and reference")
	rtpDump := fs.Bool("rtp", false, "input is an rtpdump recording of VP9 RTP packets")
	payloadType := fs.Uint("pt", 0, "RTP payload type to read with -rtp (0=any)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("inspect: missing input file\nUsage: vp9lf inspect [options] <input>")
	}
	if *payloadType > 127 {
		return fmt.Errorf("inspect: payload type %d outside [0,127]", *payloadType)
	}
	log := newLoggerFactory(*verbose).NewLogger("inspect")

	in, err := openInput(fs.Arg(0), stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	w := bufio.NewWriter(stdout)
	parser := vp9lf.NewHeaderParser()
	n := 0
	if *rtpDump {
		frames, dropped, err := container.ReadRTPDump(in, uint8(*payloadType))
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		if dropped > 0 {
			log.Warnf("dropped %d packets of incomplete frames", dropped)
		}
		fmt.Fprintf(w, "Codec:      VP90 (RTP)\n")
		for _, fr := range frames {
			if err := inspectFrame(w, log, parser, n, fr, *levels); err != nil {
				return err
			}
			n++
		}
	} else {
		rd, hdr, err := container.NewReader(in)
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		if hdr.FourCC != container.FourCCVP90 {
			log.Warnf("fourcc %s is not VP90", hdr.FourCC)
		}
		fmt.Fprintf(w, "Codec:      %s\n", hdr.FourCC)
		fmt.Fprintf(w, "Dimensions: %d x %d\n", hdr.Width, hdr.Height)
		for {
			fr, err := rd.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			if err := inspectFrame(w, log, parser, n, fr, *levels); err != nil {
				return err
			}
			n++
		}
	}
	fmt.Fprintf(w, "Frames:     %d\n", n)
	return w.Flush()
}

// inspectFrame prints the headers of every frame packed in fr.
func inspectFrame(w io.Writer, log logging.LeveledLogger, parser *vp9lf.HeaderParser, i int, fr container.Frame, levels bool) error {
	subs, err := container.SplitSuperframe(fr.Payload)
	if err != nil {
		return fmt.Errorf("inspect: frame %d: %w", i, err)
	}
	for j, sub := range subs {
		h, err := parser.Parse(sub)
		if err != nil {
			return fmt.Errorf("inspect: frame %d.%d: %w", i, j, err)
		}
		log.Debugf("frame %d.%d: %d byte payload, %d byte header", i, j, len(sub), h.UncompressedHeaderSize)
		txMode := "-"
		if !h.ShowExistingFrame {
			if m, err := vp9lf.ParseTxMode(h, sub); err != nil {
				log.Warnf("frame %d.%d: %v", i, j, err)
			} else {
				txMode = m.String()
			}
		}
		printFrame(w, i, j, fr.PTS, h, txMode)
		if levels && !h.ShowExistingFrame {
			if err := printLevels(w, h); err != nil {
				return fmt.Errorf("inspect: frame %d.%d: %w", i, j, err)
			}
		}
	}
	return nil
}

func printFrame(w io.Writer, i, j int, pts uint64, h *vp9lf.FrameHeader, txMode string) {
	if h.ShowExistingFrame {
		fmt.Fprintf(w, "frame %d.%d pts=%d show-existing slot=%d\n", i, j, pts, h.FrameToShow)
		return
	}
	kind := "inter"
	switch {
	case h.FrameType == vp9lf.KeyFrame:
		kind = "key"
	case h.IntraOnly:
		kind = "intra-only"
	}
	lf := h.LoopFilter
	fmt.Fprintf(w, "frame %d.%d pts=%d %s %dx%d q=%d level=%d sharpness=%d tx_mode=%s",
		i, j, pts, kind, h.Width, h.Height, h.Quant.BaseQIdx, lf.Level, lf.Sharpness, txMode)
	if lf.DeltaEnabled {
		fmt.Fprintf(w, " ref_deltas=%v mode_deltas=%v", lf.RefDeltas, lf.ModeDeltas)
	}
	if h.Segmentation.Enabled {
		fmt.Fprintf(w, " segmentation")
		if h.Segmentation.AbsDelta {
			fmt.Fprintf(w, "(abs)")
		}
	}
	fmt.Fprintln(w)
}

func printLevels(w io.Writer, h *vp9lf.FrameHeader) error {
	lv, err := vp9lf.ResolveLevels(h.LevelConfig())
	if err != nil {
		return err
	}
	segments := 1
	if h.Segmentation.Enabled {
		segments = vp9lf.MaxSegments
	}
	for s := 0; s < segments; s++ {
		fmt.Fprintf(w, "  segment %d:", s)
		for r := vp9lf.IntraFrame; r <= vp9lf.AltRefFrame; r++ {
			var buckets [vp9lf.MaxModeLFDeltas]int
			for b := range buckets {
				if buckets[b], err = lv.Get(s, r, b); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, " %s=%d/%d", r, buckets[0], buckets[1])
		}
		fmt.Fprintln(w)
	}
	return nil
}

// --- filter ---

var blockSizes = map[int]vp9lf.BlockSize{
	8:  vp9lf.Block8x8,
	16: vp9lf.Block16x16,
	32: vp9lf.Block32x32,
	64: vp9lf.Block64x64,
}

var txSizes = map[int]vp9lf.TxSize{
	4:  vp9lf.Tx4x4,
	8:  vp9lf.Tx8x8,
	16: vp9lf.Tx16x16,
	32: vp9lf.Tx32x32,
}

func runFilter(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	width := fs.Int("w", 0, "frame width in pixels")
	height := fs.Int("h", 0, "frame height in pixels")
	level := fs.Int("level", 32, "filter level 0-63")
	sharpness := fs.Int("sharpness", 0, "filter sharpness 0-7")
	block := fs.Int("block", 8, "block size: 8/16/32/64")
	tx := fs.Int("tx", 4, "transform size: 4/8/16/32")
	inter := fs.Bool("inter", false, "mark blocks as skipped inter blocks (only block edges filtered)")
	workers := fs.Int("workers", 0, "worker goroutines (0=GOMAXPROCS)")
	kernel := fs.String("kernel", "auto", "edge kernel: auto/generic/lanes")
	yOnly := fs.Bool("yonly", false, "filter the luma plane only")
	partial := fs.Bool("partial", false, "filter only the partial-frame band")
	maxFrames := fs.Int("frames", 0, "maximum frames to process (0=all)")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("filter: missing input or output\nUsage: vp9lf filter [options] <in.yuv> <out.yuv>")
	}
	if *width <= 0 || *height <= 0 {
		return fmt.Errorf("filter: -w and -h are required")
	}
	bs, ok := blockSizes[*block]
	if !ok {
		return fmt.Errorf("filter: unsupported block size %d", *block)
	}
	ts, ok := txSizes[*tx]
	if !ok {
		return fmt.Errorf("filter: unsupported transform size %d", *tx)
	}

	lf := newLoggerFactory(*verbose)
	log := lf.NewLogger("filter")
	f, err := vp9lf.New(
		vp9lf.WithWorkers(*workers),
		vp9lf.WithKernel(*kernel),
		vp9lf.WithYOnly(*yOnly),
		vp9lf.WithLoggerFactory(lf),
	)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	log.Debugf("kernel %s", f.Kernel())

	mi, err := vp9lf.NewModeInfo(*width, *height)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	info := vp9lf.BlockInfo{Size: bs, TxSize: ts}
	if *inter {
		info.Ref, info.Mode, info.Skip = vp9lf.LastFrame, vp9lf.ZeroMV, true
	}
	if err := mi.Fill(info); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	cfg := vp9lf.LevelConfig{BaseLevel: *level, Sharpness: *sharpness}

	in, err := openInput(fs.Arg(0), stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	var out io.Writer = stdout
	if p := fs.Arg(1); p != "-" {
		of, err := os.Create(p)
		if err != nil {
			return err
		}
		defer of.Close()
		out = of
	}
	bw := bufio.NewWriter(out)

	frame, err := vp9lf.NewFrame(*width, *height)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	defer frame.Release()

	raw := make([]byte, i420Size(*width, *height))
	n := 0
	for *maxFrames == 0 || n < *maxFrames {
		if _, err := io.ReadFull(in, raw); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("filter: reading frame %d: %w", n, err)
		}
		importI420(frame, raw)

		plan, err := f.Prepare(cfg)
		if err != nil {
			return fmt.Errorf("filter: %w", err)
		}
		if *partial {
			err = plan.ApplyPartial(frame, mi)
		} else {
			err = plan.Apply(frame, mi)
		}
		if err != nil {
			return fmt.Errorf("filter: frame %d: %w", n, err)
		}

		exportI420(frame, raw)
		if _, err := bw.Write(raw); err != nil {
			return fmt.Errorf("filter: writing frame %d: %w", n, err)
		}
		n++
	}
	log.Infof("filtered %d frames of %dx%d at level %d", n, *width, *height, *level)
	return bw.Flush()
}

// i420Size returns the size of one packed I420 frame.
func i420Size(w, h int) int {
	cw, ch := (w+1)/2, (h+1)/2
	return w*h + 2*cw*ch
}

// importI420 copies a packed I420 frame into the strided planes and
// replicates the last row and column into the padding, so the edges the
// filter reads past the visible area carry image content.
func importI420(f *vp9lf.Frame, raw []byte) {
	w, h := f.Width, f.Height
	cw, ch := (w+1)/2, (h+1)/2
	copyPlane(f.Y, f.YStride, len(f.Y)/f.YStride, raw[:w*h], w, h)
	copyPlane(f.U, f.UVStride, len(f.U)/f.UVStride, raw[w*h:w*h+cw*ch], cw, ch)
	copyPlane(f.V, f.UVStride, len(f.V)/f.UVStride, raw[w*h+cw*ch:], cw, ch)
}

func copyPlane(dst []byte, stride, rows int, src []byte, w, h int) {
	for y := 0; y < rows; y++ {
		row := dst[y*stride : (y+1)*stride]
		sy := min(y, h-1)
		copy(row, src[sy*w:(sy+1)*w])
		for x := w; x < stride; x++ {
			row[x] = row[w-1]
		}
	}
}

// exportI420 packs the visible area of the planes into raw.
func exportI420(f *vp9lf.Frame, raw []byte) {
	w, h := f.Width, f.Height
	cw, ch := (w+1)/2, (h+1)/2
	off := 0
	for y := 0; y < h; y++ {
		off += copy(raw[off:off+w], f.Y[y*f.YStride:])
	}
	for _, p := range [][]byte{f.U, f.V} {
		for y := 0; y < ch; y++ {
			off += copy(raw[off:off+cw], p[y*f.UVStride:])
		}
	}
}
