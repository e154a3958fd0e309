// Command edgefx runs the edge-detection pipeline over a still image.
//
// Usage:
//
//	edgefx -in photo.png -out edges.png [-config preset.toml]
//	       [-mode color|depth|normal|custom] [-refine] [-cel]
//	       [-low 0.1] [-high 0.3] [-frames N] [-backend software|wgpu]
//	       [-dn capture.png] [-v]
//
// "-" reads from stdin or writes PNG to stdout.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gogpu/edgefx"
	"github.com/gogpu/edgefx/backend"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	// Register backends.
	_ "github.com/gogpu/edgefx/backend/software"
	_ "github.com/gogpu/edgefx/backend/wgpu"
)

// frameRate is the animation clock step between frames.
const frameRate = 60

// transferDevice is a backend that can move images to and from its
// buffers. Both built-in backends implement it.
type transferDevice interface {
	backend.Device
	Upload(img image.Image, format edgefx.Format) (*edgefx.FrameBuffer, error)
	Download(fb *edgefx.FrameBuffer) (*image.NRGBA, error)
}

// options are the parsed command line.
type options struct {
	in, out, preset, depthNormals string
	settings                      settings
	verbose                       bool
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "edgefx: %v\n", err)
		}
		os.Exit(1)
	}
}

// parseArgs parses args. Flags override preset keys.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("edgefx", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		in          = fs.String("in", pipeName, "source image")
		out         = fs.String("out", pipeName, "destination image")
		preset      = fs.String("config", "", "TOML preset file")
		mode        = fs.String("mode", "", "edge detector: color, depth, normal or custom")
		refine      = fs.Bool("refine", false, "apply Canny refinement")
		cel         = fs.Bool("cel", false, "composite a cel-shaded overlay (with -refine)")
		low         = fs.Float64("low", float64(edgefx.DefaultLowThreshold), "hysteresis low threshold")
		high        = fs.Float64("high", float64(edgefx.DefaultHighThreshold), "hysteresis high threshold")
		frames      = fs.Int("frames", 1, "number of frames to process")
		backendName = fs.String("backend", "", "backend name; empty selects the best available")
		dn          = fs.String("dn", "", "depth-normal capture image (RGB normal, A depth)")
		verbose     = fs.Bool("v", false, "verbose logging")
		off         = fs.Bool("off", false, "disable the filter and copy the source through")
	)
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{in: *in, out: *out, preset: *preset, depthNormals: *dn, verbose: *verbose}
	s := defaultSettings()
	if opts.preset != "" {
		var err error
		if s, err = loadPreset(opts.preset, s); err != nil {
			return options{}, err
		}
	}

	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			m, err := edgefx.ParseMode(strings.ToLower(*mode))
			if err != nil {
				parseErr = err
				return
			}
			s.config.Mode = m
		case "refine":
			s.config.Refine = *refine
		case "cel":
			s.config.CelShade = *cel
		case "low":
			s.config.LowThreshold = float32(*low)
		case "high":
			s.config.HighThreshold = float32(*high)
		case "frames":
			s.frames = *frames
		case "backend":
			s.backend = *backendName
		case "off":
			s.config.Enabled = !*off
		}
	})
	if parseErr != nil {
		return options{}, parseErr
	}
	if s.frames < 1 {
		return options{}, fmt.Errorf("frames must be positive, got %d", s.frames)
	}
	opts.settings = s
	return opts, nil
}

// openDevice returns the named backend, or the best available one.
func openDevice(name string) (transferDevice, error) {
	var (
		d   backend.Device
		err error
	)
	if name == "" {
		d, err = backend.Default()
	} else {
		d, err = backend.Get(name)
	}
	if err != nil {
		return nil, err
	}
	td, ok := d.(transferDevice)
	if !ok {
		d.Close()
		return nil, fmt.Errorf("backend %s cannot upload images", d.Name())
	}
	return td, nil
}

// summary aggregates the reports of a run.
type summary struct {
	frames, dispatches, copies, fallbacks int
	last                                  edgefx.Report
}

func (s *summary) add(r edgefx.Report) {
	s.frames++
	s.dispatches += len(r.Dispatches)
	s.copies += r.Copies
	if r.FellBack {
		s.fallbacks++
	}
	s.last = r
}

// printerFor returns a message printer for the locale named by LANG, in
// the POSIX form "de_DE.UTF-8". Unknown locales fall back to English.
func printerFor(lang string) *message.Printer {
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil || lang == "" || lang == "C" || lang == "POSIX" {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

func (s *summary) print(w io.Writer, p *message.Printer, device string, elapsed time.Duration) {
	p.Fprintf(w, "%s: %d frames, %d dispatches, %d copies, %d fallbacks in %v\n",
		device, s.frames, s.dispatches, s.copies, s.fallbacks, elapsed.Round(time.Microsecond))
	if s.last.Err != nil {
		p.Fprintf(w, "last frame: %v\n", s.last.Err)
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(args []string, stdin, stdout *os.File, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, opts.verbose)
	edgefx.SetLogger(logger)
	defer edgefx.SetLogger(nil)

	img, err := readImage(opts.in, stdin)
	if err != nil {
		return err
	}
	var capture image.Image
	if opts.depthNormals != "" {
		if capture, err = readImage(opts.depthNormals, stdin); err != nil {
			return err
		}
	}

	device, err := openDevice(opts.settings.backend)
	if err != nil {
		return err
	}
	defer device.Close()

	p, err := edgefx.NewPipeline(device, edgefx.WithLogger(logger))
	if err != nil {
		return err
	}
	defer p.Close()

	result, sum, elapsed, err := process(device, p, img, capture, opts.settings)
	if err != nil {
		return err
	}
	if err := writeImage(opts.out, result, stdout); err != nil {
		return err
	}
	sum.print(stderr, printerFor(os.Getenv("LANG")), device.Name(), elapsed)
	return nil
}

// process runs every frame of s over img and downloads the last result.
func process(device transferDevice, p *edgefx.Pipeline, img, capture image.Image, s settings) (*image.NRGBA, summary, time.Duration, error) {
	var sum summary
	src, err := device.Upload(img, edgefx.FormatRGBA8)
	if err != nil {
		return nil, sum, 0, fmt.Errorf("upload source: %w", err)
	}
	defer device.DestroyBuffer(src.ID())

	dstDesc := src.Descriptor()
	dstDesc.Label = "destination"
	id, err := device.CreateBuffer(dstDesc)
	if err != nil {
		return nil, sum, 0, fmt.Errorf("create destination: %w", err)
	}
	defer device.DestroyBuffer(id)
	dst := edgefx.NewExternal(id, dstDesc)

	frame := edgefx.Frame{Source: src, Destination: dst}
	if capture != nil && p.WantsDepthNormals(s.config) {
		dn, err := device.Upload(capture, edgefx.FormatRGBA16Float)
		if err != nil {
			return nil, sum, 0, fmt.Errorf("upload depth-normals: %w", err)
		}
		defer device.DestroyBuffer(dn.ID())
		if dn.Width() != src.Width() || dn.Height() != src.Height() {
			return nil, sum, 0, fmt.Errorf("depth-normal capture is %dx%d, source is %dx%d",
				dn.Width(), dn.Height(), src.Width(), src.Height())
		}
		frame.DepthNormals = dn
	}

	start := time.Now()
	for i := range s.frames {
		frame.Time = float32(i) / frameRate
		sum.add(p.Process(frame, s.config))
	}
	elapsed := time.Since(start)

	out, err := device.Download(dst)
	if err != nil {
		return nil, sum, 0, fmt.Errorf("download result: %w", err)
	}
	return out, sum, elapsed, nil
}
