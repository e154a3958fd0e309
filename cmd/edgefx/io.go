package main

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	// Extra decoders for imaging.Decode.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/term"
)

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// isTerminal reports whether f is attached to a terminal.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd fits int
}

// readImage decodes the image at path, or stdin for pipeName. EXIF
// orientation is applied.
func readImage(path string, stdin *os.File) (image.Image, error) {
	var src io.Reader
	if path == pipeName {
		if isTerminal(stdin) {
			return nil, errors.New("`-` should be used with a pipe for stdin")
		}
		src = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open the source file: %w", err)
		}
		defer f.Close()
		src = f
	}
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", displayName(path), err)
	}
	return img, nil
}

// writeImage encodes img to path, or stdout for pipeName. The format
// follows the file extension; stdout gets PNG.
func writeImage(path string, img image.Image, stdout *os.File) (err error) {
	format := imaging.PNG
	var dst io.Writer
	if path == pipeName {
		if isTerminal(stdout) {
			return errors.New("`-` should be used with a pipe for stdout")
		}
		dst = stdout
	} else {
		if format, err = imaging.FormatFromFilename(path); err != nil {
			return fmt.Errorf("output %s: %w", filepath.Base(path), err)
		}
		f, createErr := os.Create(path)
		if createErr != nil {
			return fmt.Errorf("unable to create the destination file: %w", createErr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		dst = f
	}
	if err := imaging.Encode(dst, img, format); err != nil {
		return fmt.Errorf("encode %s: %w", displayName(path), err)
	}
	return nil
}

func displayName(path string) string {
	if path == pipeName {
		return "pipe"
	}
	return filepath.Base(path)
}
