// Package sink turns iteration counts into pictures. It is the consumer
// side of an evaluation: counts are normalized by the iteration budget
// and mapped to the red channel, one pixel per grid point.
package sink

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/born-ml/mandel/internal/grid"
	"github.com/born-ml/mandel/internal/parallel"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Sink errors.
var (
	// ErrUnsupportedFormat is returned for an unknown image format.
	ErrUnsupportedFormat = errors.New("sink: unsupported format")

	// ErrShape is returned when counts do not match the viewport.
	ErrShape = errors.New("sink: counts do not match viewport")
)

// Format is an image encoding.
type Format int

// Supported formats.
const (
	PNG Format = iota
	BMP
	TIFF
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case BMP:
		return "bmp"
	case TIFF:
		return "tiff"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "png":
		return PNG, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FormatFromPath returns the format implied by path's extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ResultSink consumes the counts of one evaluation.
type ResultSink interface {
	Consume(vp grid.Viewport, counts []int32) error
}

// Normalize maps every count to count/maxIter in [0, 1].
func Normalize(counts []int32, maxIter int32) []float32 {
	out := make([]float32, len(counts))
	if maxIter <= 0 {
		return out
	}
	for i, c := range counts {
		out[i] = float32(c) / float32(maxIter)
	}
	return out
}

// Image renders counts as a Width x Height picture. Pixel (i, j) holds
// grid point (i, j); red intensity is the normalized count.
func Image(vp grid.Viewport, counts []int32) (*image.RGBA, error) {
	if len(counts) != vp.Len() {
		return nil, fmt.Errorf("%w: %d counts for %s", ErrShape, len(counts), vp)
	}
	img := image.NewRGBA(image.Rect(0, 0, vp.Width(), vp.Height()))
	levels := Normalize(counts, vp.MaxIterations)
	// Columns write disjoint pixels.
	parallel.For(vp.Width(), parallel.DefaultConfig(), func(i int) {
		for j := range vp.Height() {
			red := uint8(levels[vp.Index(i, j)] * 255)
			img.SetRGBA(i, j, color.RGBA{R: red, A: 0xff})
		}
	})
	return img, nil
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	var err error
	switch f {
	case PNG:
		err = png.Encode(w, img)
	case BMP:
		err = bmp.Encode(w, img)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(f))
	}
	if err != nil {
		return fmt.Errorf("sink: encode %s: %w", f, err)
	}
	return nil
}

// FileSink writes each evaluation to an image file.
type FileSink struct {
	Path   string
	Format Format
}

// Consume renders counts and writes the file.
func (s *FileSink) Consume(vp grid.Viewport, counts []int32) (err error) {
	img, err := Image(vp, counts)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Clean(s.Path))
	if err != nil {
		return fmt.Errorf("sink: create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("sink: close file: %w", cerr)
		}
	}()

	return Encode(f, img, s.Format)
}

// WriterSink encodes each evaluation to an io.Writer.
type WriterSink struct {
	W      io.Writer
	Format Format
}

// Consume renders counts and encodes them to the writer.
func (s *WriterSink) Consume(vp grid.Viewport, counts []int32) error {
	img, err := Image(vp, counts)
	if err != nil {
		return err
	}
	return Encode(s.W, img, s.Format)
}
