// Package grid generates the sample coordinates of the evaluation domain.
//
// The domain is the rectangle [-2, 1) x [-1, 1) of the complex plane,
// sampled at Resolution points per unit. Points are ordered row-major by
// the real-axis index i, then the imaginary-axis index j:
//
//	index(i, j) = i*(2*Resolution) + j
//
// External renderers index result arrays with this layout.
package grid

import (
	"fmt"
	"math"
)

// Domain origin and extent in units of 1/Resolution.
const (
	originX = -2.0
	originY = -1.0

	// WidthFactor is the number of real-axis samples per unit of resolution.
	WidthFactor = 3
	// HeightFactor is the number of imaginary-axis samples per unit of resolution.
	HeightFactor = 2
)

// Viewport describes one evaluation: the sampling density and the
// iteration budget per point.
type Viewport struct {
	Resolution    int   `yaml:"resolution"`
	MaxIterations int32 `yaml:"max_iterations"`
}

// Validate reports whether the viewport describes a non-empty grid with
// a positive iteration budget.
func (v Viewport) Validate() error {
	if v.Resolution <= 0 {
		return fmt.Errorf("grid: resolution must be positive, got %d", v.Resolution)
	}
	if v.MaxIterations <= 0 {
		return fmt.Errorf("grid: max iterations must be positive, got %d", v.MaxIterations)
	}
	// 6r² must fit a device work size and an int32 index.
	if int64(v.Resolution)*int64(v.Resolution)*WidthFactor*HeightFactor > math.MaxInt32 {
		return fmt.Errorf("grid: resolution %d exceeds the addressable grid", v.Resolution)
	}
	return nil
}

// Width returns the number of real-axis samples (3r).
func (v Viewport) Width() int { return WidthFactor * v.Resolution }

// Height returns the number of imaginary-axis samples (2r).
func (v Viewport) Height() int { return HeightFactor * v.Resolution }

// Len returns the number of grid points (6r²).
func (v Viewport) Len() int { return v.Width() * v.Height() }

// Index returns the linear index of grid point (i, j).
func (v Viewport) Index(i, j int) int { return Index(i, j, v.Resolution) }

// Nearest returns the grid indices of the sample closest to (x, y),
// clamped to the grid.
func (v Viewport) Nearest(x, y float64) (i, j int) {
	r := float64(v.Resolution)
	i = clamp(int(math.Round((x-originX)*r)), v.Width()-1)
	j = clamp(int(math.Round((y-originY)*r)), v.Height()-1)
	return i, j
}

// String implements fmt.Stringer.
func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d (resolution %d, %d iterations)", v.Width(), v.Height(), v.Resolution, v.MaxIterations)
}

// Index returns the linear index of grid point (i, j) at resolution r.
func Index(i, j, r int) int {
	return i*(HeightFactor*r) + j
}

// Coord returns the complex coordinate of grid point (i, j) at resolution r.
func Coord(i, j, r int) (x0, y0 float32) {
	res := float32(r)
	return float32(i)/res + originX, float32(j)/res + originY
}

// Generate returns the real and imaginary coordinates of every grid point
// at resolution r, in index order. Both slices have length 6r².
func Generate(r int) (xs, ys []float32) {
	if r <= 0 {
		return nil, nil
	}
	n := WidthFactor * r * HeightFactor * r
	xs = make([]float32, 0, n)
	ys = make([]float32, 0, n)
	for i := 0; i < WidthFactor*r; i++ {
		for j := 0; j < HeightFactor*r; j++ {
			x0, y0 := Coord(i, j, r)
			xs = append(xs, x0)
			ys = append(ys, y0)
		}
	}
	return xs, ys
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
