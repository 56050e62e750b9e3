package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Length(t *testing.T) {
	for _, r := range []int{1, 2, 7, 10, 100} {
		xs, ys := Generate(r)
		assert.Len(t, xs, 6*r*r, "xs at resolution %d", r)
		assert.Len(t, ys, 6*r*r, "ys at resolution %d", r)
	}
}

func TestGenerate_NonPositive(t *testing.T) {
	xs, ys := Generate(0)
	assert.Empty(t, xs)
	assert.Empty(t, ys)
}

func TestGenerate_RowMajorLayout(t *testing.T) {
	const r = 4
	xs, ys := Generate(r)
	vp := Viewport{Resolution: r, MaxIterations: 1}

	for i := 0; i < vp.Width(); i++ {
		for j := 0; j < vp.Height(); j++ {
			k := vp.Index(i, j)
			x0, y0 := Coord(i, j, r)
			require.Equal(t, x0, xs[k], "x at (%d,%d)", i, j)
			require.Equal(t, y0, ys[k], "y at (%d,%d)", i, j)
		}
	}

	// First point is the domain corner, the imaginary axis varies fastest.
	assert.Equal(t, float32(-2), xs[0])
	assert.Equal(t, float32(-1), ys[0])
	assert.Equal(t, float32(-2), xs[1])
	assert.Equal(t, float32(-0.75), ys[1])
	assert.Equal(t, float32(-1.75), xs[2*r])
}

func TestGenerate_Deterministic(t *testing.T) {
	xs1, ys1 := Generate(13)
	xs2, ys2 := Generate(13)
	assert.Equal(t, xs1, xs2)
	assert.Equal(t, ys1, ys2)
}

func TestCoord_Origin(t *testing.T) {
	x0, y0 := Coord(200, 100, 100)
	assert.Equal(t, float32(0), x0)
	assert.Equal(t, float32(0), y0)
}

func TestViewport_Dimensions(t *testing.T) {
	vp := Viewport{Resolution: 10, MaxIterations: 50}
	assert.Equal(t, 30, vp.Width())
	assert.Equal(t, 20, vp.Height())
	assert.Equal(t, 600, vp.Len())
	assert.Equal(t, 21*20+5, vp.Index(21, 5))
}

func TestViewport_Validate(t *testing.T) {
	tests := []struct {
		name    string
		vp      Viewport
		wantErr bool
	}{
		{"valid", Viewport{Resolution: 100, MaxIterations: 1000}, false},
		{"smallest", Viewport{Resolution: 1, MaxIterations: 1}, false},
		{"zero resolution", Viewport{Resolution: 0, MaxIterations: 10}, true},
		{"negative resolution", Viewport{Resolution: -3, MaxIterations: 10}, true},
		{"zero iterations", Viewport{Resolution: 10, MaxIterations: 0}, true},
		{"negative iterations", Viewport{Resolution: 10, MaxIterations: -1}, true},
		{"too large", Viewport{Resolution: 1 << 20, MaxIterations: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vp.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestViewport_Nearest(t *testing.T) {
	vp := Viewport{Resolution: 100, MaxIterations: 1000}

	i, j := vp.Nearest(0, 0)
	assert.Equal(t, 200, i)
	assert.Equal(t, 100, j)

	// (1, 1) lies on the open edge of the domain and clamps to the last sample.
	i, j = vp.Nearest(1, 1)
	assert.Equal(t, 299, i)
	assert.Equal(t, 199, j)

	i, j = vp.Nearest(-5, -5)
	assert.Equal(t, 0, i)
	assert.Equal(t, 0, j)
}
