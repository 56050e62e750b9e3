// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package fractal_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/born-ml/mandel/fractal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackends(t *testing.T) {
	names := fractal.Backends()
	assert.Equal(t, []string{fractal.WebGPU, fractal.CPU, fractal.Reference}, names)
}

func TestCompute(t *testing.T) {
	ref, err := fractal.Compute(10, 50, fractal.Reference)
	require.NoError(t, err)
	require.Len(t, ref, 600)

	def, err := fractal.Compute(10, 50, "")
	require.NoError(t, err)
	require.Len(t, def, 600)
	for i := range ref {
		assert.InDelta(t, ref[i], def[i], 1, "point %d", i)
	}

	// (0, 0) is grid point (200, 100) at resolution 100.
	counts, err := fractal.Compute(100, 1000, fractal.CPU)
	require.NoError(t, err)
	assert.Equal(t, int32(1000), counts[fractal.Index(200, 100, 100)])
}

func TestCompute_Errors(t *testing.T) {
	_, err := fractal.Compute(10, 50, "opencl")
	assert.ErrorIs(t, err, fractal.ErrConfiguration)

	_, err = fractal.Compute(0, 50, fractal.Reference)
	assert.ErrorIs(t, err, fractal.ErrConfiguration)

	var fe *fractal.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fractal.ConfigurationError, fe.Kind)
}

func TestDispatcher(t *testing.T) {
	b, err := fractal.Backend(fractal.CPU)
	require.NoError(t, err)

	d, err := fractal.New(b, fractal.WithSessionReuse(true), fractal.WithWritePolicy(fractal.SyncWrites))
	require.NoError(t, err)
	defer d.Close()

	res, err := d.Compute(fractal.Viewport{Resolution: 20, MaxIterations: 100})
	require.NoError(t, err)
	assert.Equal(t, fractal.CPU, res.Backend)
	assert.Equal(t, int32(100), res.At(40, 20))
}

func ExampleCompute() {
	counts, err := fractal.Compute(10, 100, fractal.Reference)
	if err != nil {
		panic(err)
	}
	fmt.Println(len(counts), counts[fractal.Index(20, 10, 10)])
	// Output: 600 100
}
