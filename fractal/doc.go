// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package fractal computes escape-time iteration counts for the
// Mandelbrot set.
//
// # Overview
//
// For every point c of a grid over [-2, 1) x [-1, 1), the engine counts
// how many iterations of z = z² + c stay inside the radius-2 disc, up to
// a maximum. Points in the main cardioid are answered analytically.
//
// Three backends produce the same counts (within one iteration):
//   - "reference": sequential host code, always available
//   - "cpu": a pure Go device with an out-of-order command queue
//   - "webgpu": a WGSL compute shader on the GPU (Windows)
//
// # Basic Usage
//
//	counts, err := fractal.Compute(100, 1000, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// counts[i*200+j] is the count of x = i/100 - 2, y = j/100 - 1.
//
// # Dispatcher
//
// A Dispatcher keeps options and, with WithSessionReuse, one device
// session across evaluations:
//
//	b, _ := fractal.Backend("cpu")
//	d, _ := fractal.New(b, fractal.WithSessionReuse(true))
//	defer d.Close()
//
//	res, err := d.Compute(fractal.Viewport{Resolution: 200, MaxIterations: 500})
//	fmt.Println(res.At(0, 0))
//
// # Errors
//
// Every failure is an *Error whose Kind is matched with errors.Is against
// the Err* sentinels. No partial result is returned.
package fractal
