// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go device backend for escape-time
// evaluation.
//
// # Overview
//
// The backend behaves like an accelerator driver without one:
//   - Every session owns an out-of-order command queue
//   - Commands start once their wait-list events complete
//   - Kernel lanes run in workgroups of 256 on a bounded goroutine pool
//   - Programs are compiled from WGSL to SPIR-V once and cached
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/mandel/backend/cpu"
//	    "github.com/born-ml/mandel/fractal"
//	)
//
//	func main() {
//	    d, err := fractal.New(cpu.New(), fractal.WithProfiling(true))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer d.Close()
//
//	    res, err := d.Compute(fractal.Viewport{Resolution: 100, MaxIterations: 1000})
//	}
//
// # Concurrency
//
// Sessions may be used from one goroutine at a time. Release waits for
// every in-flight command before freeing buffers.
package cpu
