// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU compute backend.
//
// The backend is built on Windows, where the wgpu-native library is
// loaded at runtime. On other platforms it is present but reports no
// device, so fractal.Default falls through to the CPU backend.
//
// Example:
//
//	if webgpu.IsAvailable() {
//	    counts, err := fractal.Compute(100, 1000, "webgpu")
//	}
package webgpu

import (
	"github.com/born-ml/mandel/internal/backend/webgpu"
	"github.com/born-ml/mandel/internal/device"
)

// Backend is the WebGPU compute backend.
type Backend = webgpu.Backend

var _ device.Backend = (*Backend)(nil)

// New creates a WebGPU backend. The device is opened per session.
func New() *Backend {
	return webgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// It attempts to initialize an adapter, recovering from a missing
// native library.
func IsAvailable() bool {
	return webgpu.IsAvailable()
}
