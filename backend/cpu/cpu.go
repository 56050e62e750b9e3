// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/mandel/internal/backend/cpu"
	"github.com/born-ml/mandel/internal/device"
)

// Backend is the pure Go device backend.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements device.Backend.
var _ device.Backend = (*Backend)(nil)

// New creates a CPU backend using GOMAXPROCS workers.
func New() *Backend {
	return internalcpu.New()
}

// NewWithWorkers creates a CPU backend that runs at most workers
// workgroups at once.
//
// Example:
//
//	b := cpu.NewWithWorkers(1) // one workgroup at a time
func NewWithWorkers(workers int) *Backend {
	return internalcpu.NewWithWorkers(workers)
}
