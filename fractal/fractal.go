// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package fractal

import (
	"github.com/born-ml/mandel/internal/backend"
	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/dispatch"
	"github.com/born-ml/mandel/internal/exchange"
	"github.com/born-ml/mandel/internal/grid"
	"github.com/born-ml/mandel/internal/logging"
	"github.com/born-ml/mandel/internal/sink"
	"go.uber.org/zap"

	// Registered backends.
	_ "github.com/born-ml/mandel/internal/backend/cpu"
	_ "github.com/born-ml/mandel/internal/backend/reference"
	_ "github.com/born-ml/mandel/internal/backend/webgpu"
)

// Core types.
type (
	// Device is an execution backend.
	Device = device.Backend
	// DeviceDescriptor describes one device a backend can open.
	DeviceDescriptor = device.DeviceDescriptor
	// Capabilities reports what a backend supports.
	Capabilities = device.Capabilities
	// Profile holds kernel timestamps.
	Profile = device.Profile

	// Viewport is the sampling density and iteration budget.
	Viewport = grid.Viewport
	// Dispatcher evaluates viewports on one backend.
	Dispatcher = dispatch.Dispatcher
	// Option configures a Dispatcher.
	Option = dispatch.Option
	// Result is the output of one evaluation.
	Result = dispatch.Result

	// WritePolicy selects which input writes block.
	WritePolicy = exchange.WritePolicy
	// Ownership selects whether inputs are copied or borrowed.
	Ownership = device.Ownership

	// ResultSink consumes the counts of an evaluation.
	ResultSink = sink.ResultSink

	// Error is the error type returned by every stage.
	Error = device.Error
	// ErrorKind classifies an Error.
	ErrorKind = device.ErrorKind
)

// Backend names.
const (
	WebGPU    = backend.WebGPU
	CPU       = backend.CPU
	Reference = backend.Reference
)

// Write policies.
const (
	MixedWrites = exchange.MixedWrites
	AsyncWrites = exchange.AsyncWrites
	SyncWrites  = exchange.SyncWrites
)

// Ownership modes.
const (
	Owned    = device.Owned
	Borrowed = device.Borrowed
)

// Error kinds.
const (
	NoDeviceFound          = device.NoDeviceFound
	BuildFailure           = device.BuildFailure
	AllocationFailure      = device.AllocationFailure
	ArgumentBindingFailure = device.ArgumentBindingFailure
	EnqueueFailure         = device.EnqueueFailure
	EventWaitFailure       = device.EventWaitFailure
	ConfigurationError     = device.ConfigurationError
)

// Error sentinels, matched with errors.Is.
var (
	ErrNoDeviceFound       = device.ErrNoDeviceFound
	ErrBuildFailure        = device.ErrBuildFailure
	ErrAllocation          = device.ErrAllocation
	ErrArgumentBinding     = device.ErrArgumentBinding
	ErrEnqueue             = device.ErrEnqueue
	ErrEventWait           = device.ErrEventWait
	ErrConfiguration       = device.ErrConfiguration
	ErrBorrowViolated      = device.ErrBorrowViolated
	ErrBackendNotAvailable = backend.ErrBackendNotAvailable
	ErrClosed              = dispatch.ErrClosed
)

// Dispatcher options.
var (
	WithWorkSize     = dispatch.WithWorkSize
	WithWritePolicy  = dispatch.WithWritePolicy
	WithOwnership    = dispatch.WithOwnership
	WithProfiling    = dispatch.WithProfiling
	WithSessionReuse = dispatch.WithSessionReuse
	WithLogger       = dispatch.WithLogger
)

// Backends returns the registered backend names in default priority order.
func Backends() []string {
	return backend.Available()
}

// Backend returns the backend registered under name. An empty name
// selects the default backend.
func Backend(name string) (Device, error) {
	if name == "" {
		return backend.Default()
	}
	return backend.Get(name)
}

// New creates a dispatcher for b.
func New(b Device, opts ...Option) (*Dispatcher, error) {
	return dispatch.New(b, opts...)
}

// Compute evaluates a grid of the given resolution on the backend named
// kind ("" for the default) and returns 6·resolution² counts laid out as
// Index.
func Compute(resolution int, maxIterations int32, kind string) ([]int32, error) {
	b, err := Backend(kind)
	if err != nil {
		return nil, err
	}
	return dispatch.Compute(resolution, maxIterations, b)
}

// Index returns the position of grid point (i, j) in a result array of
// the given resolution.
func Index(i, j, resolution int) int {
	return grid.Index(i, j, resolution)
}

// SetLogger sets the logger used by every backend and dispatcher. Pass
// nil to discard logs.
func SetLogger(l *zap.Logger) {
	logging.Set(l)
}
