// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package reference provides the sequential host backend. It needs no
// device, never fails with NoDeviceFound, and its counts are the values
// every other backend is checked against.
package reference

import (
	"github.com/born-ml/mandel/internal/backend/reference"
	"github.com/born-ml/mandel/internal/device"
)

// Backend is the sequential reference backend.
type Backend = reference.Backend

var _ device.Backend = (*Backend)(nil)

// New creates a reference backend.
func New() *Backend {
	return reference.New()
}
