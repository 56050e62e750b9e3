// Package reference implements the sequential host backend. Every command
// runs to completion on the calling goroutine before it returns, so its
// results define the expected output of the other backends.
package reference

import (
	"runtime"

	"github.com/born-ml/mandel/internal/backend"
	"github.com/born-ml/mandel/internal/device"
)

func init() {
	backend.Register(backend.Reference, func() device.Backend { return New() })
}

// Backend is the sequential reference backend.
type Backend struct{}

// New creates a reference backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return backend.Reference
}

// Capabilities implements device.Backend.
func (b *Backend) Capabilities() device.Capabilities {
	return device.Capabilities{
		RequiresDevice: false,
		Asynchronous:   false,
		Profiling:      true,
		ZeroCopy:       true,
	}
}

// Enumerate returns the single synthetic host device.
func (b *Backend) Enumerate() ([]device.DeviceDescriptor, error) {
	return []device.DeviceDescriptor{{
		Backend:      backend.Reference,
		Name:         "host (sequential)",
		Vendor:       runtime.GOARCH,
		Driver:       runtime.Version(),
		Type:         "host",
		ComputeUnits: 1,
		Synthetic:    true,
	}}, nil
}

// Open creates a session. It never fails with NoDeviceFound.
func (b *Backend) Open(opts device.SessionOptions) (device.Session, error) {
	return newSession(opts), nil
}
