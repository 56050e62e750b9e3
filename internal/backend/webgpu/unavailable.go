//go:build !windows

package webgpu

import (
	"runtime"

	"github.com/born-ml/mandel/internal/backend"
	"github.com/born-ml/mandel/internal/device"
)

// Backend is the WebGPU backend. On this platform it has no devices.
type Backend struct{}

// New creates a WebGPU backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return backend.WebGPU
}

// Capabilities implements device.Backend.
func (b *Backend) Capabilities() device.Capabilities {
	return device.Capabilities{RequiresDevice: true, Asynchronous: true}
}

// Enumerate always fails with NoDeviceFound.
func (b *Backend) Enumerate() ([]device.DeviceDescriptor, error) {
	return nil, device.Errorf(device.NoDeviceFound, "enumerate", "webgpu: not supported on %s", runtime.GOOS)
}

// Open always fails with NoDeviceFound.
func (b *Backend) Open(device.SessionOptions) (device.Session, error) {
	return nil, device.Errorf(device.NoDeviceFound, "open", "webgpu: not supported on %s", runtime.GOOS)
}

// IsAvailable reports whether WebGPU is available on this system.
func IsAvailable() bool {
	return false
}
