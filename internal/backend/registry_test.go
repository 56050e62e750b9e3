package backend

import (
	"errors"
	"testing"

	"github.com/born-ml/mandel/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name string
	devs []device.DeviceDescriptor
	err  error
}

func (f *fakeBackend) Name() string { return f.name }
func (f *fakeBackend) Capabilities() device.Capabilities { return device.Capabilities{} }
func (f *fakeBackend) Enumerate() ([]device.DeviceDescriptor, error) {
	return f.devs, f.err
}

func (f *fakeBackend) Open(device.SessionOptions) (device.Session, error) {
	return nil, errors.New("not implemented")
}

func register(t *testing.T, b *fakeBackend) {
	t.Helper()
	Register(b.name, func() device.Backend { return b })
	t.Cleanup(func() { Unregister(b.name) })
}

func TestRegistry_Default(t *testing.T) {
	register(t, &fakeBackend{name: WebGPU, err: device.Errorf(device.NoDeviceFound, "enumerate", "no adapter")})
	register(t, &fakeBackend{name: CPU, devs: []device.DeviceDescriptor{{Backend: CPU, Name: "pool"}}})
	register(t, &fakeBackend{name: Reference, devs: []device.DeviceDescriptor{{Backend: Reference}}})

	assert.Equal(t, []string{WebGPU, CPU, Reference}, Available())

	b, err := Default()
	require.NoError(t, err)
	assert.Equal(t, CPU, b.Name(), "webgpu has no device, cpu is next")
}

func TestRegistry_NoneUsable(t *testing.T) {
	register(t, &fakeBackend{name: "broken", err: device.Errorf(device.NoDeviceFound, "enumerate", "none")})

	_, err := Default()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendNotAvailable)
	assert.ErrorIs(t, err, device.ErrNoDeviceFound)
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, err := Get("opencl")
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrConfiguration)
}

func TestRegistry_AvailableOrder(t *testing.T) {
	register(t, &fakeBackend{name: "zeta"})
	register(t, &fakeBackend{name: Reference})
	register(t, &fakeBackend{name: "alpha"})

	assert.Equal(t, []string{Reference, "alpha", "zeta"}, Available())
}
