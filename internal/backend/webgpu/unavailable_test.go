//go:build !windows

package webgpu

import (
	"testing"

	"github.com/born-ml/mandel/internal/backend"
	"github.com/born-ml/mandel/internal/device"
	"github.com/stretchr/testify/assert"
)

func TestUnavailable(t *testing.T) {
	b, err := backend.Get(backend.WebGPU)
	assert.NoError(t, err)
	assert.True(t, b.Capabilities().RequiresDevice)
	assert.False(t, IsAvailable())

	_, err = b.Enumerate()
	assert.ErrorIs(t, err, device.ErrNoDeviceFound)

	_, err = b.Open(device.SessionOptions{})
	assert.ErrorIs(t, err, device.ErrNoDeviceFound)
}
