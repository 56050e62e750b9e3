package webgpu

import (
	"github.com/born-ml/mandel/internal/backend"
	"github.com/born-ml/mandel/internal/device"
)

func init() {
	backend.Register(backend.WebGPU, func() device.Backend { return New() })
}
