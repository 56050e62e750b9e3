//go:build windows

package webgpu

import (
	"fmt"

	"github.com/born-ml/mandel/internal/backend"
	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/logging"
	"github.com/go-webgpu/webgpu/wgpu"
	"go.uber.org/zap"
)

// Backend is the WebGPU backend. Each session acquires its own device.
type Backend struct {
	log *zap.Logger
}

// New creates a WebGPU backend. No GPU resources are acquired until Open.
func New() *Backend {
	return &Backend{log: logging.Named("webgpu")}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return backend.WebGPU
}

// Capabilities implements device.Backend.
func (b *Backend) Capabilities() device.Capabilities {
	return device.Capabilities{
		RequiresDevice: true,
		Asynchronous:   true,
		Profiling:      false,
		ZeroCopy:       false,
	}
}

// Enumerate lists the adapters WebGPU exposes.
func (b *Backend) Enumerate() ([]device.DeviceDescriptor, error) {
	adapters, err := ListAdapters()
	if err != nil {
		return nil, device.Wrap(device.NoDeviceFound, "enumerate", err)
	}
	devs := make([]device.DeviceDescriptor, 0, len(adapters))
	for _, info := range adapters {
		devs = append(devs, describe(info))
	}
	return devs, nil
}

// Open acquires a high-performance adapter and device.
func (b *Backend) Open(opts device.SessionOptions) (device.Session, error) {
	g, err := openGPU()
	if err != nil {
		return nil, device.Wrap(device.NoDeviceFound, "open", err)
	}
	s := newSession(g, b.log)
	b.log.Info("device selected",
		zap.Stringer("queue", s.ID()),
		zap.String("device", g.info.Device),
		zap.String("vendor", g.info.Vendor))
	return s, nil
}

// gpu holds the WebGPU objects one session owns.
type gpu struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     wgpu.AdapterInfo
}

// openGPU creates an instance, adapter, device, and queue.
func openGPU() (g *gpu, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	info := adapter.GetInfo()

	dev, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := dev.GetQueue()
	if queue == nil {
		dev.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &gpu{
		instance: instance,
		adapter:  adapter,
		device:   dev,
		queue:    queue,
		info:     info,
	}, nil
}

// release frees the WebGPU objects in reverse order of creation.
func (g *gpu) release() {
	if g.queue != nil {
		g.queue.Release()
		g.queue = nil
	}
	if g.device != nil {
		g.device.Release()
		g.device = nil
	}
	if g.adapter != nil {
		g.adapter.Release()
		g.adapter = nil
	}
	if g.instance != nil {
		g.instance.Release()
		g.instance = nil
	}
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// ListAdapters returns information about the available GPU adapters.
func ListAdapters() (adapters []*wgpu.AdapterInfo, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			adapters = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	// WebGPU has no adapter enumeration; report the default adapter.
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		return nil, fmt.Errorf("webgpu: no adapters available: %w", adapterErr)
	}
	defer adapter.Release()

	info := adapter.GetInfo()

	return []*wgpu.AdapterInfo{&info}, nil
}

func describe(info *wgpu.AdapterInfo) device.DeviceDescriptor {
	return device.DeviceDescriptor{
		Backend: backend.WebGPU,
		Name:    info.Device,
		Vendor:  info.Vendor,
		Driver:  fmt.Sprintf("%v %s", info.BackendType, info.Description),
		Type:    fmt.Sprint(info.AdapterType),
	}
}
