// Package cpu implements the goroutine device: a session owns an
// out-of-order command queue, every command runs on its own goroutine
// once its wait list completes, and kernels execute in workgroups on a
// bounded pool sized to GOMAXPROCS.
package cpu

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/born-ml/mandel/internal/backend"
	"github.com/born-ml/mandel/internal/backend/host"
	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/logging"
	"go.uber.org/zap"
)

func init() {
	backend.Register(backend.CPU, func() device.Backend { return New() })
}

// CPUBackend is the goroutine device backend.
type CPUBackend struct {
	workers int
	log     *zap.Logger

	mu       sync.RWMutex
	programs map[string]*host.Program
}

// New creates a CPU backend with one worker per GOMAXPROCS.
func New() *CPUBackend {
	return NewWithWorkers(runtime.GOMAXPROCS(0))
}

// NewWithWorkers creates a CPU backend that runs at most workers
// workgroups concurrently.
func NewWithWorkers(workers int) *CPUBackend {
	if workers < 1 {
		workers = 1
	}
	return &CPUBackend{
		workers:  workers,
		log:      logging.Named("cpu"),
		programs: make(map[string]*host.Program),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return backend.CPU
}

// Capabilities implements device.Backend.
func (cpu *CPUBackend) Capabilities() device.Capabilities {
	return device.Capabilities{
		RequiresDevice: false,
		Asynchronous:   true,
		Profiling:      true,
		ZeroCopy:       true,
	}
}

// Enumerate returns the goroutine pool as a single device.
func (cpu *CPUBackend) Enumerate() ([]device.DeviceDescriptor, error) {
	return []device.DeviceDescriptor{{
		Backend:      backend.CPU,
		Name:         fmt.Sprintf("goroutine pool (%d workers)", cpu.workers),
		Vendor:       runtime.GOARCH,
		Driver:       runtime.Version(),
		Type:         "cpu",
		ComputeUnits: cpu.workers,
		Synthetic:    true,
	}}, nil
}

// Open creates a session with its own command queue.
func (cpu *CPUBackend) Open(opts device.SessionOptions) (device.Session, error) {
	s := newSession(cpu, opts)
	cpu.log.Debug("session opened",
		zap.Stringer("queue", s.ID()),
		zap.Int("workers", cpu.workers),
		zap.Bool("profiling", opts.Profiling))
	return s, nil
}
