// Package backend holds the registry of escape-time execution backends.
package backend

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/born-ml/mandel/internal/device"
)

// Registered backend names.
const (
	WebGPU    = "webgpu"
	CPU       = "cpu"
	Reference = "reference"
)

// ErrBackendNotAvailable is returned when no registered backend can run.
var ErrBackendNotAvailable = errors.New("backend: no backend available")

// Factory creates a backend instance.
type Factory func() device.Backend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for default selection (first usable wins).
	priority = []string{WebGPU, CPU, Reference}
)

// Register registers a backend factory under name, replacing any previous
// registration. Backend packages call it from init.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend. Used by tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in priority order,
// followed by any others sorted by name.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for _, name := range priority {
		if _, ok := backends[name]; ok {
			names = append(names, name)
		}
	}
	var rest []string
	for name := range backends {
		if !slices.Contains(priority, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

// Get returns a backend by name.
func Get(name string) (device.Backend, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, device.Errorf(device.ConfigurationError, "backend",
			"unknown backend %q (available: %v)", name, Available())
	}
	return factory(), nil
}

// Default returns the first backend in priority order whose Enumerate
// finds at least one device.
func Default() (device.Backend, error) {
	var errs []error
	for _, name := range Available() {
		b, err := Get(name)
		if err != nil {
			continue
		}
		devs, err := b.Enumerate()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if len(devs) > 0 {
			return b, nil
		}
	}
	return nil, errors.Join(append([]error{ErrBackendNotAvailable}, errs...)...)
}
