// Package dispatch runs one escape-time evaluation end to end: grid
// generation, session setup, program build, the buffer exchange, and
// teardown.
package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/exchange"
	"github.com/born-ml/mandel/internal/grid"
	"github.com/born-ml/mandel/internal/kernel"
	"github.com/born-ml/mandel/internal/logging"
	"go.uber.org/zap"
)

// ErrClosed is returned by Compute after Close.
var ErrClosed = errors.New("dispatch: dispatcher closed")

// Result is the output of one evaluation.
type Result struct {
	Viewport grid.Viewport
	// Counts holds one iteration count per grid point, laid out as
	// grid.Index.
	Counts  []int32
	Backend string
	// Kernel holds the kernel's device timestamps when HasProfile is true.
	Kernel     device.Profile
	HasProfile bool
	// Elapsed is the wall time of the whole evaluation.
	Elapsed time.Duration
}

// At returns the count of grid point (i, j).
func (r *Result) At(i, j int) int32 {
	return r.Counts[r.Viewport.Index(i, j)]
}

// Dispatcher evaluates viewports on one backend.
type Dispatcher struct {
	backend   device.Backend
	workSize  int
	writes    exchange.WritePolicy
	ownership device.Ownership
	profiling bool
	reuse     bool
	log       *zap.Logger

	mu      sync.Mutex
	session device.Session
	program device.Program
	closed  bool
}

// New creates a dispatcher for b.
func New(b device.Backend, opts ...Option) (*Dispatcher, error) {
	if b == nil {
		return nil, device.Errorf(device.ConfigurationError, "dispatch", "no backend")
	}
	d := &Dispatcher{
		backend: b,
		log:     logging.Named("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workSize < 0 {
		return nil, device.Errorf(device.ConfigurationError, "dispatch", "work size must not be negative, got %d", d.workSize)
	}
	if d.ownership == device.Borrowed && !b.Capabilities().ZeroCopy {
		d.log.Debug("borrowed inputs are copied by this backend", zap.String("backend", b.Name()))
	}
	return d, nil
}

// Compute evaluates vp. Any failure aborts the evaluation; no partial
// result is returned.
func (d *Dispatcher) Compute(vp grid.Viewport) (*Result, error) {
	start := time.Now()

	if err := vp.Validate(); err != nil {
		return nil, device.Wrap(device.ConfigurationError, "dispatch", err)
	}
	n := vp.Len()
	workSize := d.workSize
	if workSize == 0 {
		workSize = n
	}
	if workSize < n {
		return nil, device.Errorf(device.ConfigurationError, "dispatch",
			"work size %d is smaller than the grid (%d points)", workSize, n)
	}

	xs, ys := grid.Generate(vp.Resolution)

	var (
		session device.Session
		prog    device.Program
		err     error
	)
	if d.reuse {
		d.mu.Lock()
		defer d.mu.Unlock()
		session, prog, err = d.shared()
	} else {
		session, prog, err = d.open()
		if err == nil {
			defer func() {
				if rerr := session.Release(); rerr != nil {
					d.log.Warn("session release failed", zap.Error(rerr))
				}
			}()
		}
	}
	if err != nil {
		return nil, err
	}

	counts, profile, hasProfile, err := d.exchange(session, prog, xs, ys, vp.MaxIterations, workSize)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Viewport:   vp,
		Counts:     counts,
		Backend:    d.backend.Name(),
		Kernel:     profile,
		HasProfile: hasProfile,
		Elapsed:    time.Since(start),
	}
	fields := []zap.Field{
		zap.String("backend", res.Backend),
		zap.Stringer("viewport", vp),
		zap.Duration("elapsed", res.Elapsed),
	}
	if hasProfile {
		fields = append(fields, zap.Duration("kernel", profile.Duration()))
	}
	d.log.Debug("evaluation complete", fields...)
	return res, nil
}

// Close releases a reused session. Compute fails after Close.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.session == nil {
		return nil
	}
	err := d.session.Release()
	d.session, d.program = nil, nil
	return err
}

// exchange stages the inputs, runs the kernel, and reads the counts.
func (d *Dispatcher) exchange(s device.Session, prog device.Program, xs, ys []float32, maxIter int32, workSize int) (counts []int32, profile device.Profile, hasProfile bool, err error) {
	ex := exchange.New(s, exchange.Options{Writes: d.writes, Ownership: d.ownership})
	defer func() {
		if rerr := ex.Release(); rerr != nil && err == nil {
			counts, hasProfile = nil, false
			err = fmt.Errorf("dispatch: release: %w", rerr)
		}
	}()

	if err := ex.Stage(xs, ys); err != nil {
		return nil, device.Profile{}, false, err
	}
	kev, err := ex.Compute(prog, maxIter, workSize)
	if err != nil {
		return nil, device.Profile{}, false, err
	}
	counts, err = ex.Retrieve(len(xs))
	if err != nil {
		return nil, device.Profile{}, false, err
	}
	profile, hasProfile = kev.Profile()
	return counts, profile, hasProfile, nil
}

// open creates a session and builds the program.
func (d *Dispatcher) open() (device.Session, device.Program, error) {
	s, err := d.backend.Open(device.SessionOptions{Profiling: d.profiling})
	if err != nil {
		return nil, nil, err
	}
	prog, err := s.Build(kernel.Source, kernel.Entry)
	if err != nil {
		_ = s.Release()
		return nil, nil, err
	}
	d.log.Debug("session opened", zap.String("backend", d.backend.Name()), zap.Stringer("queue", s.ID()))
	return s, prog, nil
}

// shared returns the reused session, opening it on first use. Must hold
// d.mu.
func (d *Dispatcher) shared() (device.Session, device.Program, error) {
	if d.closed {
		return nil, nil, ErrClosed
	}
	if d.session == nil {
		s, prog, err := d.open()
		if err != nil {
			return nil, nil, err
		}
		d.session, d.program = s, prog
	}
	return d.session, d.program, nil
}

// Compute evaluates a viewport of the given resolution on b with default
// options and returns the counts.
func Compute(resolution int, maxIterations int32, b device.Backend) ([]int32, error) {
	d, err := New(b)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	res, err := d.Compute(grid.Viewport{Resolution: resolution, MaxIterations: maxIterations})
	if err != nil {
		return nil, err
	}
	return res.Counts, nil
}
