// Package exchange moves the coordinate arrays onto a device session,
// launches the escape-time kernel, and reads the counts back. Every step
// is an event-producing command; the kernel waits on the last writers of
// its inputs and the read waits on the kernel.
package exchange

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/kernel"
	"github.com/born-ml/mandel/internal/logging"
	"go.uber.org/zap"
)

// WritePolicy selects which input writes block.
type WritePolicy int

// Write policies.
const (
	// MixedWrites blocks on the xs write and issues the ys write
	// asynchronously.
	MixedWrites WritePolicy = iota
	// AsyncWrites issues both writes asynchronously.
	AsyncWrites
	// SyncWrites blocks on both writes.
	SyncWrites
)

// String returns the policy name accepted by ParseWritePolicy.
func (p WritePolicy) String() string {
	switch p {
	case MixedWrites:
		return "mixed"
	case AsyncWrites:
		return "async"
	case SyncWrites:
		return "sync"
	default:
		return "unknown"
	}
}

// ParseWritePolicy parses "mixed", "async", or "sync".
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mixed":
		return MixedWrites, nil
	case "async":
		return AsyncWrites, nil
	case "sync":
		return SyncWrites, nil
	default:
		return 0, device.Errorf(device.ConfigurationError, "writes", "unknown write policy %q (want mixed, async, or sync)", s)
	}
}

// ParseOwnership parses "owned" or "borrowed".
func ParseOwnership(s string) (device.Ownership, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "owned":
		return device.Owned, nil
	case "borrowed":
		return device.Borrowed, nil
	default:
		return 0, device.Errorf(device.ConfigurationError, "ownership", "unknown ownership %q (want owned or borrowed)", s)
	}
}

// Options configures an Exchange.
type Options struct {
	Writes WritePolicy
	// Ownership applies to the input buffers. The result buffer is always
	// owned by the device.
	Ownership device.Ownership
}

// Exchange is the buffer lifecycle of one evaluation on one session.
type Exchange struct {
	session device.Session
	opts    Options
	log     *zap.Logger

	n      int
	xs, ys device.Buffer
	result device.Buffer

	kernelEvent *device.Event
	issued      []*device.Event
}

// New creates an exchange on session.
func New(session device.Session, opts Options) *Exchange {
	return &Exchange{
		session: session,
		opts:    opts,
		log:     logging.Named("exchange"),
	}
}

// Stage allocates the input buffers and writes xs and ys according to
// the write policy.
func (e *Exchange) Stage(xs, ys []float32) error {
	if e.xs != nil {
		return device.Errorf(device.EnqueueFailure, "stage", "inputs already staged")
	}
	if len(xs) == 0 || len(xs) != len(ys) {
		return device.Errorf(device.AllocationFailure, "stage", "coordinate arrays have lengths %d and %d", len(xs), len(ys))
	}
	e.n = len(xs)

	var err error
	if e.xs, err = e.allocInput(xs); err != nil {
		return err
	}
	if e.ys, err = e.allocInput(ys); err != nil {
		return err
	}

	if _, err := e.write(e.xs, xs, e.opts.Writes != AsyncWrites); err != nil {
		return fmt.Errorf("exchange: stage xs: %w", err)
	}
	if _, err := e.write(e.ys, ys, e.opts.Writes == SyncWrites); err != nil {
		return fmt.Errorf("exchange: stage ys: %w", err)
	}

	e.log.Debug("staged",
		zap.Int("points", e.n),
		zap.Stringer("writes", e.opts.Writes),
		zap.Stringer("ownership", e.opts.Ownership))
	return nil
}

// Compute allocates the result buffer and dispatches the kernel after
// the last writers of both inputs.
func (e *Exchange) Compute(prog device.Program, maxIter int32, workSize int) (*device.Event, error) {
	if e.xs == nil {
		return nil, device.Errorf(device.EnqueueFailure, "compute", "inputs not staged")
	}
	if e.kernelEvent != nil {
		return nil, device.Errorf(device.EnqueueFailure, "compute", "kernel already dispatched")
	}

	result, err := e.session.Allocate(device.BufferSpec{
		Element: device.Int32,
		Access:  device.WriteOnly,
		Length:  e.n,
	})
	if err != nil {
		return nil, err
	}
	e.result = result

	var waitList []*device.Event
	for _, buf := range []device.Buffer{e.xs, e.ys} {
		if w := buf.LastWriter(); w != nil {
			waitList = append(waitList, w)
		}
	}

	ev, err := e.session.Dispatch(device.Invocation{
		Program: prog,
		Entry:   kernel.Entry,
		Args: []device.Arg{
			device.BufferArg(e.xs),
			device.BufferArg(e.ys),
			device.BufferArg(e.result),
			device.Int32Arg(int32(e.n)), //nolint:gosec // G115: n ≤ MaxInt32 after viewport validation
			device.Int32Arg(maxIter),
		},
		WorkSize: workSize,
		WaitList: waitList,
	})
	if err != nil {
		return nil, err
	}
	e.kernelEvent = ev
	e.issued = append(e.issued, ev)

	e.log.Debug("dispatched", zap.Stringer("event", ev), zap.Int("work_size", workSize), zap.Int("wait_list", len(waitList)))
	return ev, nil
}

// Retrieve reads n counts back with a non-blocking read that waits on
// the kernel, then waits for the read itself.
func (e *Exchange) Retrieve(n int) ([]int32, error) {
	if e.kernelEvent == nil {
		return nil, device.Errorf(device.EnqueueFailure, "retrieve", "kernel not dispatched")
	}
	if n != e.n {
		return nil, device.Errorf(device.EnqueueFailure, "retrieve", "requested %d counts, result holds %d", n, e.n)
	}

	counts := make([]int32, n)
	ev, err := e.session.ReadInt32(e.result, counts, false, []*device.Event{e.kernelEvent})
	if err != nil {
		return nil, err
	}
	e.issued = append(e.issued, ev)

	if err := ev.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// KernelEvent returns the event of the dispatched kernel, or nil.
func (e *Exchange) KernelEvent() *device.Event {
	return e.kernelEvent
}

// Release waits for every issued command to settle, then releases the
// buffers. Borrow violations are reported.
func (e *Exchange) Release() error {
	for _, ev := range e.issued {
		_ = ev.Wait()
	}
	e.issued = nil

	var errs []error
	for _, buf := range []device.Buffer{e.xs, e.ys, e.result} {
		if buf == nil {
			continue
		}
		if err := buf.Release(); err != nil {
			e.log.Warn("buffer release failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	e.xs, e.ys, e.result = nil, nil, nil
	return errors.Join(errs...)
}

func (e *Exchange) allocInput(data []float32) (device.Buffer, error) {
	spec := device.BufferSpec{
		Element:   device.Float32,
		Access:    device.ReadOnly,
		Length:    len(data),
		Ownership: e.opts.Ownership,
	}
	if spec.Ownership == device.Borrowed {
		spec.Host = data
	}
	return e.session.Allocate(spec)
}

func (e *Exchange) write(buf device.Buffer, src []float32, blocking bool) (*device.Event, error) {
	ev, err := e.session.WriteFloat32(buf, src, blocking, nil)
	if err != nil {
		return nil, err
	}
	e.issued = append(e.issued, ev)
	return ev, nil
}
