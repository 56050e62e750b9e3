package cpu

import (
	"errors"
	"slices"

	"github.com/born-ml/mandel/internal/backend/host"
	"github.com/born-ml/mandel/internal/device"
	"github.com/born-ml/mandel/internal/kernel"
	"github.com/born-ml/mandel/internal/parallel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is a CPU device session. Release blocks until every enqueued
// command has finished, including commands still waiting on user events.
type Session struct {
	cpu      *CPUBackend
	q        *device.Queue
	log      *zap.Logger
	buffers  []*host.Buffer
	released bool
}

func newSession(cpu *CPUBackend, opts device.SessionOptions) *Session {
	return &Session{
		cpu: cpu,
		q:   device.NewQueue(opts.Profiling, cpu.log),
		log: cpu.log,
	}
}

// ID implements device.Session.
func (s *Session) ID() uuid.UUID { return s.q.ID() }

// Build implements device.Session.
func (s *Session) Build(source, entry string) (device.Program, error) {
	if err := s.check("build"); err != nil {
		return nil, err
	}
	return s.cpu.compile(source, entry)
}

// Allocate implements device.Session.
func (s *Session) Allocate(spec device.BufferSpec) (device.Buffer, error) {
	if err := s.check("allocate"); err != nil {
		return nil, err
	}
	buf, err := host.NewBuffer(s.q.ID(), spec)
	if err != nil {
		return nil, err
	}
	// Drop buffers the caller already released.
	s.buffers = append(slices.DeleteFunc(s.buffers, (*host.Buffer).Released), buf)
	return buf, nil
}

// WriteFloat32 implements device.Session.
func (s *Session) WriteFloat32(buf device.Buffer, src []float32, blocking bool, waitList []*device.Event) (*device.Event, error) {
	if err := s.check("write"); err != nil {
		return nil, err
	}
	hb, err := host.CheckWrite(s.q.ID(), buf, src)
	if err != nil {
		return nil, err
	}
	if err := device.CheckWaitList(s.q.ID(), "write", waitList); err != nil {
		return nil, err
	}

	dst := hb.Float32s()
	ev := s.q.Enqueue("write", waitList, func() error {
		host.CopyFloat32(dst, src)
		return nil
	})
	buf.MarkWritten(ev)
	return s.finish(ev, blocking)
}

// Dispatch splits the launch into workgroups of kernel.WorkgroupSize
// lanes and runs them on the worker pool.
func (s *Session) Dispatch(inv device.Invocation) (*device.Event, error) {
	if err := s.check("dispatch"); err != nil {
		return nil, err
	}
	if err := host.CheckProgram(inv.Program, inv.Entry); err != nil {
		return nil, err
	}
	if inv.WorkSize <= 0 {
		return nil, device.Errorf(device.EnqueueFailure, "dispatch", "work size must be positive, got %d", inv.WorkSize)
	}
	lanes, err := host.Bind(s.q.ID(), inv)
	if err != nil {
		return nil, err
	}
	if err := device.CheckWaitList(s.q.ID(), "dispatch", inv.WaitList); err != nil {
		return nil, err
	}
	if err := device.CheckHazards("dispatch", host.Reads(inv), inv.WaitList); err != nil {
		return nil, err
	}

	pool := parallel.Config{Workers: s.cpu.workers, GroupSize: kernel.WorkgroupSize}
	s.log.Debug("dispatch",
		zap.String("entry", inv.Entry),
		zap.Int("work_size", inv.WorkSize),
		zap.Int("workgroups", pool.Groups(inv.WorkSize)))

	ev := s.q.Enqueue("dispatch", inv.WaitList, func() error {
		return parallel.Ranges(inv.WorkSize, pool, func(lo, hi int) error {
			lanes.Run(lo, hi)
			return nil
		})
	})
	for _, buf := range host.Writes(inv) {
		buf.MarkWritten(ev)
	}
	return ev, nil
}

// ReadInt32 implements device.Session.
func (s *Session) ReadInt32(buf device.Buffer, dst []int32, blocking bool, waitList []*device.Event) (*device.Event, error) {
	if err := s.check("read"); err != nil {
		return nil, err
	}
	hb, err := host.CheckRead(s.q.ID(), buf, dst)
	if err != nil {
		return nil, err
	}
	if err := device.CheckWaitList(s.q.ID(), "read", waitList); err != nil {
		return nil, err
	}
	if err := device.CheckHazards("read", []device.Buffer{buf}, waitList); err != nil {
		return nil, err
	}

	src := hb.Int32s()
	ev := s.q.Enqueue("read", waitList, func() error {
		copy(dst, src)
		return nil
	})
	return s.finish(ev, blocking)
}

// Release waits for in-flight commands, then frees every live buffer.
func (s *Session) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	s.q.Drain()

	var errs []error
	for _, buf := range s.buffers {
		errs = append(errs, buf.Release())
	}
	s.buffers = nil
	s.log.Debug("session released", zap.Stringer("queue", s.q.ID()))
	return errors.Join(errs...)
}

func (s *Session) check(op string) error {
	if s.released {
		return device.Wrap(device.EnqueueFailure, op, device.ErrReleased)
	}
	return nil
}

// finish waits for ev when the command is blocking.
func (s *Session) finish(ev *device.Event, blocking bool) (*device.Event, error) {
	if !blocking {
		return ev, nil
	}
	if err := ev.Wait(); err != nil {
		return nil, err
	}
	return ev, nil
}
