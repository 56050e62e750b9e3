package reference

import (
	"errors"
	"slices"
	"time"

	"github.com/born-ml/mandel/internal/backend/host"
	"github.com/born-ml/mandel/internal/device"
	"github.com/google/uuid"
)

// Session runs commands synchronously. Every returned event is complete.
type Session struct {
	id       uuid.UUID
	opts     device.SessionOptions
	buffers  []*host.Buffer
	released bool
}

func newSession(opts device.SessionOptions) *Session {
	return &Session{id: uuid.New(), opts: opts}
}

// ID implements device.Session.
func (s *Session) ID() uuid.UUID { return s.id }

// Build checks that entry has a host implementation. The source is not
// compiled.
func (s *Session) Build(_, entry string) (device.Program, error) {
	if err := s.check("build"); err != nil {
		return nil, err
	}
	if _, ok := host.Lookup(entry); !ok {
		return nil, &device.Error{
			Kind: device.BuildFailure,
			Op:   "build",
			Log:  "no host implementation for entry point " + entry,
			Err:  device.ErrUnsupportedSource,
		}
	}
	entries := host.Entries()
	slices.Sort(entries)
	return host.NewProgram(entries, nil), nil
}

// Allocate implements device.Session.
func (s *Session) Allocate(spec device.BufferSpec) (device.Buffer, error) {
	if err := s.check("allocate"); err != nil {
		return nil, err
	}
	buf, err := host.NewBuffer(s.id, spec)
	if err != nil {
		return nil, err
	}
	// Drop buffers the caller already released.
	s.buffers = append(slices.DeleteFunc(s.buffers, (*host.Buffer).Released), buf)
	return buf, nil
}

// WriteFloat32 copies src into buf. Writes are always blocking.
func (s *Session) WriteFloat32(buf device.Buffer, src []float32, _ bool, waitList []*device.Event) (*device.Event, error) {
	if err := s.check("write"); err != nil {
		return nil, err
	}
	hb, err := host.CheckWrite(s.id, buf, src)
	if err != nil {
		return nil, err
	}
	ev, err := s.run("write", waitList, func() error {
		hb.WriteFloat32(src)
		return nil
	})
	if err != nil {
		return nil, err
	}
	buf.MarkWritten(ev)
	return ev, nil
}

// Dispatch runs every lane of the launch in order.
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
	lanes, err := host.Bind(s.id, inv)
	if err != nil {
		return nil, err
	}
	if err := device.CheckHazards("dispatch", host.Reads(inv), inv.WaitList); err != nil {
		return nil, err
	}
	ev, err := s.run("dispatch", inv.WaitList, func() error {
		lanes.Run(0, inv.WorkSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, buf := range host.Writes(inv) {
		buf.MarkWritten(ev)
	}
	return ev, nil
}

// ReadInt32 copies buf into dst.
func (s *Session) ReadInt32(buf device.Buffer, dst []int32, _ bool, waitList []*device.Event) (*device.Event, error) {
	if err := s.check("read"); err != nil {
		return nil, err
	}
	hb, err := host.CheckRead(s.id, buf, dst)
	if err != nil {
		return nil, err
	}
	if err := device.CheckHazards("read", []device.Buffer{buf}, waitList); err != nil {
		return nil, err
	}
	return s.run("read", waitList, func() error {
		hb.ReadInt32(dst)
		return nil
	})
}

// Release frees every buffer the session allocated that is still live.
func (s *Session) Release() error {
	if s.released {
		return nil
	}
	s.released = true
	var errs []error
	for _, buf := range s.buffers {
		errs = append(errs, buf.Release())
	}
	s.buffers = nil
	return errors.Join(errs...)
}

func (s *Session) check(op string) error {
	if s.released {
		return device.Wrap(device.EnqueueFailure, op, device.ErrReleased)
	}
	return nil
}

// run validates the wait list, waits for it, and executes fn inline.
func (s *Session) run(op string, waitList []*device.Event, fn func() error) (*device.Event, error) {
	if err := device.CheckWaitList(s.id, op, waitList); err != nil {
		return nil, err
	}
	if err := device.WaitAll(waitList); err != nil {
		return nil, device.Wrap(device.EnqueueFailure, op, err)
	}

	ev := device.NewEvent(s.id, op)
	queued := time.Now()
	err := fn()
	if s.opts.Profiling {
		ev.SetProfile(device.Profile{Queued: queued, Start: queued, End: time.Now()})
	}
	ev.Complete(err)
	return ev, nil
}
