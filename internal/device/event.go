package device

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status is the completion state of an Event.
type Status int32

// Event states.
const (
	Pending Status = iota
	Complete
	Failed
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Profile holds the timestamps of one command on the device timeline.
type Profile struct {
	Queued time.Time
	Start  time.Time
	End    time.Time
}

// Duration returns the execution time of the command.
func (p Profile) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Event is the completion token of one enqueued command. Events are
// placed in the wait lists of later commands to order them.
//
// An Event completes exactly once. Devices without a timeline of their
// own attach a resolver that Wait runs to drive completion.
type Event struct {
	id    uuid.UUID
	queue uuid.UUID
	op    string

	done   chan struct{}
	once   sync.Once
	status atomic.Int32
	err    error

	profile  Profile
	profiled bool

	resolve     func() error
	resolveOnce sync.Once
}

// NewEvent creates a pending event for an operation on the given queue.
func NewEvent(queue uuid.UUID, op string) *Event {
	return &Event{
		id:    uuid.New(),
		queue: queue,
		op:    op,
		done:  make(chan struct{}),
	}
}

// NewUserEvent creates a pending event completed by the host with
// Complete. User events may appear in the wait list of any queue.
func NewUserEvent() *Event {
	return NewEvent(uuid.Nil, "user")
}

// CompletedEvent creates an event that is already complete.
func CompletedEvent(queue uuid.UUID, op string) *Event {
	e := NewEvent(queue, op)
	e.Complete(nil)
	return e
}

// ID returns the event's unique identifier.
func (e *Event) ID() uuid.UUID { return e.id }

// Queue returns the identifier of the queue that issued the event.
// User events return uuid.Nil.
func (e *Event) Queue() uuid.UUID { return e.queue }

// Op returns the name of the operation the event tracks.
func (e *Event) Op() string { return e.op }

// SetResolver attaches fn, which Wait calls once to drive a pending event
// to completion. fn must complete the event before returning.
func (e *Event) SetResolver(fn func() error) {
	e.resolve = fn
}

// SetProfile records execution timestamps. Must be called before Complete.
func (e *Event) SetProfile(p Profile) {
	e.profile = p
	e.profiled = true
}

// Complete marks the event complete, or failed when err is non-nil.
// Later calls are ignored.
func (e *Event) Complete(err error) {
	e.once.Do(func() {
		e.err = err
		if err != nil {
			e.status.Store(int32(Failed))
		} else {
			e.status.Store(int32(Complete))
		}
		close(e.done)
	})
}

// Status returns the current state of the event.
func (e *Event) Status() Status {
	return Status(e.status.Load())
}

// Done returns a channel closed when the event leaves the Pending state.
func (e *Event) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the event completes and returns its failure, if any.
func (e *Event) Wait() error {
	if e.resolve != nil && e.Status() == Pending {
		e.resolveOnce.Do(func() {
			if err := e.resolve(); err != nil {
				e.Complete(err)
			}
		})
	}
	<-e.done
	if e.Status() == Failed {
		return &Error{Kind: EventWaitFailure, Op: e.op, Err: e.err}
	}
	return nil
}

// Err returns the failure of a completed event, or nil.
func (e *Event) Err() error {
	if e.Status() == Pending {
		return nil
	}
	return e.err
}

// Profile returns the execution timestamps of a completed event. ok is
// false while the event is pending or when the queue does not profile.
func (e *Event) Profile() (p Profile, ok bool) {
	select {
	case <-e.done:
		return e.profile, e.profiled
	default:
		return Profile{}, false
	}
}

// String implements fmt.Stringer.
func (e *Event) String() string {
	return fmt.Sprintf("%s[%s] %s", e.op, e.id.String()[:8], e.Status())
}

// WaitAll waits for every event in order and returns the first failure.
func WaitAll(events []*Event) error {
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if err := ev.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether ev is in list.
func Contains(list []*Event, ev *Event) bool {
	for _, e := range list {
		if e == ev {
			return true
		}
	}
	return false
}

// CheckWaitList validates a wait list before a command is enqueued on
// queue: every event must come from that queue (or be a user event) and
// none may have failed.
func CheckWaitList(queue uuid.UUID, op string, waitList []*Event) error {
	for _, ev := range waitList {
		if ev == nil {
			return Errorf(EnqueueFailure, op, "nil event in wait list")
		}
		if ev.Queue() != queue && ev.Queue() != uuid.Nil {
			return Wrap(EnqueueFailure, op, fmt.Errorf("%w: %s", ErrForeignEvent, ev))
		}
		if ev.Status() == Failed {
			return Wrap(EnqueueFailure, op, fmt.Errorf("wait list event %s: %w", ev, ev.Err()))
		}
	}
	return nil
}

// CheckHazards fails when a buffer read by a command has a pending last
// writer that the command's wait list does not include.
func CheckHazards(op string, reads []Buffer, waitList []*Event) error {
	for _, buf := range reads {
		w := buf.LastWriter()
		if w == nil || w.Status() != Pending {
			continue
		}
		if !Contains(waitList, w) {
			return Wrap(EnqueueFailure, op, fmt.Errorf("%w: %s", ErrHazard, w))
		}
	}
	return nil
}
