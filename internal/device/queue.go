package device

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Queue is an out-of-order command queue. Each command runs on its own
// goroutine as soon as its wait list completes; nothing else orders
// commands.
type Queue struct {
	id        uuid.UUID
	profiling bool
	log       *zap.Logger

	inflight sync.WaitGroup
}

// NewQueue creates a queue with a fresh identifier.
func NewQueue(profiling bool, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{id: uuid.New(), profiling: profiling, log: log}
}

// ID returns the queue identifier carried by its events.
func (q *Queue) ID() uuid.UUID { return q.id }

// Enqueue schedules run after waitList and returns its event. A failed
// wait list event fails the command without running it. A panic in run
// fails the command.
func (q *Queue) Enqueue(op string, waitList []*Event, run func() error) *Event {
	ev := NewEvent(q.id, op)
	deps := slices.Clone(waitList)
	queued := time.Now()

	q.log.Debug("enqueue", zap.Stringer("event", ev), zap.Int("wait_list", len(deps)))

	q.inflight.Add(1)
	go func() {
		defer q.inflight.Done()

		if err := WaitAll(deps); err != nil {
			ev.Complete(err)
			return
		}
		start := time.Now()
		err := protect(op, run)
		if q.profiling {
			ev.SetProfile(Profile{Queued: queued, Start: start, End: time.Now()})
		}
		if err != nil {
			q.log.Debug("command failed", zap.Stringer("event", ev), zap.Error(err))
		}
		ev.Complete(err)
	}()
	return ev
}

// Drain blocks until every enqueued command has finished, including
// commands still waiting on user events.
func (q *Queue) Drain() {
	q.inflight.Wait()
}

func protect(op string, run func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", op, r)
		}
	}()
	return run()
}
