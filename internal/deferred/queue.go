package deferred

import (
	"context"
	"fmt"
)

// Flusher owns a batch of pending work. Flush materializes the batch and
// settles the Values it handed out. Implementations must be comparable; a
// pointer receiver is the usual choice.
type Flusher interface {
	Flush(ctx context.Context)
}

// Stage orders flushers within a drain. All pending flushers of a lower stage
// run before any flusher of a higher stage.
type Stage int

const (
	// StageResolve holds field-level work such as connection page fetches.
	StageResolve Stage = iota
	// StageLoad holds entity loaders, so ids buffered while settling pages
	// join the same batch as sibling lookups.
	StageLoad

	numStages
)

// Queue is the task queue of one execution pass.
type Queue struct {
	stages  [numStages][]Flusher
	queued  map[Flusher]struct{}
	flushes int
}

func NewQueue() *Queue {
	return &Queue{queued: make(map[Flusher]struct{})}
}

// Enqueue schedules f at stage s. A flusher already waiting is not added
// twice; it may enqueue itself again once its Flush has started. Enqueue
// panics on an unknown stage.
func (q *Queue) Enqueue(s Stage, f Flusher) {
	if s < 0 || s >= numStages {
		panic(fmt.Sprintf("deferred: unknown stage %d", s))
	}
	if _, ok := q.queued[f]; ok {
		return
	}
	q.queued[f] = struct{}{}
	q.stages[s] = append(q.stages[s], f)
}

// Pending reports whether any flusher is waiting.
func (q *Queue) Pending() bool {
	return len(q.queued) > 0
}

// Drain flushes until nothing is pending and returns the number of Flush
// calls made. Flushers receive ctx even when it is done so they can reject
// their Values instead of leaving them unsettled.
func (q *Queue) Drain(ctx context.Context) int {
	n := 0
	for {
		s := q.lowestPending()
		if s < 0 {
			return n
		}
		batch := q.stages[s]
		q.stages[s] = nil
		for _, f := range batch {
			delete(q.queued, f)
		}
		for _, f := range batch {
			f.Flush(ctx)
			n++
		}
		q.flushes += len(batch)
	}
}

// Flushes returns the total number of Flush calls made by this queue.
func (q *Queue) Flushes() int { return q.flushes }

func (q *Queue) lowestPending() Stage {
	for s := Stage(0); s < numStages; s++ {
		if len(q.stages[s]) > 0 {
			return s
		}
	}
	return -1
}

type queueKey struct{}

// NewContext returns a copy of parent carrying q.
func NewContext(parent context.Context, q *Queue) context.Context {
	return context.WithValue(parent, queueKey{}, q)
}

// FromContext returns the queue carried by ctx, if any.
func FromContext(ctx context.Context) (*Queue, bool) {
	q, ok := ctx.Value(queueKey{}).(*Queue)
	return q, ok
}
