package overbroth

import (
	"sync"
	"sync/atomic"
)

// Tracker counts outstanding work items and detects quiescence.
//
// active rises by n for every n items handed to the scheduler and falls by
// one each time an item finishes evaluating, after any successors it created
// were counted. It therefore reaches zero only when no item is queued or
// running. submitted is a running total for diagnostics.
type Tracker struct {
	submitted atomic.Int64
	active    atomic.Int64

	// peak is best-effort: concurrent updates may lose a maximum.
	peak atomic.Int64

	done     chan struct{}
	doneOnce sync.Once
}

// NewTracker returns a tracker with no outstanding work.
func NewTracker() *Tracker {
	return &Tracker{done: make(chan struct{})}
}

// OnSubmit records n new items and returns the active count after the update.
func (t *Tracker) OnSubmit(n int) int64 {
	t.submitted.Add(int64(n))
	active := t.active.Add(int64(n))
	if active > t.peak.Load() {
		t.peak.Store(active)
	}
	return active
}

// Cancel rolls back an OnSubmit(n) whose items never reached the scheduler.
// The caller must still hold an unfinished item, so active cannot reach zero
// here.
func (t *Tracker) Cancel(n int) {
	t.submitted.Add(-int64(n))
	t.active.Add(-int64(n))
}

// OnFinish records that one item finished and returns the active count after
// the update. The transition to zero closes Done.
func (t *Tracker) OnFinish() int64 {
	active := t.active.Add(-1)
	switch {
	case active == 0:
		t.doneOnce.Do(func() { close(t.done) })
	case active < 0:
		panic("overbroth: more work items finished than were submitted")
	}
	return active
}

// Done returns a channel closed once all submitted work has finished.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Quiescent reports whether Done has been closed.
func (t *Tracker) Quiescent() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Active returns the number of outstanding items.
func (t *Tracker) Active() int64 {
	return t.active.Load()
}

// Submitted returns the total number of items submitted so far.
func (t *Tracker) Submitted() int64 {
	return t.submitted.Load()
}

// Peak returns the largest active count observed (best-effort).
func (t *Tracker) Peak() int64 {
	return t.peak.Load()
}
