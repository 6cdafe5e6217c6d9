// Package parallel provides the scheduling infrastructure for overbroth:
// a pool of worker goroutines fed by a multilevel priority ready queue, and
// an atomic tile bitmap for tracking which parts of a canvas changed.
package parallel

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrPoolClosed is returned when submitting to a pool that has been closed.
	ErrPoolClosed = errors.New("parallel: worker pool is closed")

	// ErrQueueFull is returned when a submission would exceed the pool's
	// queue bound. The caller may retry once workers have drained some work.
	ErrQueueFull = errors.New("parallel: ready queue is full")
)

// WorkerPool runs work items on a fixed set of goroutines, always preferring
// the lowest-numbered non-empty priority level.
//
// Each level is a FIFO. Workers scan levels from 0 upwards and run the first
// item they find, then restart the scan at level 0, so cheap low-level work
// is drained across the whole pool before any higher level is touched.
// Within a level there is no ordering guarantee between workers. When every
// level is empty a worker sleeps on a condition variable until Submit wakes
// it or the pool closes.
//
// Thread safety: WorkerPool is safe for concurrent use. Submit may be
// called from inside a running work item.
type WorkerPool struct {
	workers int

	mu     sync.Mutex
	wake   *sync.Cond
	levels []fifo
	queued int

	// maxQueued bounds the total number of queued items; 0 means unbounded.
	maxQueued int

	wg       sync.WaitGroup
	running  atomic.Bool
	executed atomic.Int64
}

// PoolOption configures a WorkerPool.
type PoolOption func(*WorkerPool)

// WithMaxQueued bounds the number of items waiting across all levels.
// Submissions that would exceed the bound fail with ErrQueueFull.
func WithMaxQueued(n int) PoolOption {
	return func(p *WorkerPool) {
		if n > 0 {
			p.maxQueued = n
		}
	}
}

// NewWorkerPool creates a pool with the given number of workers and priority
// levels. If workers is 0 or negative, GOMAXPROCS is used; levels is at
// least 1. Workers start immediately.
func NewWorkerPool(workers, levels int, opts ...PoolOption) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if levels < 1 {
		levels = 1
	}

	p := &WorkerPool{
		workers: workers,
		levels:  make([]fifo, levels),
	}
	p.wake = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for p.running.Load() {
		ran := false
		for level := range p.levels {
			if p.ExecuteOne(level) {
				ran = true
				break
			}
		}
		if !ran {
			p.waitForWork()
		}
	}
}

// waitForWork blocks until something is queued or the pool closes.
func (p *WorkerPool) waitForWork() {
	p.mu.Lock()
	for p.queued == 0 && p.running.Load() {
		p.wake.Wait()
	}
	p.mu.Unlock()
}

// Submit queues work items on the given priority level and wakes workers.
// Levels outside [0, Levels()) are clamped. Either all items are queued or
// none are.
func (p *WorkerPool) Submit(level int, work ...func()) error {
	if len(work) == 0 {
		return nil
	}
	level = p.clampLevel(level)

	p.mu.Lock()
	if !p.running.Load() {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if p.maxQueued > 0 && p.queued+len(work) > p.maxQueued {
		p.mu.Unlock()
		return ErrQueueFull
	}
	for _, fn := range work {
		if fn != nil {
			p.levels[level].push(fn)
			p.queued++
		}
	}
	p.mu.Unlock()

	if len(work) > 1 {
		p.wake.Broadcast()
	} else {
		p.wake.Signal()
	}
	return nil
}

// ExecuteOne runs one ready item from the given level on the calling
// goroutine. It never blocks waiting for work: it returns false when the
// level is empty or the pool is closed.
func (p *WorkerPool) ExecuteOne(level int) bool {
	if level < 0 || level >= len(p.levels) {
		return false
	}

	p.mu.Lock()
	if !p.running.Load() {
		p.mu.Unlock()
		return false
	}
	work, ok := p.levels[level].pop()
	if ok {
		p.queued--
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	work()
	p.executed.Add(1)
	return true
}

// Close stops the pool. Items already running finish; items still queued
// are discarded. Close waits for all workers to exit and is safe to call
// multiple times. It must not be called from inside a work item.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	for i := range p.levels {
		p.levels[i].reset()
	}
	p.queued = 0
	p.mu.Unlock()

	p.wake.Broadcast()
	p.wg.Wait()
}

func (p *WorkerPool) clampLevel(level int) int {
	return min(max(level, 0), len(p.levels)-1)
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// Levels returns the number of priority levels.
func (p *WorkerPool) Levels() int {
	return len(p.levels)
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the number of items waiting across all levels.
func (p *WorkerPool) QueuedWork() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queued
}

// QueuedAt returns the number of items waiting on one level.
func (p *WorkerPool) QueuedAt(level int) int {
	if level < 0 || level >= len(p.levels) {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levels[level].len()
}

// Executed returns the number of items run so far.
func (p *WorkerPool) Executed() int64 {
	return p.executed.Load()
}
