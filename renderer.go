package overbroth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/overbroth/internal/parallel"
)

// Submission backoff bounds for a full scheduler queue.
const (
	initialBackoff = time.Millisecond
	maxBackoff     = 100 * time.Millisecond
)

// ErrRenderStarted is returned when Render is called twice on one Renderer.
var ErrRenderStarted = errors.New("overbroth: render already started")

// Config describes one render.
type Config struct {
	// Width and Height are the canvas size in pixels.
	Width, Height int

	// CenterRe and CenterIm locate the viewport center on the plane.
	CenterRe, CenterIm float64

	// PlaneWidth is the horizontal extent of the viewport on the plane.
	PlaneWidth float64

	// Target is the full iteration budget every pixel is resolved to.
	Target int

	// Workers is the number of worker goroutines; 0 uses GOMAXPROCS.
	Workers int
}

// DefaultConfig returns the built-in render: a 1920x1080 view of a
// filament near -1.399 + 0.0019i at 524288 iterations on 8 workers.
func DefaultConfig() Config {
	return Config{
		Width:      1920,
		Height:     1080,
		CenterRe:   -1.398995,
		CenterIm:   0.001901,
		PlaneWidth: 0.0000035 * 1920 / 1080,
		Target:     524288,
		Workers:    8,
	}
}

// Validate reports whether the config can be rendered.
func (c Config) Validate() error {
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("%w: canvas %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Target < 1 {
		return fmt.Errorf("%w: target %d < 1", ErrInvalidConfig, c.Target)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d < 0", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// Stats summarizes a finished (or aborted) render.
type Stats struct {
	Workers     int
	Submitted   int64
	Executed    int64
	Peak        int64
	Refinements int64
	Frames      int
	Elapsed     time.Duration
}

// Renderer renders one viewport to completion with progressive refinement.
//
// A Renderer is single-use: Render may be called once. Canvas and Snapshot
// may be called at any time, including while Render is running.
type Renderer struct {
	cfg     Config
	opts    rendererOptions
	vp      *Viewport
	canvas  *Canvas
	tracker *Tracker

	started atomic.Bool
	frames  atomic.Int64
}

// NewRenderer validates cfg and prepares a black canvas.
func NewRenderer(cfg Config, opts ...Option) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.policy.validate(); err != nil {
		return nil, err
	}

	vp, err := NewViewport(cfg.CenterRe, cfg.CenterIm, cfg.PlaneWidth, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		cfg:     cfg,
		opts:    o,
		vp:      vp,
		canvas:  NewCanvas(cfg.Width, cfg.Height),
		tracker: NewTracker(),
	}, nil
}

// Canvas returns the live canvas. Reading it during Render is unsynchronized.
func (rd *Renderer) Canvas() *Canvas {
	return rd.canvas
}

// Viewport returns the plane mapping of the render.
func (rd *Renderer) Viewport() *Viewport {
	return rd.vp
}

// Tracker returns the progress counters of the render.
func (rd *Renderer) Tracker() *Tracker {
	return rd.tracker
}

// Snapshot copies the canvas. ReadBestEffort never fails but may observe a
// torn frame while workers are writing. ReadFinal fails with
// ErrNotQuiescent until every work item has finished.
func (rd *Renderer) Snapshot(mode ReadMode) (*Canvas, error) {
	if mode == ReadFinal && !rd.tracker.Quiescent() {
		return nil, fmt.Errorf("%w: %d items active", ErrNotQuiescent, rd.tracker.Active())
	}
	return rd.canvas.Clone(), nil
}

// Render runs the render until every region reaches its final state, the
// context is canceled, or a scheduling failure makes completion impossible.
//
// With a frame sink, a preview frame is written every frame interval and a
// final frame after quiescence. On cancellation no final frame is written
// and the canvas keeps its last state.
func (rd *Renderer) Render(ctx context.Context) (Stats, error) {
	if !rd.started.CompareAndSwap(false, true) {
		return Stats{}, ErrRenderStarted
	}

	start := time.Now()
	pool := parallel.NewWorkerPool(rd.cfg.Workers, rd.opts.policy.Levels(),
		parallel.WithMaxQueued(rd.opts.maxQueued))
	r := &run{
		canvas:  rd.canvas,
		vp:      rd.vp,
		tracker: rd.tracker,
		policy:  rd.opts.policy,
		pool:    pool,
		retries: rd.opts.retries,
		failed:  make(chan struct{}),
		log:     rd.logger(),
	}
	stats := func() Stats {
		return Stats{
			Workers:     pool.Workers(),
			Submitted:   rd.tracker.Submitted(),
			Executed:    pool.Executed(),
			Peak:        rd.tracker.Peak(),
			Refinements: r.refinements.Load(),
			Frames:      int(rd.frames.Load()),
			Elapsed:     time.Since(start),
		}
	}

	r.log.Info("render started",
		"center_re", rd.cfg.CenterRe, "center_im", rd.cfg.CenterIm,
		"plane_width", rd.cfg.PlaneWidth, "workers", pool.Workers(),
		"max_refinements", rd.opts.policy.Steps(rd.cfg.Target))

	target := rd.cfg.Target
	root := newWorkItem(rd.canvas.Bounds(), rd.opts.policy.Initial(target), target, 0, KindSplit)
	if err := r.submit(root); err != nil {
		pool.Close()
		return stats(), err
	}

	var tick <-chan time.Time
	if rd.opts.interval > 0 && rd.opts.sink != nil {
		ticker := time.NewTicker(rd.opts.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

wait:
	for {
		select {
		case <-ctx.Done():
			r.stop()
			queued := queueDepths(pool)
			pool.Close()
			r.log.Info("render canceled", "active", rd.tracker.Active(), "queued", queued)
			return stats(), ctx.Err()
		case <-r.failed:
			r.stop()
			queued := queueDepths(pool)
			pool.Close()
			r.log.Error("render failed", "err", r.err, "queued", queued)
			return stats(), r.err
		case <-rd.tracker.Done():
			break wait
		case <-tick:
			rd.writePreview()
		}
	}
	pool.Close()

	// A failed submission leaves its region unresolved even though the
	// remaining work drained.
	select {
	case <-r.failed:
		return stats(), r.err
	default:
	}

	if rd.opts.sink != nil {
		if err := rd.writeFrame(ReadFinal); err != nil {
			return stats(), err
		}
	}

	s := stats()
	r.log.Info("render finished",
		"submitted", s.Submitted, "executed", s.Executed, "peak_active", s.Peak,
		"refinements", s.Refinements, "helped", r.helped.Load(),
		"frames", s.Frames, "elapsed", s.Elapsed)
	return s, nil
}

// writePreview writes a best-effort frame unless nothing changed and the
// renderer was asked to skip such frames. Failures are logged only.
func (rd *Renderer) writePreview() {
	log := rd.logger()
	changed := rd.canvas.Changed()
	if changed == 0 && rd.opts.skipUnchanged {
		log.Debug("preview skipped, canvas unchanged")
		return
	}
	if err := rd.writeFrame(ReadBestEffort); err != nil {
		log.Warn("preview frame failed", "err", err)
		return
	}
	log.Debug("preview frame written", "changed_tiles", changed, "active", rd.tracker.Active())
}

// logger returns the package logger with the render's identifying fields.
func (rd *Renderer) logger() *slog.Logger {
	return Logger().With(
		slog.Group("render",
			"width", rd.cfg.Width,
			"height", rd.cfg.Height,
			"target", rd.cfg.Target,
		),
	)
}

// writeFrame snapshots the canvas in the given mode and hands it to the sink
// under the next frame index.
func (rd *Renderer) writeFrame(mode ReadMode) error {
	snap, err := rd.Snapshot(mode)
	if err != nil {
		return err
	}
	index := int(rd.frames.Add(1) - 1)
	if err := rd.opts.sink.WriteFrame(index, snap); err != nil {
		return fmt.Errorf("overbroth: %s frame %d: %w", mode, index, err)
	}
	return nil
}

// run is the state shared by every work item of one render.
type run struct {
	canvas  *Canvas
	vp      *Viewport
	tracker *Tracker
	policy  Policy
	pool    *parallel.WorkerPool
	retries int
	log     *slog.Logger

	refinements atomic.Int64
	helped      atomic.Int64

	stopping atomic.Bool
	failOnce sync.Once
	failed   chan struct{}
	err      error
}

// execute is the scheduler task body for one item.
func (r *run) execute(it *WorkItem) {
	if err := r.evaluate(it); err != nil {
		r.fail(err)
	}
	releaseWorkItem(it)
	r.tracker.OnFinish()
}

// submit hands items to the scheduler on the priority of the first item.
// The tracker counts them before they become runnable, so the parent is
// still active while they are in flight. While the queue is full the caller
// runs queued items itself; only when there is nothing to run does it back
// off exponentially. Other failures, or exhausting the retries, release the
// items and return an error wrapping ErrSubmitFailed.
func (r *run) submit(items ...*WorkItem) error {
	if len(items) == 0 {
		return nil
	}

	tasks := make([]func(), len(items))
	for i, it := range items {
		tasks[i] = func() { r.execute(it) }
	}
	level := items[0].Priority

	backoff := initialBackoff
	attempt := 0
	for {
		r.tracker.OnSubmit(len(items))
		err := r.pool.Submit(level, tasks...)
		if err == nil {
			return nil
		}
		r.tracker.Cancel(len(items))

		if errors.Is(err, parallel.ErrQueueFull) && !r.stopping.Load() {
			// The caller is often the worker that would drain the queue,
			// so it runs queued work itself before it sleeps.
			if r.help() {
				continue
			}
			if attempt < r.retries {
				attempt++
				r.log.Warn("ready queue full, retrying", "items", len(items), "level", level,
					"attempt", attempt, "backoff", backoff, "queued", r.pool.QueuedWork())
				time.Sleep(backoff)
				backoff = min(backoff*2, maxBackoff)
				continue
			}
		}

		for _, it := range items {
			releaseWorkItem(it)
		}
		if r.stopping.Load() {
			return nil
		}
		return fmt.Errorf("%w: %d item(s) at level %d: %w", ErrSubmitFailed, len(items), level, err)
	}
}

// help runs one queued item on the calling goroutine, scanning levels from
// the highest priority down. It reports whether anything ran.
func (r *run) help() bool {
	if r.stopping.Load() || !r.pool.IsRunning() {
		return false
	}
	for level := range r.pool.Levels() {
		if r.pool.ExecuteOne(level) {
			r.helped.Add(1)
			return true
		}
	}
	return false
}

// queueDepths returns the number of queued items per non-empty level.
func queueDepths(pool *parallel.WorkerPool) map[int]int {
	depths := make(map[int]int)
	for level := range pool.Levels() {
		if n := pool.QueuedAt(level); n > 0 {
			depths[level] = n
		}
	}
	return depths
}

// fail records the first fatal error and signals the driver.
func (r *run) fail(err error) {
	r.failOnce.Do(func() {
		r.err = err
		close(r.failed)
	})
}

// stop makes in-flight items stop retrying submissions.
func (r *run) stop() {
	r.stopping.Store(true)
}
