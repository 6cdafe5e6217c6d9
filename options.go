package overbroth

import "time"

// DefaultSubmitRetries is how many times a submission rejected by a full
// scheduler queue is retried before the run fails.
const DefaultSubmitRetries = 8

// Option configures a Renderer during creation.
// Use functional options to customize Renderer behavior.
//
// Example:
//
//	r, err := overbroth.NewRenderer(overbroth.DefaultConfig(),
//	    overbroth.WithFrameSink(&overbroth.FileSink{Dir: "frames"}),
//	    overbroth.WithFrameInterval(100*time.Millisecond),
//	)
type Option func(*rendererOptions)

// rendererOptions holds optional configuration for Renderer creation.
type rendererOptions struct {
	sink          FrameSink
	interval      time.Duration
	skipUnchanged bool
	policy        Policy
	maxQueued     int
	retries       int
}

// defaultOptions returns the default renderer options.
func defaultOptions() rendererOptions {
	return rendererOptions{
		policy:  DefaultPolicy(),
		retries: DefaultSubmitRetries,
	}
}

// WithFrameSink sets where frames are written. Without a sink the render
// only fills the canvas, which remains available via Renderer.Canvas.
func WithFrameSink(s FrameSink) Option {
	return func(o *rendererOptions) {
		o.sink = s
	}
}

// WithFrameInterval enables periodic preview frames. Zero or negative
// disables them; the final frame is always written when a sink is set.
func WithFrameInterval(d time.Duration) Option {
	return func(o *rendererOptions) {
		o.interval = max(d, 0)
	}
}

// WithSkipUnchanged drops preview frames when no pixel block was written
// since the previous frame.
func WithSkipUnchanged(skip bool) Option {
	return func(o *rendererOptions) {
		o.skipUnchanged = skip
	}
}

// WithPolicy overrides the refinement policy.
func WithPolicy(p Policy) Option {
	return func(o *rendererOptions) {
		o.policy = p
	}
}

// WithMaxQueued bounds the scheduler's ready queue. Zero means unbounded.
func WithMaxQueued(n int) Option {
	return func(o *rendererOptions) {
		o.maxQueued = max(n, 0)
	}
}

// WithSubmitRetries sets how often a submission rejected by a full queue is
// retried, with exponential backoff, before the run fails.
func WithSubmitRetries(n int) Option {
	return func(o *rendererOptions) {
		o.retries = max(n, 0)
	}
}
