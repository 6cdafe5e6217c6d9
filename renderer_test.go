package overbroth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/overbroth/internal/parallel"
)

// =============================================================================
// Config Tests
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"zero width", func(c *Config) { c.Width = 0 }, true},
		{"negative height", func(c *Config) { c.Height = -1 }, true},
		{"zero target", func(c *Config) { c.Target = 0 }, true},
		{"negative workers", func(c *Config) { c.Workers = -2 }, true},
		{"auto workers", func(c *Config) { c.Workers = 0 }, false},
		{"single pixel", func(c *Config) { c.Width, c.Height = 1, 1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNewRenderer_Invalid(t *testing.T) {
	cfg := smallConfig(8, 8)
	cfg.PlaneWidth = -1
	if _, err := NewRenderer(cfg); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("NewRenderer(negative plane width) error = %v, want ErrInvalidViewport", err)
	}

	_, err := NewRenderer(smallConfig(8, 8), WithPolicy(Policy{InitialBudget: 0, MaxPriority: 3}))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewRenderer(bad policy) error = %v, want ErrInvalidConfig", err)
	}
}

// =============================================================================
// Render Tests
// =============================================================================

func smallConfig(w, h int) Config {
	return Config{
		Width:      w,
		Height:     h,
		CenterRe:   -0.5,
		CenterIm:   0,
		PlaneWidth: 3,
		Target:     200,
		Workers:    4,
	}
}

func TestRender_MatchesSinglePass(t *testing.T) {
	cfg := smallConfig(37, 23)
	rd, err := NewRenderer(cfg, WithPolicy(Policy{InitialBudget: 8, MaxPriority: 15}))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	stats, err := rd.Render(context.Background())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	ref := NewCanvas(cfg.Width, cfg.Height)
	DoArea(ref, rd.Viewport(), ref.Bounds(), cfg.Target, cfg.Target)
	for y := range cfg.Height {
		for x := range cfg.Width {
			if got, want := rd.Canvas().GetPixel(x, y), ref.GetPixel(x, y); got != want {
				t.Fatalf("pixel (%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}

	if !rd.Tracker().Quiescent() || rd.Tracker().Active() != 0 {
		t.Errorf("tracker active = %d after Render", rd.Tracker().Active())
	}
	if stats.Submitted != rd.Tracker().Submitted() {
		t.Errorf("Stats.Submitted = %d, tracker = %d", stats.Submitted, rd.Tracker().Submitted())
	}
	if stats.Refinements == 0 {
		t.Error("expected at least one refinement at budget 8 of 200")
	}
	if stats.Executed != stats.Submitted {
		t.Errorf("Stats.Executed = %d, want Submitted = %d", stats.Executed, stats.Submitted)
	}
	if stats.Workers != 4 {
		t.Errorf("Stats.Workers = %d, want 4", stats.Workers)
	}
	if stats.Frames != 0 {
		t.Errorf("Stats.Frames = %d without a sink, want 0", stats.Frames)
	}
}

func TestRender_SingleLeaf(t *testing.T) {
	// A canvas below the leaf size is one item evaluated at the target.
	cfg := Config{Width: 2, Height: 2, CenterRe: 2.5, CenterIm: 2.5, Target: 64, Workers: 2}
	rd, err := NewRenderer(cfg)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	stats, err := rd.Render(context.Background())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.Submitted != 1 || stats.Refinements != 0 {
		t.Errorf("Submitted = %d, Refinements = %d, want 1, 0", stats.Submitted, stats.Refinements)
	}
	assertFilled(t, rd.Canvas(), rd.Canvas().Bounds(), MapColor(1, 64, 6.25, 6.25))
}

func TestRender_InSetResolvesAtTarget(t *testing.T) {
	// With the first pass already at the target, the root splits once and
	// its four children resolve to black without refinement.
	cfg := Config{Width: 16, Height: 16, PlaneWidth: 0.1, Target: 64, Workers: 3}
	rd, err := NewRenderer(cfg)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	stats, err := rd.Render(context.Background())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.Submitted != 5 {
		t.Errorf("Submitted = %d, want 5", stats.Submitted)
	}
	if stats.Refinements != 0 {
		t.Errorf("Refinements = %d, want 0", stats.Refinements)
	}
	assertFilled(t, rd.Canvas(), rd.Canvas().Bounds(), Black)
}

func TestRender_OnlyOnce(t *testing.T) {
	rd, err := NewRenderer(smallConfig(4, 4))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if _, err := rd.Render(context.Background()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if _, err := rd.Render(context.Background()); !errors.Is(err, ErrRenderStarted) {
		t.Errorf("second Render() error = %v, want ErrRenderStarted", err)
	}
}

func TestRender_Canceled(t *testing.T) {
	// Deep in the set with a huge target: far too slow to finish.
	cfg := Config{Width: 512, Height: 512, PlaneWidth: 0.1, Target: 1 << 20, Workers: 2}
	rd, err := NewRenderer(cfg)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = rd.Render(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Render() error = %v, want context.DeadlineExceeded", err)
	}
	if _, err := rd.Snapshot(ReadFinal); !errors.Is(err, ErrNotQuiescent) {
		t.Errorf("Snapshot(ReadFinal) error = %v, want ErrNotQuiescent", err)
	}
	if _, err := rd.Snapshot(ReadBestEffort); err != nil {
		t.Errorf("Snapshot(ReadBestEffort) error = %v", err)
	}
}

func TestRender_QueueFullIsFatal(t *testing.T) {
	// The root fits the queue bound but its four children never do.
	rd, err := NewRenderer(smallConfig(16, 16), WithMaxQueued(1), WithSubmitRetries(0))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	_, err = rd.Render(context.Background())
	if !errors.Is(err, ErrSubmitFailed) || !errors.Is(err, parallel.ErrQueueFull) {
		t.Fatalf("Render() error = %v, want ErrSubmitFailed wrapping ErrQueueFull", err)
	}
}

func TestRender_BoundedQueueCompletes(t *testing.T) {
	// A lone worker that finds the queue full runs queued work itself
	// until its successors fit.
	for _, maxQueued := range []int{4, 6, 8, 16} {
		t.Run(fmt.Sprintf("max%d", maxQueued), func(t *testing.T) {
			cfg := smallConfig(64, 64)
			cfg.Workers = 1
			cfg.Target = 2000
			rd, err := NewRenderer(cfg,
				WithPolicy(Policy{InitialBudget: 8, MaxPriority: 15}),
				WithMaxQueued(maxQueued))
			if err != nil {
				t.Fatalf("NewRenderer() error = %v", err)
			}

			stats, err := rd.Render(context.Background())
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if rd.Tracker().Active() != 0 {
				t.Errorf("Active() = %d, want 0", rd.Tracker().Active())
			}
			if stats.Executed != stats.Submitted {
				t.Errorf("Executed = %d, Submitted = %d", stats.Executed, stats.Submitted)
			}

			ref := NewCanvas(cfg.Width, cfg.Height)
			DoArea(ref, rd.Viewport(), ref.Bounds(), cfg.Target, cfg.Target)
			if !bytes.Equal(rd.Canvas().Data(), ref.Data()) {
				t.Error("bounded-queue render differs from a single pass at the target")
			}
		})
	}
}

func TestRender_BoundedQueueTooSmall(t *testing.T) {
	// A split needs four slots; with three the queue can never take it,
	// and retries end in a fatal error rather than a hang.
	rd, err := NewRenderer(smallConfig(16, 16), WithMaxQueued(3), WithSubmitRetries(2))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if _, err := rd.Render(context.Background()); !errors.Is(err, ErrSubmitFailed) {
		t.Errorf("Render() error = %v, want ErrSubmitFailed", err)
	}
}

func TestRenderer_SnapshotBeforeRender(t *testing.T) {
	rd, err := NewRenderer(smallConfig(4, 4))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if _, err := rd.Snapshot(ReadFinal); !errors.Is(err, ErrNotQuiescent) {
		t.Errorf("Snapshot(ReadFinal) error = %v, want ErrNotQuiescent", err)
	}
}

// =============================================================================
// Frame Tests
// =============================================================================

type recordingSink struct {
	mu      sync.Mutex
	indexes []int
	last    image.Image
	err     error
}

func (s *recordingSink) WriteFrame(index int, img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes = append(s.indexes, index)
	s.last = img
	return s.err
}

func TestRender_FinalFrame(t *testing.T) {
	sink := &recordingSink{}
	rd, err := NewRenderer(smallConfig(20, 12), WithFrameSink(sink))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	stats, err := rd.Render(context.Background())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.Frames != 1 || len(sink.indexes) != 1 || sink.indexes[0] != 0 {
		t.Fatalf("frames = %d, indexes = %v, want one frame with index 0", stats.Frames, sink.indexes)
	}

	final, ok := sink.last.(*Canvas)
	if !ok {
		t.Fatalf("final frame type = %T, want *Canvas", sink.last)
	}
	if final == rd.Canvas() {
		t.Error("final frame should be a copy of the canvas")
	}
	for y := range 12 {
		for x := range 20 {
			if final.GetPixel(x, y) != rd.Canvas().GetPixel(x, y) {
				t.Fatalf("final frame differs from canvas at (%d, %d)", x, y)
			}
		}
	}
}

func TestRender_FinalFrameError(t *testing.T) {
	errDisk := errors.New("disk full")
	rd, err := NewRenderer(smallConfig(8, 8), WithFrameSink(&recordingSink{err: errDisk}))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if _, err := rd.Render(context.Background()); !errors.Is(err, errDisk) {
		t.Errorf("Render() error = %v, want %v", err, errDisk)
	}
}

func TestRenderer_WritePreview(t *testing.T) {
	sink := &recordingSink{}
	rd, err := NewRenderer(smallConfig(100, 70), WithFrameSink(sink), WithSkipUnchanged(true))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	rd.writePreview()
	if len(sink.indexes) != 0 {
		t.Fatalf("unchanged canvas wrote %d frames, want 0", len(sink.indexes))
	}

	rd.Canvas().Fill(image.Rect(70, 10, 90, 20), RGB{R: 255})
	rd.writePreview()
	rd.writePreview()
	if len(sink.indexes) != 1 || sink.indexes[0] != 0 {
		t.Fatalf("indexes = %v, want [0]", sink.indexes)
	}

	rd.Canvas().Fill(image.Rect(0, 0, 1, 1), RGB{G: 255})
	rd.writePreview()
	if len(sink.indexes) != 2 || sink.indexes[1] != 1 {
		t.Errorf("indexes = %v, want [0 1]", sink.indexes)
	}
}

func TestRenderer_WritePreviewNoSkip(t *testing.T) {
	sink := &recordingSink{}
	rd, err := NewRenderer(smallConfig(8, 8), WithFrameSink(sink))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	rd.writePreview()
	rd.writePreview()
	if len(sink.indexes) != 2 {
		t.Errorf("wrote %d frames, want 2", len(sink.indexes))
	}
}

// =============================================================================
// WorkItem Tests
// =============================================================================

func TestWorkItem_Recycle(t *testing.T) {
	it := newWorkItem(image.Rect(1, 2, 3, 4), 8, 64, 2, KindArea)
	if it.Rect != image.Rect(1, 2, 3, 4) || it.Cur != 8 || it.Target != 64 || it.Priority != 2 || it.Kind != KindArea {
		t.Fatalf("newWorkItem() = %+v", *it)
	}
	if !it.IsLeaf() {
		t.Error("2x2 item should be a leaf")
	}
	releaseWorkItem(it)
	if *it != (WorkItem{}) {
		t.Errorf("released item = %+v, want zero", *it)
	}
	releaseWorkItem(nil)
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{KindSplit, "split"},
		{KindArea, "area"},
		{Kind(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}
