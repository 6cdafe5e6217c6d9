// Package overbroth renders the Mandelbrot set by progressive refinement.
//
// # Overview
//
// A render starts from the whole canvas at a small iteration budget and
// splits it into blocks. Blocks whose pixels all escape within the budget
// are final immediately; the rest are painted with a placeholder and
// resubmitted at twice the budget on a lower-priority queue level. Cheap
// regions therefore finish first and the picture sharpens over time, while
// every pixel ends up exactly as a single pass at the full budget would
// have colored it.
//
// # Quick Start
//
//	import "github.com/gogpu/overbroth"
//
//	r, err := overbroth.NewRenderer(overbroth.DefaultConfig(),
//	    overbroth.WithFrameSink(&overbroth.FileSink{Dir: "frames"}),
//	    overbroth.WithFrameInterval(250*time.Millisecond),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stats, err := r.Render(ctx)
//
// # Architecture
//
// The package is organized into:
//   - Public API: Renderer, Config, Canvas, Viewport, FrameSink, FileSink
//   - Engine: the decomposition step, DoArea, Policy, Tracker
//   - Internal: parallel (priority worker pool, dirty tiles), color (HSV)
//
// # Concurrency
//
// Workers write disjoint canvas blocks without locks. Preview frames read
// the canvas while workers write, so they may mix two generations of a
// block; the final frame is taken only after every work item finished.
//
// # Coordinate System
//
// Pixel (0,0) is the top-left corner and maps to the smallest real and
// imaginary parts of the viewport. X grows with the real part, Y with the
// imaginary part.
package overbroth

// Version information
const (
	// Version is the current version of the module
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
