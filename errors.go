package overbroth

import "errors"

var (
	// ErrInvalidConfig is returned by NewRenderer for unusable configurations.
	ErrInvalidConfig = errors.New("overbroth: invalid config")

	// ErrInvalidViewport is returned for negative or non-finite plane extents.
	ErrInvalidViewport = errors.New("overbroth: invalid viewport")

	// ErrNotQuiescent is returned when a final read is requested while work
	// items are still outstanding.
	ErrNotQuiescent = errors.New("overbroth: render is not quiescent")

	// ErrSubmitFailed wraps a scheduler error that made the run abandon a
	// split or a refinement.
	ErrSubmitFailed = errors.New("overbroth: work submission failed")
)
