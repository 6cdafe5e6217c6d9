package overbroth

import (
	"fmt"
	"math"
)

// Viewport maps canvas pixels onto the complex plane.
//
// The plane rectangle [X1,X2]×[Y1,Y2] covers a Width×Height pixel canvas;
// pixel (x, y) maps to X1 + x*(X2-X1)/Width, Y1 + y*(Y2-Y1)/Height.
// A Viewport is immutable once built and is shared by every work item.
type Viewport struct {
	X1, Y1 float64
	X2, Y2 float64

	Width  int
	Height int

	// precomputed per-pixel steps
	dx, dy float64
}

// NewViewport centers a viewport on (centerRe, centerIm). planeWidth is the
// horizontal extent on the plane; the vertical extent follows the canvas
// aspect ratio so pixels stay square. A zero planeWidth is allowed and maps
// every pixel to the center.
func NewViewport(centerRe, centerIm, planeWidth float64, width, height int) (*Viewport, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrInvalidViewport, width, height)
	}
	for _, v := range []float64{centerRe, centerIm, planeWidth} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value %v", ErrInvalidViewport, v)
		}
	}
	if planeWidth < 0 {
		return nil, fmt.Errorf("%w: negative plane width %v", ErrInvalidViewport, planeWidth)
	}

	halfW := planeWidth / 2
	halfH := planeWidth * float64(height) / float64(width) / 2
	return NewViewportRect(centerRe-halfW, centerIm-halfH, centerRe+halfW, centerIm+halfH, width, height)
}

// NewViewportRect builds a viewport from explicit plane bounds.
func NewViewportRect(x1, y1, x2, y2 float64, width, height int) (*Viewport, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrInvalidViewport, width, height)
	}
	if x2 < x1 || y2 < y1 {
		return nil, fmt.Errorf("%w: inverted plane rectangle", ErrInvalidViewport)
	}
	return &Viewport{
		X1: x1, Y1: y1, X2: x2, Y2: y2,
		Width:  width,
		Height: height,
		dx:     (x2 - x1) / float64(width),
		dy:     (y2 - y1) / float64(height),
	}, nil
}

// PixelToPlane returns the plane coordinate of pixel (x, y).
func (v *Viewport) PixelToPlane(x, y int) (re, im float64) {
	return v.X1 + float64(x)*v.dx, v.Y1 + float64(y)*v.dy
}

// String returns a compact description for logs.
func (v *Viewport) String() string {
	return fmt.Sprintf("[%g,%g]x[%g,%g] @ %dx%d", v.X1, v.X2, v.Y1, v.Y2, v.Width, v.Height)
}
