package overbroth

import (
	"image"
	"image/color"

	"github.com/gogpu/overbroth/internal/parallel"
)

// ReadMode selects how a Canvas snapshot relates to in-flight writers.
type ReadMode uint8

const (
	// ReadBestEffort copies the buffer while workers may still be writing.
	// The copy can be torn; it is meant for progressive preview frames only.
	ReadBestEffort ReadMode = iota

	// ReadFinal copies the buffer after the render reached quiescence.
	// Renderer refuses a final read while any work item is outstanding.
	ReadFinal
)

// String returns the mode name.
func (m ReadMode) String() string {
	switch m {
	case ReadBestEffort:
		return "best-effort"
	case ReadFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Canvas is a flat RGB pixel buffer, 3 bytes per pixel, rows packed with
// no padding.
//
// Canvas is written without locks: callers guarantee that concurrent
// writers touch disjoint rectangles. Every block write also marks the
// touched tiles in a DirtyRegion so the frame loop can detect change.
type Canvas struct {
	width  int
	height int
	data   []uint8

	dirty *parallel.DirtyRegion
}

// NewCanvas creates a black canvas with the given dimensions.
func NewCanvas(width, height int) *Canvas {
	width = max(width, 0)
	height = max(height, 0)
	return &Canvas{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*3),
		dirty:  parallel.NewDirtyRegion(width, height),
	}
}

// Width returns the width of the canvas.
func (c *Canvas) Width() int {
	return c.width
}

// Height returns the height of the canvas.
func (c *Canvas) Height() int {
	return c.height
}

// Stride returns the row length in bytes.
func (c *Canvas) Stride() int {
	return c.width * 3
}

// Data returns the raw RGB bytes. The slice aliases the canvas.
func (c *Canvas) Data() []uint8 {
	return c.data
}

// GetPixel returns one pixel, or Black out of bounds.
func (c *Canvas) GetPixel(x, y int) RGB {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return Black
	}
	i := y*c.Stride() + x*3
	return RGB{R: c.data[i+0], G: c.data[i+1], B: c.data[i+2]}
}

// Fill sets every pixel of r (clipped to the canvas) to col.
func (c *Canvas) Fill(r image.Rectangle, col RGB) {
	r = r.Intersect(c.Bounds())
	if r.Empty() {
		return
	}
	stride := c.Stride()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := c.data[y*stride+r.Min.X*3 : y*stride+r.Max.X*3]
		for i := 0; i < len(row); i += 3 {
			row[i+0] = col.R
			row[i+1] = col.G
			row[i+2] = col.B
		}
	}
	c.markDirty(r)
}

// markDirty records that r was written.
func (c *Canvas) markDirty(r image.Rectangle) {
	if c.dirty != nil {
		c.dirty.MarkRect(r)
	}
}

// Changed drains the dirty tracker and reports how many tiles were written
// since the previous call.
func (c *Canvas) Changed() int {
	if c.dirty == nil {
		return 0
	}
	return c.dirty.Drain()
}

// Clone copies the pixels into a new canvas without dirty tracking.
// Use Renderer.Snapshot to read a canvas that is being rendered.
func (c *Canvas) Clone() *Canvas {
	out := &Canvas{
		width:  c.width,
		height: c.height,
		data:   make([]uint8, len(c.data)),
	}
	copy(out.data, c.data)
	return out
}

// ToImage converts the canvas to an image.RGBA.
func (c *Canvas) ToImage() *image.RGBA {
	img := image.NewRGBA(c.Bounds())
	for i, j := 0, 0; i < len(c.data); i, j = i+3, j+4 {
		img.Pix[j+0] = c.data[i+0]
		img.Pix[j+1] = c.data[i+1]
		img.Pix[j+2] = c.data[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// At implements the image.Image interface.
func (c *Canvas) At(x, y int) color.Color {
	p := c.GetPixel(x, y)
	return color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff}
}

// Bounds implements the image.Image interface.
func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.width, c.height)
}

// ColorModel implements the image.Image interface.
func (c *Canvas) ColorModel() color.Model {
	return color.RGBAModel
}
