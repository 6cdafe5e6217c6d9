package overbroth

import "image"

// Outcome is the result of evaluating one block at one budget.
type Outcome uint8

const (
	// Resolved means every pixel of the block holds its final color.
	Resolved Outcome = iota

	// Incomplete means some pixel did not escape below a budget that is
	// still short of the target; the block holds a placeholder fill.
	Incomplete
)

// String returns the outcome name.
func (o Outcome) String() string {
	if o == Resolved {
		return "resolved"
	}
	return "incomplete"
}

// Escape iterates z <- z² + c from z = 0 for c = (cr, ci) while |z| < 2 and
// n < budget. It returns the iteration count reached and the squared
// components of the final z. The orbit escaped iff n < budget.
func Escape(cr, ci float64, budget int) (n int, re2, im2 float64) {
	var re, im float64
	for n = 0; n < budget && re2+im2 < escapeNorm2; n++ {
		im = 2*re*im + ci
		re = re2 - im2 + cr
		re2 = re * re
		im2 = im * im
	}
	return n, re2, im2
}

// DoArea evaluates the pixels of block at budget cur and writes them to c.
//
// Escaped pixels get MapColor(n, target, re², im²). Pixels that survive the
// full target budget are black. If a pixel survives a budget below target,
// evaluation stops, the whole block is filled with Placeholder(cur, target)
// and Incomplete is returned; the caller is expected to revisit it.
func DoArea(c *Canvas, vp *Viewport, block image.Rectangle, cur, target int) Outcome {
	block = block.Intersect(c.Bounds())
	if block.Empty() {
		return Resolved
	}

	stride := c.Stride()
	for y := block.Min.Y; y < block.Max.Y; y++ {
		row := c.data[y*stride : (y+1)*stride]
		for x := block.Min.X; x < block.Max.X; x++ {
			cr, ci := vp.PixelToPlane(x, y)
			n, re2, im2 := Escape(cr, ci, cur)

			var col RGB
			switch {
			case n < cur:
				col = MapColor(n, target, re2, im2)
			case cur >= target:
				col = Black
			default:
				c.Fill(block, Placeholder(cur, target))
				return Incomplete
			}

			i := x * 3
			row[i+0] = col.R
			row[i+1] = col.G
			row[i+2] = col.B
		}
	}

	c.markDirty(block)
	return Resolved
}
