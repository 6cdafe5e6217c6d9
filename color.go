package overbroth

import (
	"math"

	icolor "github.com/gogpu/overbroth/internal/color"
)

// RGB is an opaque 8-bit color as stored in a Canvas.
type RGB struct {
	R, G, B uint8
}

// RGBA implements the color.Color interface.
func (c RGB) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R) * 0x101
	g = uint32(c.G) * 0x101
	b = uint32(c.B) * 0x101
	return r, g, b, 0xffff
}

// Black is written for pixels that never escape at the full budget.
var Black = RGB{}

// Palette constants. The hue is n/target spread over hueRange degrees plus a
// continuous-escape correction, then stretched and rotated for looks.
const (
	hueRange    = 120.0
	hueScale    = 20.0
	hueOffset   = 0.95
	hueRotation = 240.0
	saturation  = 0.8

	// escapeNorm2 is the squared escape radius.
	escapeNorm2 = 4.0
)

// MapColor converts an escape-time result into a color.
//
// n is the iteration at which the orbit escaped, target the run's full
// budget, and re2/im2 the squared components of z at escape. MapColor is a
// pure function: the same inputs always produce the same color.
func MapColor(n, target int, re2, im2 float64) RGB {
	if target < 1 {
		target = 1
	}
	depth := float64(n) / float64(target)

	hue := depth*hueRange + 1 - smoothing(re2+im2)
	hue = hueOffset + hueScale*hue
	hue = icolor.WrapHue(icolor.WrapHue(hue) + hueRotation)

	r, g, b := icolor.HSVToRGB(hue, saturation, 0.5+0.5*depth)
	return RGB{R: r, G: g, B: b}
}

// Placeholder is the fill for a block that could not be resolved at budget
// cur. It depends only on how far cur is from target, so it reads as a
// heatmap of outstanding work.
func Placeholder(cur, target int) RGB {
	return MapColor(cur, target, escapeNorm2, 0)
}

// smoothing returns log2(ln|z|), the fractional escape count correction.
// It is undefined for |z| <= 1, where it contributes nothing.
func smoothing(norm2 float64) float64 {
	if !(norm2 > 1) {
		return 0
	}
	v := math.Log(math.Log(math.Sqrt(norm2))) / math.Ln2
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
