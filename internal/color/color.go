// Package color provides the HSV conversions used by the overbroth color mapper.
package color

import "math"

// HSVToRGB converts a hue in degrees and saturation/value in [0,1] to 8-bit
// RGB using the classic six 60° sectors.
//
// Hues outside [0, 360) are wrapped. Channels are quantized by truncation
// (255*x), which keeps the mapping bit-for-bit stable across platforms.
func HSVToRGB(h, s, v float64) (r, g, b uint8) {
	if s <= 0 {
		gray := quantize(v)
		return gray, gray, gray
	}

	hh := WrapHue(h) / 60
	sector := int(hh)
	ff := hh - float64(sector)

	p := v * (1 - s)
	q := v * (1 - s*ff)
	t := v * (1 - s*(1-ff))

	switch sector {
	case 0:
		return quantize(v), quantize(t), quantize(p)
	case 1:
		return quantize(q), quantize(v), quantize(p)
	case 2:
		return quantize(p), quantize(v), quantize(t)
	case 3:
		return quantize(p), quantize(q), quantize(v)
	case 4:
		return quantize(t), quantize(p), quantize(v)
	default:
		return quantize(v), quantize(p), quantize(q)
	}
}

// WrapHue maps h into [0, 360). Non-finite input yields 0.
func WrapHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	// math.Mod of a tiny negative value can round back up to 360.
	if h >= 360 {
		h = 0
	}
	return h
}

// quantize clamps a component to [0,1] and truncates it to uint8.
func quantize(x float64) uint8 {
	if x <= 0 || math.IsNaN(x) {
		return 0
	}
	if x >= 1 {
		return 255
	}
	return uint8(255 * x)
}
