package overbroth

import (
	"errors"
	"math"
	"testing"
)

func TestNewViewport(t *testing.T) {
	vp, err := NewViewport(-0.5, 0, 3, 300, 200)
	if err != nil {
		t.Fatalf("NewViewport() = %v", err)
	}
	if vp.X1 != -2 || vp.X2 != 1 {
		t.Errorf("real range = [%v, %v], want [-2, 1]", vp.X1, vp.X2)
	}
	if vp.Y1 != -1 || vp.Y2 != 1 {
		t.Errorf("imag range = [%v, %v], want [-1, 1]", vp.Y1, vp.Y2)
	}

	re, im := vp.PixelToPlane(0, 0)
	if re != -2 || im != -1 {
		t.Errorf("PixelToPlane(0, 0) = (%v, %v), want (-2, -1)", re, im)
	}
	re, im = vp.PixelToPlane(150, 100)
	if math.Abs(re+0.5) > 1e-12 || math.Abs(im) > 1e-12 {
		t.Errorf("PixelToPlane(150, 100) = (%v, %v), want (-0.5, 0)", re, im)
	}
}

func TestNewViewport_ZeroWidth(t *testing.T) {
	vp, err := NewViewport(2.5, 2.5, 0, 2, 2)
	if err != nil {
		t.Fatalf("NewViewport() = %v", err)
	}
	for y := range 2 {
		for x := range 2 {
			re, im := vp.PixelToPlane(x, y)
			if re != 2.5 || im != 2.5 {
				t.Errorf("PixelToPlane(%d, %d) = (%v, %v), want (2.5, 2.5)", x, y, re, im)
			}
		}
	}
}

func TestNewViewport_Invalid(t *testing.T) {
	tests := []struct {
		name          string
		re, im, w     float64
		width, height int
	}{
		{"negative width", 0, 0, -1, 10, 10},
		{"nan center", math.NaN(), 0, 1, 10, 10},
		{"inf width", 0, 0, math.Inf(1), 10, 10},
		{"empty canvas", 0, 0, 1, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewViewport(tt.re, tt.im, tt.w, tt.width, tt.height)
			if !errors.Is(err, ErrInvalidViewport) {
				t.Errorf("NewViewport() error = %v, want ErrInvalidViewport", err)
			}
		})
	}

	if _, err := NewViewportRect(1, 0, 0, 1, 4, 4); !errors.Is(err, ErrInvalidViewport) {
		t.Errorf("inverted rect error = %v, want ErrInvalidViewport", err)
	}
}
