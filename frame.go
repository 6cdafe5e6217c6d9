package overbroth

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FrameSink receives the frames of a render. index starts at 0 and grows by
// one per frame; the final frame has the highest index. img is a private
// copy the sink may keep.
type FrameSink interface {
	WriteFrame(index int, img image.Image) error
}

// FrameSinkFunc adapts a function to the FrameSink interface.
type FrameSinkFunc func(index int, img image.Image) error

// WriteFrame calls f(index, img).
func (f FrameSinkFunc) WriteFrame(index int, img image.Image) error {
	return f(index, img)
}

// Format is an image file format for FileSink.
type Format string

// Supported frame formats.
const (
	FormatPPM Format = "ppm"
	FormatPNG Format = "png"
	FormatBMP Format = "bmp"
)

// ParseFormat returns the Format named by s (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPPM, FormatPNG, FormatBMP:
		return f, nil
	case "":
		return FormatPPM, nil
	default:
		return "", fmt.Errorf("overbroth: unknown frame format %q", s)
	}
}

// EncodePPM writes img as a binary PPM: "P6\n<w> <h>\n255\n" followed by
// row-major RGB triples with no padding.
func EncodePPM(w io.Writer, img image.Image) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n255\n", b.Dx(), b.Dy()); err != nil {
		return err
	}

	if c, ok := img.(*Canvas); ok {
		if _, err := bw.Write(c.Data()); err != nil {
			return err
		}
		return bw.Flush()
	}

	row := make([]byte, b.Dx()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			i := (x - b.Min.X) * 3
			row[i+0] = c.R
			row[i+1] = c.G
			row[i+2] = c.B
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FileSink writes each frame to its own file named <Prefix>-<index>.<ext>,
// with the index zero-padded to five digits.
type FileSink struct {
	// Dir is the output directory; it is created if missing. Empty means
	// the working directory.
	Dir string

	// Prefix starts every file name. Empty means "overbroth".
	Prefix string

	// Format selects the encoder. Empty means PPM.
	Format Format

	// Compress wraps the encoded frame in a zstd stream and appends ".zst".
	Compress bool

	// Scale downsamples frames by this factor in (0, 1]. Zero means 1.
	Scale float64

	// Stamp draws the frame index in the top-left corner.
	Stamp bool
}

// Name returns the file name used for frame index.
func (s *FileSink) Name(index int) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "overbroth"
	}
	format := s.Format
	if format == "" {
		format = FormatPPM
	}
	name := fmt.Sprintf("%s-%05d.%s", prefix, index, format)
	if s.Compress {
		name += ".zst"
	}
	return name
}

// WriteFrame encodes img and atomically places it at Name(index).
func (s *FileSink) WriteFrame(index int, img image.Image) error {
	if s.Scale < 0 || s.Scale > 1 {
		return fmt.Errorf("overbroth: frame scale %v outside (0, 1]", s.Scale)
	}
	img = s.prepare(index, img)

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".frame-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := s.encode(tmp, img); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, s.Name(index)))
}

// encode writes img in the sink's format, through zstd if requested.
func (s *FileSink) encode(w io.Writer, img image.Image) error {
	var zw *zstd.Encoder
	if s.Compress {
		var err error
		zw, err = zstd.NewWriter(w)
		if err != nil {
			return err
		}
		w = zw
	}

	var err error
	switch s.Format {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatPPM, "":
		err = EncodePPM(w, img)
	default:
		err = fmt.Errorf("overbroth: unknown frame format %q", s.Format)
	}

	if zw != nil {
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// prepare applies scaling and the index stamp. Without either it returns
// img unchanged so PPM output keeps its fast path.
func (s *FileSink) prepare(index int, img image.Image) image.Image {
	scale := s.Scale
	if scale == 0 {
		scale = 1
	}
	if scale == 1 && !s.Stamp {
		return img
	}

	var dst *image.RGBA
	if c, ok := img.(*Canvas); ok && scale == 1 {
		dst = c.ToImage()
	} else {
		src := img.Bounds()
		w := max(1, int(float64(src.Dx())*scale))
		h := max(1, int(float64(src.Dy())*scale))
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		if scale == 1 {
			draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
		} else {
			draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
		}
	}

	if s.Stamp {
		stamp(dst, fmt.Sprintf("%05d", index))
	}
	return dst
}

// stamp draws label in white on a black box in the top-left corner.
func stamp(dst draw.Image, label string) {
	face := basicfont.Face7x13
	const pad = 2
	width := font.MeasureString(face, label).Ceil()
	box := image.Rect(0, 0, width+2*pad, face.Height+2*pad).Intersect(dst.Bounds())
	draw.Draw(dst, box, image.Black, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(pad, pad+face.Ascent),
	}
	d.DrawString(label)
}
