package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

// ErrShapeMismatch is returned when an image or mask does not have the
// dimensions an operation requires.
var ErrShapeMismatch = errors.New("shape mismatch")

// Luminance weights applied to gamma-encoded RGB when converting colour
// photographs to grayscale.
const (
	lumaR = 0.2125
	lumaG = 0.7154
	lumaB = 0.0721
)

// Gray is a single-channel floating point image with samples in [0, 1].
//
// Pixels are stored row-major: the sample at (x, y) lives at Pix[y*Width+x].
// Operations in this module never modify a Gray they receive; anything that
// needs to smooth or rotate works on a Clone.
type Gray struct {
	Width  int
	Height int
	Pix    []float64
}

// NewGray allocates a zero-valued image.
func NewGray(width, height int) *Gray {
	return &Gray{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// GrayFromRows builds an image from a slice of equally sized rows.
func GrayFromRows(rows [][]float64) (*Gray, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrShapeMismatch)
	}
	g := NewGray(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != g.Width {
			return nil, fmt.Errorf("%w: row %d has %d samples, want %d", ErrShapeMismatch, y, len(row), g.Width)
		}
		copy(g.Pix[y*g.Width:], row)
	}
	return g, nil
}

// At returns the sample at (x, y).
func (g *Gray) At(x, y int) float64 {
	return g.Pix[y*g.Width+x]
}

// Set stores v at (x, y).
func (g *Gray) Set(x, y int, v float64) {
	g.Pix[y*g.Width+x] = v
}

// Clone returns a deep copy.
func (g *Gray) Clone() *Gray {
	c := NewGray(g.Width, g.Height)
	copy(c.Pix, g.Pix)
	return c
}

// Row returns a copy of row y.
func (g *Gray) Row(y int) []float64 {
	row := make([]float64, g.Width)
	copy(row, g.Pix[y*g.Width:(y+1)*g.Width])
	return row
}

// Col returns a copy of column x.
func (g *Gray) Col(x int) []float64 {
	col := make([]float64, g.Height)
	for y := range col {
		col[y] = g.Pix[y*g.Width+x]
	}
	return col
}

// Transpose returns a new image with rows and columns swapped.
func (g *Gray) Transpose() *Gray {
	t := NewGray(g.Height, g.Width)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			t.Pix[x*t.Width+y] = g.Pix[y*g.Width+x]
		}
	}
	return t
}

// Validate reports ErrShapeMismatch for empty or inconsistent images.
func (g *Gray) Validate() error {
	if g == nil || g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: image has no pixels", ErrShapeMismatch)
	}
	if len(g.Pix) != g.Width*g.Height {
		return fmt.Errorf("%w: %d samples for %dx%d image", ErrShapeMismatch, len(g.Pix), g.Width, g.Height)
	}
	return nil
}

// Max returns the largest sample.
func (g *Gray) Max() float64 {
	m := math.Inf(-1)
	for _, v := range g.Pix {
		if v > m {
			m = v
		}
	}
	return m
}

// FromImage converts a decoded image into a Gray.
//
// Grayscale sources are copied directly. Colour sources are converted once,
// here, using the 0.2125/0.7154/0.0721 luminance weights; no other function in
// the module accepts colour input.
func FromImage(img image.Image) *Gray {
	bounds := img.Bounds()
	g := NewGray(bounds.Dx(), bounds.Dy())

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				g.Pix[y*g.Width+x] = float64(src.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y) / 255.0
			}
		}
	case *image.Gray16:
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				g.Pix[y*g.Width+x] = float64(src.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y) / 65535.0
			}
		}
	default:
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				r, gg, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				v := lumaR*float64(r) + lumaG*float64(gg) + lumaB*float64(b)
				g.Pix[y*g.Width+x] = v / 65535.0
			}
		}
	}
	return g
}

// ToImage renders the samples as a 16-bit grayscale image, clamping to [0, 1].
func (g *Gray) ToImage() *image.Gray16 {
	out := image.NewGray16(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := math.Max(0, math.Min(1, g.Pix[y*g.Width+x]))
			out.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(v * 65535))})
		}
	}
	return out
}

// Mask is a binary image with the same layout as Gray.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask allocates an all-background mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// At reports whether (x, y) is foreground.
func (m *Mask) At(x, y int) bool {
	return m.Pix[y*m.Width+x]
}

// Set marks (x, y).
func (m *Mask) Set(x, y int, v bool) {
	m.Pix[y*m.Width+x] = v
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	c := NewMask(m.Width, m.Height)
	copy(c.Pix, m.Pix)
	return c
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Equal reports whether both masks have the same shape and pixels.
func (m *Mask) Equal(o *Mask) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	for i, v := range m.Pix {
		if o.Pix[i] != v {
			return false
		}
	}
	return true
}

// MaskFromImage thresholds a label image at half intensity.
func MaskFromImage(img image.Image) *Mask {
	g := FromImage(img)
	m := NewMask(g.Width, g.Height)
	for i, v := range g.Pix {
		m.Pix[i] = v >= 0.5
	}
	return m
}

// ToImage renders foreground as white and background as black.
func (m *Mask) ToImage() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v {
			out.Pix[i] = 255
		}
	}
	return out
}
