// Package filters implements the separable image filters the estimators are
// built from: Gaussian smoothing, finite-difference gradients, uniform
// (box) and minimum filters, the Farid derivative operator and Gabor energy.
//
// Every filter returns a new image and leaves its input untouched. Borders
// are handled by half-sample symmetric reflection (d c b a | a b c d | d c b a)
// so that a row of length n behaves as if mirrored about its outer edges.
package filters

import (
	"math"

	"github.com/ironsheep/pellet-mcp/internal/imaging"
)

// Axis selects the direction a one-dimensional filter runs along.
type Axis int

const (
	// AxisX runs along rows (varying x).
	AxisX Axis = iota
	// AxisY runs along columns (varying y).
	AxisY
)

// reflect maps any index onto [0, n) by half-sample symmetric reflection.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// correlate1D computes out[i] = sum_j w[j] * src[i+j-center] along axis.
func correlate1D(src *imaging.Gray, w []float64, center int, axis Axis) *imaging.Gray {
	out := imaging.NewGray(src.Width, src.Height)
	n := src.Width
	if axis == AxisY {
		n = src.Height
	}
	line := make([]float64, n)

	for l := 0; l < lineCount(src, axis); l++ {
		readLine(src, axis, l, line)
		for i := 0; i < n; i++ {
			var s float64
			for j, wj := range w {
				s += wj * line[reflect(i+j-center, n)]
			}
			writeAt(out, axis, l, i, s)
		}
	}
	return out
}

// convolve1D flips w and correlates, matching true convolution for odd-length
// kernels.
func convolve1D(src *imaging.Gray, w []float64, axis Axis) *imaging.Gray {
	flipped := make([]float64, len(w))
	for i, v := range w {
		flipped[len(w)-1-i] = v
	}
	return correlate1D(src, flipped, len(w)/2, axis)
}

func lineCount(g *imaging.Gray, axis Axis) int {
	if axis == AxisX {
		return g.Height
	}
	return g.Width
}

func readLine(g *imaging.Gray, axis Axis, l int, dst []float64) {
	if axis == AxisX {
		copy(dst, g.Pix[l*g.Width:(l+1)*g.Width])
		return
	}
	for y := range dst {
		dst[y] = g.Pix[y*g.Width+l]
	}
}

func writeAt(g *imaging.Gray, axis Axis, l, i int, v float64) {
	if axis == AxisX {
		g.Pix[l*g.Width+i] = v
		return
	}
	g.Pix[i*g.Width+l] = v
}

// GaussianKernel returns normalized Gaussian weights truncated at
// truncate standard deviations.
func GaussianKernel(sigma, truncate float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	w := make([]float64, 2*radius+1)
	var sum float64
	for i := range w {
		x := float64(i - radius)
		w[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// Gaussian smooths g with an isotropic Gaussian of the given sigma, truncated
// at four standard deviations. A non-positive sigma returns a copy.
func Gaussian(g *imaging.Gray, sigma float64) *imaging.Gray {
	if sigma <= 0 {
		return g.Clone()
	}
	w := GaussianKernel(sigma, 4.0)
	c := len(w) / 2
	return correlate1D(correlate1D(g, w, c, AxisX), w, c, AxisY)
}

// Gradient returns the derivatives along x and y using central differences
// in the interior and one-sided differences on the borders.
func Gradient(g *imaging.Gray) (dx, dy *imaging.Gray) {
	dx = imaging.NewGray(g.Width, g.Height)
	dy = imaging.NewGray(g.Width, g.Height)

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			dx.Set(x, y, diff(g.Width, x, func(i int) float64 { return g.At(i, y) }))
			dy.Set(x, y, diff(g.Height, y, func(i int) float64 { return g.At(x, i) }))
		}
	}
	return dx, dy
}

func diff(n, i int, at func(int) float64) float64 {
	switch {
	case n < 2:
		return 0
	case i == 0:
		return at(1) - at(0)
	case i == n-1:
		return at(n-1) - at(n-2)
	default:
		return (at(i+1) - at(i-1)) / 2
	}
}

// Uniform returns the mean over a size x size window. For even sizes the
// window extends one sample further towards lower indices.
func Uniform(g *imaging.Gray, size int) *imaging.Gray {
	if size <= 1 {
		return g.Clone()
	}
	w := make([]float64, size)
	for i := range w {
		w[i] = 1 / float64(size)
	}
	c := size / 2
	return correlate1D(correlate1D(g, w, c, AxisX), w, c, AxisY)
}

// LocalVariance returns mean(g^2) - mean(g)^2 over a size x size window.
func LocalVariance(g *imaging.Gray, size int) *imaging.Gray {
	sq := imaging.NewGray(g.Width, g.Height)
	for i, v := range g.Pix {
		sq.Pix[i] = v * v
	}
	meanSq := Uniform(sq, size)
	mean := Uniform(g, size)
	out := imaging.NewGray(g.Width, g.Height)
	for i := range out.Pix {
		out.Pix[i] = meanSq.Pix[i] - mean.Pix[i]*mean.Pix[i]
	}
	return out
}

// Minimum returns the smallest sample in a size x size window, using the same
// window placement as Uniform.
func Minimum(g *imaging.Gray, size int) *imaging.Gray {
	if size <= 1 {
		return g.Clone()
	}
	return minimum1D(minimum1D(g, size, AxisX), size, AxisY)
}

func minimum1D(src *imaging.Gray, size int, axis Axis) *imaging.Gray {
	out := imaging.NewGray(src.Width, src.Height)
	n := src.Width
	if axis == AxisY {
		n = src.Height
	}
	line := make([]float64, n)
	c := size / 2

	for l := 0; l < lineCount(src, axis); l++ {
		readLine(src, axis, l, line)
		for i := 0; i < n; i++ {
			m := math.Inf(1)
			for j := 0; j < size; j++ {
				if v := line[reflect(i+j-c, n)]; v < m {
					m = v
				}
			}
			writeAt(out, axis, l, i, m)
		}
	}
	return out
}
