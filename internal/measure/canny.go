package measure

import (
	"math"

	"github.com/ironsheep/pellet-mcp/internal/filters"
	"github.com/ironsheep/pellet-mcp/internal/imaging"
)

// CannyOptions tunes edge detection. Thresholds apply to the Sobel gradient
// magnitude of an image with samples in [0, 1].
type CannyOptions struct {
	Sigma         float64 `json:"sigma" yaml:"sigma"`
	LowThreshold  float64 `json:"low_threshold" yaml:"low_threshold"`
	HighThreshold float64 `json:"high_threshold" yaml:"high_threshold"`
}

// DefaultCannyOptions returns sigma 1 with thresholds 0.1 and 0.2.
func DefaultCannyOptions() CannyOptions {
	return CannyOptions{Sigma: 1, LowThreshold: 0.1, HighThreshold: 0.2}
}

// Canny returns a one-pixel-wide edge map of img.
//
// # Algorithm
//
//  1. Gaussian blur with opts.Sigma
//
//  2. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx)
//
//  3. Non-maximum suppression: keep only local maxima along the gradient
//     direction, quantised to four neighbours
//
//  4. Hysteresis: pixels at or above HighThreshold seed edges, which grow
//     through 8-connected pixels at or above LowThreshold
//
// The outermost pixel ring is never an edge.
func Canny(img *imaging.Gray, opts CannyOptions) *imaging.Mask {
	width, height := img.Width, img.Height
	blurred := filters.Gaussian(img, opts.Sigma)

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude := make([]float64, width*height)
	direction := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := blurred.At(clamp(x+kx, 0, width-1), clamp(y+ky, 0, height-1))
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y*width+x] = math.Sqrt(gx*gx + gy*gy)
			direction[y*width+x] = math.Atan2(gy, gx)
		}
	}

	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			angle := direction[i]
			mag := magnitude[i]

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = magnitude[i-1], magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude[i-width-1], magnitude[i+width+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude[i-width], magnitude[i+width]
			default:
				n1, n2 = magnitude[i-width+1], magnitude[i+width-1]
			}

			if mag > 0 && mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	edges := imaging.NewMask(width, height)
	queue := make([]int, 0)
	for i, v := range suppressed {
		if v >= opts.HighThreshold && v > 0 {
			edges.Pix[i] = true
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if !edges.Pix[j] && suppressed[j] > 0 && suppressed[j] >= opts.LowThreshold {
					edges.Pix[j] = true
					queue = append(queue, j)
				}
			}
		}
	}
	return edges
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
