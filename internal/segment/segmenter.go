// Package segment separates a pellet from the ruled paper behind it.
//
// Both strategies turn the image into a texture map in which the regular
// grid responds strongly and the featureless pellet does not, threshold that
// map, and clean the result with binary morphology:
//
//   - EdgeBlur: local variance of the Farid edge magnitude, eroded with a
//     minimum filter.
//   - FourierGabor: summed Gabor magnitudes tuned to the grid pitch found by
//     the scale estimator.
//
// Foreground is every pixel whose texture value lies strictly below the
// threshold.
package segment

import (
	"fmt"

	"github.com/ironsheep/pellet-mcp/internal/imaging"
	"github.com/ironsheep/pellet-mcp/internal/measure"
)

// Segmenter produces a foreground mask with the same shape as the image.
type Segmenter interface {
	Segment(img *imaging.Gray, scale measure.ScaleEstimate) (*imaging.Mask, error)
}

// Strategy names a segmenter implementation.
type Strategy string

const (
	StrategyEdgeBlur     Strategy = "edge_blur"
	StrategyFourierGabor Strategy = "fourier_gabor"
)

// ThresholdMethod names a rule that turns a texture map into a threshold.
type ThresholdMethod string

const (
	RuleKMeans   ThresholdMethod = "kmeans"
	RuleIsodata  ThresholdMethod = "isodata"
	RuleTriangle ThresholdMethod = "triangle"
)

// New returns the default segmenter for a strategy.
func New(strategy Strategy) (Segmenter, error) {
	switch strategy {
	case "", StrategyEdgeBlur:
		return NewEdgeBlur(), nil
	case StrategyFourierGabor:
		return NewFourierGabor(), nil
	default:
		return nil, fmt.Errorf("unknown segmentation strategy %q", strategy)
	}
}

// threshold dispatches to the named rule.
func threshold(method ThresholdMethod, values []float64, clusters, bins int) (float64, error) {
	switch method {
	case "", RuleKMeans:
		return ThresholdKMeans(values, clusters)
	case RuleIsodata:
		return ThresholdIsodata(values, bins)
	case RuleTriangle:
		return ThresholdTriangle(values, bins)
	default:
		return 0, fmt.Errorf("unknown threshold method %q", method)
	}
}

// below marks pixels strictly below t.
func below(g *imaging.Gray, t float64) *imaging.Mask {
	m := imaging.NewMask(g.Width, g.Height)
	for i, v := range g.Pix {
		m.Pix[i] = v < t
	}
	return m
}
