package segment

import (
	"fmt"

	"github.com/ironsheep/pellet-mcp/internal/filters"
	"github.com/ironsheep/pellet-mcp/internal/imaging"
	"github.com/ironsheep/pellet-mcp/internal/logger"
	"github.com/ironsheep/pellet-mcp/internal/measure"
)

// FourierGabor segments by directional Gabor energy at the grid pitch.
//
// Minimum, Maximum and Median are optional disk radii applied to the energy
// map, in that order, before thresholding; zero skips a filter.
type FourierGabor struct {
	Threshold  ThresholdMethod `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
	Clusters   int             `json:"clusters" yaml:"clusters" mapstructure:"clusters"`
	Bins       int             `json:"bins" yaml:"bins" mapstructure:"bins"`
	Minimum    int             `json:"minimum" yaml:"minimum" mapstructure:"minimum"`
	Maximum    int             `json:"maximum" yaml:"maximum" mapstructure:"maximum"`
	Median     int             `json:"median" yaml:"median" mapstructure:"median"`
	Morphology Morphology      `json:"post_process" yaml:"post_process" mapstructure:"post_process"`
	Logger     logger.Logger   `json:"-" yaml:"-" mapstructure:"-"`
}

// NewFourierGabor returns k-means thresholding into 3 clusters with 6
// openings and 2 dilations.
func NewFourierGabor() *FourierGabor {
	return &FourierGabor{
		Threshold:  RuleKMeans,
		Clusters:   3,
		Bins:       50,
		Morphology: Morphology{Opening: 6, Dilation: 2},
	}
}

// Texture returns the Gabor energy of img tuned to scale, after the optional
// rank filters.
func (s *FourierGabor) Texture(img *imaging.Gray, scale measure.ScaleEstimate) *imaging.Gray {
	energy := filters.GaborEnergy(img, scale.Fx, scale.Fy)
	energy = filters.DiskFilter(energy, s.Minimum, filters.RankMin)
	energy = filters.DiskFilter(energy, s.Maximum, filters.RankMax)
	return filters.DiskFilter(energy, s.Median, filters.RankMedian)
}

// Segment needs a scale with both frequencies positive.
func (s *FourierGabor) Segment(img *imaging.Gray, scale measure.ScaleEstimate) (*imaging.Mask, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("fourier gabor: %w", err)
	}
	if scale.Fx <= 0 || scale.Fy <= 0 {
		return nil, fmt.Errorf("fourier gabor: scale %vx%v must be positive", scale.Fx, scale.Fy)
	}

	texture := s.Texture(img, scale)
	t, err := threshold(s.Threshold, texture.Pix, s.Clusters, s.Bins)
	if err != nil {
		return nil, fmt.Errorf("fourier gabor: %w", err)
	}

	mask := ApplyMorphology(below(texture, t), s.Morphology)
	logger.OrNop(s.Logger).Debug("segment", "fourier gabor", map[string]interface{}{
		"threshold":  t,
		"foreground": mask.Count(),
	})
	return mask, nil
}
