package segment

import (
	"fmt"

	"github.com/ironsheep/pellet-mcp/internal/filters"
	"github.com/ironsheep/pellet-mcp/internal/imaging"
	"github.com/ironsheep/pellet-mcp/internal/logger"
	"github.com/ironsheep/pellet-mcp/internal/measure"
)

// EdgeBlur segments by the local variance of the edge response: grid lines
// keep the variance high everywhere on the paper, while the pellet interior
// is smooth.
type EdgeBlur struct {
	VarianceSize int             `json:"variance_size" yaml:"variance_size" mapstructure:"variance_size"`
	MinimumSize  int             `json:"minimum_size" yaml:"minimum_size" mapstructure:"minimum_size"`
	Threshold    ThresholdMethod `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
	Clusters     int             `json:"clusters" yaml:"clusters" mapstructure:"clusters"`
	Bins         int             `json:"bins" yaml:"bins" mapstructure:"bins"`
	Morphology   Morphology      `json:"post_process" yaml:"post_process" mapstructure:"post_process"`
	Logger       logger.Logger   `json:"-" yaml:"-" mapstructure:"-"`
}

// NewEdgeBlur returns the configuration tuned for 256x256 photographs.
func NewEdgeBlur() *EdgeBlur {
	return &EdgeBlur{
		VarianceSize: 72,
		MinimumSize:  38,
		Threshold:    RuleKMeans,
		Clusters:     3,
		Bins:         50,
		Morphology:   Morphology{Opening: 14, Closing: 33, Dilation: 12},
	}
}

// Texture returns the minimum-filtered local variance of the Farid edge
// magnitude.
func (s *EdgeBlur) Texture(img *imaging.Gray) *imaging.Gray {
	variance := filters.LocalVariance(filters.Farid(img), s.VarianceSize)
	return filters.Minimum(variance, s.MinimumSize)
}

// Segment ignores the scale; the texture needs no tuning to the grid pitch.
func (s *EdgeBlur) Segment(img *imaging.Gray, _ measure.ScaleEstimate) (*imaging.Mask, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("edge blur: %w", err)
	}
	texture := s.Texture(img)
	t, err := threshold(s.Threshold, texture.Pix, s.Clusters, s.Bins)
	if err != nil {
		return nil, fmt.Errorf("edge blur: %w", err)
	}

	mask := ApplyMorphology(below(texture, t), s.Morphology)
	logger.OrNop(s.Logger).Debug("segment", "edge blur", map[string]interface{}{
		"threshold":  t,
		"foreground": mask.Count(),
	})
	return mask, nil
}
