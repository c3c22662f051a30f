package area

import (
	"fmt"

	"github.com/ironsheep/pellet-mcp/internal/imaging"
	"github.com/ironsheep/pellet-mcp/internal/logger"
	"github.com/ironsheep/pellet-mcp/internal/measure"
	"github.com/ironsheep/pellet-mcp/internal/segment"
)

// Estimator runs the full measurement: optional de-rotation, scale,
// segmentation and area. It holds only configuration, so one Estimator may
// serve concurrent calls as long as its Segmenter does.
type Estimator struct {
	Scale     measure.ScaleEstimator
	Slope     measure.SlopeEstimator
	Segmenter segment.Segmenter
	// AutoAlign de-rotates the image to the grid before measuring.
	AutoAlign bool
	Logger    logger.Logger
}

// Result holds every intermediate estimate of one measurement.
type Result struct {
	Scale       measure.ScaleEstimate  `json:"scale"`
	Slope       *measure.SlopeEstimate `json:"slope,omitempty"`
	Measurement Measurement            `json:"measurement"`
	Mask        *imaging.Mask          `json:"-"`
	// Image is the image the mask refers to, after any alignment.
	Image *imaging.Gray `json:"-"`
}

// Measure estimates the pellet area of img. Scale completes before
// segmentation because frequency-tuned segmenters consume it. Any failure
// aborts the whole measurement.
func (e *Estimator) Measure(img *imaging.Gray) (*Result, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("measure: %w", err)
	}
	if e.Segmenter == nil {
		return nil, fmt.Errorf("measure: no segmenter configured")
	}
	log := logger.OrNop(e.Logger)
	res := &Result{Image: img}

	if e.AutoAlign {
		aligned, slope, err := e.Slope.AlignToGrid(img)
		if err != nil {
			return nil, fmt.Errorf("measure: align: %w", err)
		}
		res.Image = aligned
		res.Slope = &slope
	}

	scale, err := e.Scale.Estimate(res.Image)
	if err != nil {
		return nil, fmt.Errorf("measure: %w", err)
	}
	res.Scale = scale

	mask, err := e.Segmenter.Segment(res.Image, scale)
	if err != nil {
		return nil, fmt.Errorf("measure: segment: %w", err)
	}
	res.Mask = mask
	res.Measurement = FromMask(mask, scale, 0)

	log.Info("area", "measured", map[string]interface{}{
		"area":   res.Measurement.Area,
		"error":  res.Measurement.Error,
		"pixels": res.Measurement.Pixels,
		"fx":     scale.Fx,
		"fy":     scale.Fy,
	})
	return res, nil
}
