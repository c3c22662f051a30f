package measure

import (
	"fmt"

	"github.com/anthonynsimon/bild/transform"

	"github.com/ironsheep/pellet-mcp/internal/imaging"
)

// Align rotates img counter-clockwise by angle degrees about its centre,
// keeping its bounds, so that a grid at that slope becomes axis aligned.
// Corners uncovered by the rotation are zero. The input is not modified.
func Align(img *imaging.Gray, angle float64) (*imaging.Gray, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}
	if angle == 0 {
		return img.Clone(), nil
	}
	// bild rotates clockwise.
	rotated := transform.Rotate(img.ToImage(), -angle, &transform.RotationOptions{ResizeBounds: false})
	return imaging.FromImage(rotated), nil
}

// AlignToGrid estimates the slope of img and de-rotates it.
func (e SlopeEstimator) AlignToGrid(img *imaging.Gray) (*imaging.Gray, SlopeEstimate, error) {
	slope, err := e.Estimate(img)
	if err != nil {
		return nil, SlopeEstimate{}, err
	}
	aligned, err := Align(img, slope.Angle)
	if err != nil {
		return nil, SlopeEstimate{}, err
	}
	return aligned, slope, nil
}
