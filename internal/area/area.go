// Package area turns a segmentation mask and a grid scale into a physical
// area with a propagated uncertainty, and composes the estimators into a
// single measurement pipeline.
package area

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/pellet-mcp/internal/imaging"
	"github.com/ironsheep/pellet-mcp/internal/measure"
)

// ErrEmptyMask is returned when a reference mask has no foreground pixels.
var ErrEmptyMask = errors.New("mask has no foreground")

// Measurement is a physical area in square millimetres.
type Measurement struct {
	Area   float64 `json:"area"`
	Error  float64 `json:"error"`
	Pixels int     `json:"pixels"`
}

// FromMask returns area = N*fx*fy for the N foreground pixels of mask, with
// first-order error propagation of independent uncertainties in N, fx and fy:
//
//	error = sqrt((fx*fy*errMask)^2 + (N*fy*errFx)^2 + (N*fx*errFy)^2)
//
// errMask is the uncertainty of the pixel count; pass 0 when none is modelled.
func FromMask(mask *imaging.Mask, scale measure.ScaleEstimate, errMask float64) Measurement {
	n := float64(mask.Count())
	fx, fy := scale.Fx, scale.Fy
	return Measurement{
		Area: n * fx * fy,
		Error: math.Sqrt(
			math.Pow(fx*fy*errMask, 2) +
				math.Pow(n*fy*scale.ErrFx, 2) +
				math.Pow(n*fx*scale.ErrFy, 2),
		),
		Pixels: int(n),
	}
}

// ScaleFromMask returns the area of one pixel given the known physical area
// of the object a reference mask covers.
func ScaleFromMask(knownArea float64, mask *imaging.Mask) (float64, error) {
	n := mask.Count()
	if n == 0 {
		return 0, fmt.Errorf("scale from mask: %w", ErrEmptyMask)
	}
	return knownArea / float64(n), nil
}
