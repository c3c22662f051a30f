package measure

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/pellet-mcp/internal/imaging"
	"github.com/ironsheep/pellet-mcp/internal/logger"
	"github.com/ironsheep/pellet-mcp/internal/spectral"
)

// ErrNoLinesFound is returned when an image has no edges or no prominent
// Hough line.
var ErrNoLinesFound = errors.New("no lines found")

// slopePeriod is the period of grid slopes in degrees.
const slopePeriod = 90.0

// SlopeEstimate is the rotation of the grid relative to the image x axis,
// in degrees on [0, 90).
type SlopeEstimate struct {
	// Angle is the most frequent line slope.
	Angle float64 `json:"angle_degrees"`
	// Mean is the circular mean of the line slopes.
	Mean float64 `json:"mean_degrees"`
	// Error is the circular standard deviation of the line slopes.
	Error float64 `json:"error"`
	Lines int     `json:"lines"`
}

// SlopeEstimator finds the grid rotation with Canny edges and a Hough
// transform. The zero value uses the default options.
type SlopeEstimator struct {
	Canny  CannyOptions
	Hough  HoughOptions
	Logger logger.Logger
}

// NewSlopeEstimator returns an estimator with default options.
func NewSlopeEstimator() SlopeEstimator {
	return SlopeEstimator{Canny: DefaultCannyOptions(), Hough: DefaultHoughOptions()}
}

// Estimate returns the grid slope of img.
func (e SlopeEstimator) Estimate(img *imaging.Gray) (SlopeEstimate, error) {
	if err := img.Validate(); err != nil {
		return SlopeEstimate{}, fmt.Errorf("estimate slope: %w", err)
	}
	canny, hough := e.options()

	edges := Canny(img, canny)
	if edges.Count() == 0 {
		return SlopeEstimate{}, fmt.Errorf("estimate slope: no edges: %w", ErrNoLinesFound)
	}
	space := HoughLines(edges, hough.Angles)
	peaks := space.Peaks(hough)
	if len(peaks) == 0 {
		return SlopeEstimate{}, fmt.Errorf("estimate slope: no hough peaks: %w", ErrNoLinesFound)
	}

	slopes := make([]float64, len(peaks))
	for i, p := range peaks {
		slopes[i] = binSlope(p.AngleBin, hough.Angles)
	}

	est := SlopeEstimate{
		Angle: spectral.Mode(slopes),
		Mean:  spectral.CircularMean(slopes, 0, slopePeriod),
		Error: spectral.CircularStd(slopes, 0, slopePeriod),
		Lines: len(slopes),
	}
	logger.OrNop(e.Logger).Debug("slope", "estimated", map[string]interface{}{
		"angle": est.Angle,
		"mean":  est.Mean,
		"error": est.Error,
		"lines": est.Lines,
	})
	return est, nil
}

func (e SlopeEstimator) options() (CannyOptions, HoughOptions) {
	canny, hough := e.Canny, e.Hough
	if canny == (CannyOptions{}) {
		canny = DefaultCannyOptions()
	}
	def := DefaultHoughOptions()
	if hough.Angles <= 0 {
		hough.Angles = def.Angles
	}
	if hough.Threshold <= 0 {
		hough.Threshold = def.Threshold
	}
	return canny, hough
}

// binSlope converts angle bin i of n into a slope: the line normal angle
// plus 90 degrees, which is 180*i/n, collapsed into [0, 90).
func binSlope(i, n int) float64 {
	return math.Mod(float64(180*i)/float64(n), slopePeriod)
}

// AngularDistance returns the distance between two slopes on the 90 degree
// circle, in [0, 45].
func AngularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), slopePeriod)
	if d > slopePeriod/2 {
		d = slopePeriod - d
	}
	return d
}
