package measure

import (
	"fmt"
	"math"

	"github.com/ironsheep/pellet-mcp/internal/filters"
	"github.com/ironsheep/pellet-mcp/internal/imaging"
	"github.com/ironsheep/pellet-mcp/internal/logger"
	"github.com/ironsheep/pellet-mcp/internal/spectral"
)

// ScaleMethod selects how grid frequencies are read.
type ScaleMethod string

const (
	// MethodPSD takes the mode of per-line power spectral density maxima.
	MethodPSD ScaleMethod = "psd"
	// MethodPeaks takes the median of per-line second-ranked spectral peaks.
	MethodPeaks ScaleMethod = "peaks"
)

// Defaults for ScaleEstimator.
const (
	DefaultNoiseFloor = 0.025
	DefaultScaleSigma = 2.0
	// spreadDivisor turns the range of per-line peak estimates into an
	// uncertainty.
	spreadDivisor = 40.0
)

// ScaleEstimate is the millimetres-per-pixel scale along each axis.
type ScaleEstimate struct {
	Fx    float64 `json:"fx"`
	Fy    float64 `json:"fy"`
	ErrFx float64 `json:"error_fx"`
	ErrFy float64 `json:"error_fy"`
	// Error is the uncertainty of the pixel area Fx*Fy.
	Error float64 `json:"error"`
	// Clamped is set when either axis fell below the noise floor.
	Clamped bool `json:"clamped"`
}

// PixelArea returns Fx*Fy, the physical area of one pixel.
func (s ScaleEstimate) PixelArea() float64 {
	return s.Fx * s.Fy
}

// ScaleEstimator derives grid frequencies from a grayscale image. The zero
// value uses MethodPSD with the default sigma and noise floor.
type ScaleEstimator struct {
	Method     ScaleMethod
	Sigma      float64
	NoiseFloor float64
	Logger     logger.Logger
}

// axisEstimate is the frequency and uncertainty found along one axis.
type axisEstimate struct {
	freq float64
	err  float64
}

// Estimate returns the scale of img. It fails with spectral.ErrNoPeakFound
// when MethodPeaks finds no usable peak on any line of an axis.
func (e ScaleEstimator) Estimate(img *imaging.Gray) (ScaleEstimate, error) {
	if err := img.Validate(); err != nil {
		return ScaleEstimate{}, fmt.Errorf("estimate scale: %w", err)
	}

	var (
		x, y axisEstimate
		err  error
	)
	switch e.method() {
	case MethodPSD:
		x, y = e.psdScale(img)
	case MethodPeaks:
		x, y, err = e.peakScale(img)
		if err != nil {
			return ScaleEstimate{}, fmt.Errorf("estimate scale: %w", err)
		}
	default:
		return ScaleEstimate{}, fmt.Errorf("estimate scale: unknown method %q", e.Method)
	}

	floor := e.noiseFloor()
	est := ScaleEstimate{ErrFx: x.err, ErrFy: y.err}
	est.Fx, est.Clamped = clampFloor(x.freq, floor, est.Clamped)
	est.Fy, est.Clamped = clampFloor(y.freq, floor, est.Clamped)
	est.Error = math.Hypot(est.ErrFx*est.Fy, est.ErrFy*est.Fx)

	log := logger.OrNop(e.Logger)
	if est.Clamped {
		log.Warning("scale", "degenerate scale clamped to noise floor", map[string]interface{}{
			"fx_raw": x.freq,
			"fy_raw": y.freq,
			"floor":  floor,
		})
	}
	log.Debug("scale", "estimated", map[string]interface{}{
		"method": string(e.method()),
		"fx":     est.Fx,
		"fy":     est.Fy,
		"error":  est.Error,
	})
	return est, nil
}

func (e ScaleEstimator) method() ScaleMethod {
	if e.Method == "" {
		return MethodPSD
	}
	return e.Method
}

func (e ScaleEstimator) noiseFloor() float64 {
	if e.NoiseFloor <= 0 {
		return DefaultNoiseFloor
	}
	return e.NoiseFloor
}

func (e ScaleEstimator) sigma() float64 {
	if e.Sigma <= 0 {
		return DefaultScaleSigma
	}
	return e.Sigma
}

func clampFloor(f, floor float64, clamped bool) (float64, bool) {
	if math.IsNaN(f) || f < floor {
		return floor, true
	}
	return f, clamped
}

// psdScale reads each axis from the smoothed gradient along it. Rows of the
// x gradient give Fx; rows of the transposed y gradient give Fy.
func (e ScaleEstimator) psdScale(img *imaging.Gray) (axisEstimate, axisEstimate) {
	dx, dy := filters.Gradient(img)
	sigma := e.sigma()
	return psdAxis(filters.Gaussian(dx, sigma)),
		psdAxis(filters.Gaussian(dy, sigma).Transpose())
}

func psdAxis(g *imaging.Gray) axisEstimate {
	n := g.Width
	freqs := spectral.Frequencies(n)
	pos := spectral.PositiveBins(n)
	if len(pos) == 0 {
		return axisEstimate{freq: math.NaN(), err: 0.5 / float64(n)}
	}

	perLine := make([]float64, g.Height)
	for y := 0; y < g.Height; y++ {
		psd := spectral.PSD(g.Row(y))
		best := pos[0]
		for _, k := range pos[1:] {
			if psd[k] > psd[best] {
				best = k
			}
		}
		perLine[y] = freqs[best]
	}
	return axisEstimate{
		freq: spectral.Mode(perLine),
		err:  0.5 / float64(n),
	}
}

// peakScale reads Fx from rows of the vertical-edge response and Fy from
// columns of the horizontal-edge response.
func (e ScaleEstimator) peakScale(img *imaging.Gray) (axisEstimate, axisEstimate, error) {
	x, err := peakAxis(filters.FaridV(img), e.noiseFloor())
	if err != nil {
		return axisEstimate{}, axisEstimate{}, fmt.Errorf("x axis: %w", err)
	}
	y, err := peakAxis(filters.FaridH(img).Transpose(), e.noiseFloor())
	if err != nil {
		return axisEstimate{}, axisEstimate{}, fmt.Errorf("y axis: %w", err)
	}
	return x, y, nil
}

func peakAxis(g *imaging.Gray, floor float64) (axisEstimate, error) {
	candidates := make([]float64, 0, g.Height)
	for y := 0; y < g.Height; y++ {
		mag, freqs := spectral.FFT(g.Row(y))
		idx, err := spectral.SelectKthPeak(freqs, mag, spectral.DetectPeaks(mag), 2)
		if err != nil {
			continue
		}
		candidates = append(candidates, math.Abs(freqs[idx]))
	}
	if len(candidates) == 0 {
		return axisEstimate{}, fmt.Errorf("no line has a second spectral peak: %w", spectral.ErrNoPeakFound)
	}

	above := make([]float64, 0, len(candidates))
	for _, f := range candidates {
		if f > floor {
			above = append(above, f)
		}
	}
	freq := math.NaN()
	if len(above) > 0 {
		freq = spectral.Median(above)
	}
	return axisEstimate{
		freq: freq,
		err:  spectral.Spread(candidates) / spreadDivisor,
	}, nil
}
