package spectral

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mode returns the most frequent value of x using exact float equality.
// Among equally frequent values the smallest wins. Mode of an empty slice
// is NaN.
func Mode(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	_, count := stat.Mode(x, nil)

	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	run := 1
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i] == sorted[i-1] {
			run++
			continue
		}
		if float64(run) == count {
			return sorted[i-1]
		}
		run = 1
	}
	return sorted[0]
}

// Median returns the middle value of x, averaging the two central values for
// even lengths. Median of an empty slice is NaN.
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Spread returns max(x) - min(x).
func Spread(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Max(x) - floats.Min(x)
}

// toRadians maps samples on the periodic domain [low, high) onto the circle.
func toRadians(x []float64, low, high float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - low) * 2 * math.Pi / (high - low)
	}
	return out
}

// CircularMean returns the circular mean of samples on the periodic domain
// [low, high). The result lies in [low, high).
func CircularMean(x []float64, low, high float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	mean := stat.CircularMean(toRadians(x, low, high), nil)
	if mean < 0 {
		mean += 2 * math.Pi
	}
	res := mean*(high-low)/(2*math.Pi) + low
	if res >= high {
		res = low
	}
	return res
}

// CircularStd returns the circular standard deviation of samples on the
// periodic domain [low, high), sqrt(-2 ln R) scaled back to domain units,
// where R is the mean resultant length.
func CircularStd(x []float64, low, high float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	rad := toRadians(x, low, high)
	var s, c float64
	for _, a := range rad {
		s += math.Sin(a)
		c += math.Cos(a)
	}
	n := float64(len(rad))
	r := math.Min(1, math.Hypot(s/n, c/n))
	return (high - low) / (2 * math.Pi) * math.Sqrt(math.Max(0, -2*math.Log(r)))
}
