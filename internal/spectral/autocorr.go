package spectral

// CorrelationMode selects the output length of Autocorrelate.
type CorrelationMode int

const (
	// ModeSame returns len(x) lags centred on zero lag.
	ModeSame CorrelationMode = iota
	// ModeFull returns all 2*len(x)-1 lags.
	ModeFull
)

// Autocorrelate correlates x with itself.
//
// Lag l is sum_i x[i+l]*x[i]. ModeFull orders lags from -(n-1) to n-1;
// ModeSame keeps the n central lags, from -(n/2) to n-1-n/2. Autocorrelation
// keeps the periodicity of the grid while averaging out uncorrelated noise.
func Autocorrelate(x []float64, mode CorrelationMode) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}

	lagAt := func(l int) float64 {
		if l < 0 {
			l = -l
		}
		var s float64
		for i := 0; i+l < n; i++ {
			s += x[i+l] * x[i]
		}
		return s
	}

	if mode == ModeFull {
		out := make([]float64, 2*n-1)
		for i := range out {
			out[i] = lagAt(i - (n - 1))
		}
		return out
	}

	out := make([]float64, n)
	first := -(n / 2)
	for i := range out {
		out[i] = lagAt(first + i)
	}
	return out
}

// PSD returns the power spectral density estimate |FFT(autocorrelation)| of x,
// using the same-length autocorrelation so bins line up with Frequencies(len(x)).
func PSD(x []float64) []float64 {
	mag, _ := FFT(Autocorrelate(x, ModeSame))
	return mag
}
