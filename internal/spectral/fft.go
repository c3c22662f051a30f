// Package spectral provides the one-dimensional Fourier tools used to read
// the period of a ruled grid: magnitude spectra, autocorrelation, power
// spectral density, local-maximum peak detection and ranked peak selection,
// plus the small set of robust statistics the estimators aggregate with.
//
// Frequencies follow the discrete Fourier transform grid in cycles per
// sample: for a signal of length n, bin k has frequency k/n for k < (n+1)/2
// and (k-n)/n above, exactly like numpy's fftfreq. Spectra are never
// re-centred.
package spectral

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Frequencies returns the sample frequencies of an n-point DFT.
func Frequencies(n int) []float64 {
	freqs := make([]float64, n)
	half := (n-1)/2 + 1
	for k := 0; k < n; k++ {
		if k < half {
			freqs[k] = float64(k) / float64(n)
		} else {
			freqs[k] = float64(k-n) / float64(n)
		}
	}
	return freqs
}

// FFT returns the magnitude of the full DFT of a real signal together with
// the matching frequencies.
//
// The real transform only yields the n/2+1 non-negative bins; the rest are
// filled by conjugate symmetry, so mirrored bins have bit-identical
// magnitudes.
func FFT(signal []float64) (mag, freqs []float64) {
	n := len(signal)
	if n == 0 {
		return nil, nil
	}
	coeffs := fourier.NewFFT(n).Coefficients(nil, signal)

	mag = make([]float64, n)
	for k := 0; k < len(coeffs); k++ {
		mag[k] = cmplx.Abs(coeffs[k])
	}
	for k := len(coeffs); k < n; k++ {
		mag[k] = mag[n-k]
	}
	return mag, Frequencies(n)
}

// PositiveBins returns the indices of strictly positive frequencies.
func PositiveBins(n int) []int {
	last := (n - 1) / 2
	bins := make([]int, 0, last)
	for k := 1; k <= last; k++ {
		bins = append(bins, k)
	}
	return bins
}
