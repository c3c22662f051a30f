package spectral

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoPeakFound is returned when peak selection has no candidate at the
// requested rank.
var ErrNoPeakFound = errors.New("no peak found")

// DetectPeaks returns the indices of strict local maxima of y in ascending
// order. A sample is a peak when it is greater than both neighbours; the first
// and last samples are never peaks. No smoothing is applied.
func DetectPeaks(y []float64) []int {
	peaks := make([]int, 0)
	for i := 1; i < len(y)-1; i++ {
		if y[i] > y[i-1] && y[i] > y[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// SelectKthPeak returns the index of the k-th ranked peak of a spectrum.
//
// Rank 1 is the highest-magnitude peak. Each further rank looks only at
// magnitudes observed below the frequency of the previously selected peak:
// the candidate magnitudes are the peak magnitudes that also occur somewhere
// in mags at a strictly lower frequency, and the new selection is the first
// peak carrying the largest such magnitude. Comparing magnitude values rather
// than positions means the mirror image of a peak in a real spectrum counts as
// a lower-frequency occurrence of the same magnitude.
//
// For grid photographs the single strongest peak is frequently a harmonic or
// leakage from DC, which is why callers ask for k = 2.
func SelectKthPeak(freqs, mags []float64, peaks []int, k int) (int, error) {
	if len(freqs) != len(mags) {
		return 0, fmt.Errorf("select peak: %d frequencies for %d magnitudes", len(freqs), len(mags))
	}
	if k < 1 {
		return 0, fmt.Errorf("select peak: rank %d must be at least 1", k)
	}
	if len(peaks) == 0 {
		return 0, fmt.Errorf("select peak of rank %d: %w", k, ErrNoPeakFound)
	}

	best := math.Inf(-1)
	for _, p := range peaks {
		if mags[p] > best {
			best = mags[p]
		}
	}
	selected := firstWithMagnitude(mags, peaks, best)

	for rank := 2; rank <= k; rank++ {
		below := make(map[float64]struct{})
		for i, f := range freqs {
			if f < freqs[selected] {
				below[mags[i]] = struct{}{}
			}
		}

		best = math.Inf(-1)
		found := false
		for _, p := range peaks {
			if _, ok := below[mags[p]]; ok && mags[p] > best {
				best = mags[p]
				found = true
			}
		}
		if !found {
			return 0, fmt.Errorf("select peak of rank %d: %w", rank, ErrNoPeakFound)
		}
		selected = firstWithMagnitude(mags, peaks, best)
	}

	return selected, nil
}

func firstWithMagnitude(mags []float64, peaks []int, m float64) int {
	for _, p := range peaks {
		if mags[p] == m {
			return p
		}
	}
	return peaks[0]
}
