package segment

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrClusteringFailure is returned when values cannot be split into the
// requested clusters or a histogram threshold is undefined.
var ErrClusteringFailure = errors.New("clustering failure")

// maxKMeansIterations bounds Lloyd's algorithm.
const maxKMeansIterations = 300

// Cluster is one group found by KMeans.
type Cluster struct {
	Centroid float64
	Min      float64
	Max      float64
	Size     int
}

// KMeans partitions one-dimensional values into k clusters with Lloyd's
// algorithm, returned in ascending centroid order.
//
// Centroids start at evenly spaced quantiles of the distinct values, so the
// result is deterministic. It fails with ErrClusteringFailure when there are
// fewer distinct values than clusters, a cluster empties, or assignments do
// not settle.
func KMeans(values []float64, k int) ([]Cluster, error) {
	if k < 1 {
		return nil, fmt.Errorf("kmeans: %d clusters: %w", k, ErrClusteringFailure)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	distinct := make([]float64, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) < k {
		return nil, fmt.Errorf("kmeans: %d distinct values for %d clusters: %w", len(distinct), k, ErrClusteringFailure)
	}

	centroids := make([]float64, k)
	for j := range centroids {
		centroids[j] = distinct[(2*j+1)*len(distinct)/(2*k)]
	}

	// Sorted values and sorted centroids make every cluster a contiguous run;
	// starts[j] is the first index of cluster j.
	starts := make([]int, k+1)
	starts[k] = len(sorted)
	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for j := 1; j < k; j++ {
			mid := (centroids[j-1] + centroids[j]) / 2
			// Ties go to the lower cluster.
			s := sort.Search(len(sorted), func(i int) bool { return sorted[i] > mid })
			if s != starts[j] {
				starts[j] = s
				changed = true
			}
		}
		for j := 0; j < k; j++ {
			run := sorted[starts[j]:starts[j+1]]
			if len(run) == 0 {
				return nil, fmt.Errorf("kmeans: cluster %d is empty: %w", j, ErrClusteringFailure)
			}
			centroids[j] = floats.Sum(run) / float64(len(run))
		}
		if !changed && iter > 0 {
			clusters := make([]Cluster, k)
			for j := range clusters {
				run := sorted[starts[j]:starts[j+1]]
				clusters[j] = Cluster{
					Centroid: centroids[j],
					Min:      run[0],
					Max:      run[len(run)-1],
					Size:     len(run),
				}
			}
			return clusters, nil
		}
	}
	return nil, fmt.Errorf("kmeans: no convergence after %d iterations: %w", maxKMeansIterations, ErrClusteringFailure)
}

// ThresholdKMeans clusters values and returns the largest value of the
// cluster whose histogram has the smallest upper bin edge.
//
// Clusters are visited in ascending centroid order. A histogram spans the
// cluster's own range, so its upper edge is the cluster maximum, or the
// maximum plus one half when every member is equal. The first cluster sets
// the threshold to its maximum; a later cluster replaces it only when its
// upper edge lies below the current threshold.
func ThresholdKMeans(values []float64, k int) (float64, error) {
	clusters, err := KMeans(values, k)
	if err != nil {
		return 0, err
	}
	t := math.NaN()
	for i, c := range clusters {
		upper := c.Max
		if c.Max == c.Min {
			upper = c.Max + 0.5
		}
		if i == 0 || upper < t {
			t = c.Max
		}
	}
	return t, nil
}

// histogram bins values over their own range like numpy: nbins equal bins,
// the last one closed. It returns the counts and bin centres.
func histogram(values []float64, nbins int) (counts, centers []float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges := floats.Span(make([]float64, nbins+1), lo, hi)
	centers = make([]float64, nbins)
	for i := range centers {
		centers[i] = (edges[i] + edges[i+1]) / 2
	}
	dividers := append([]float64(nil), edges...)
	dividers[nbins] = math.Nextafter(hi, math.Inf(1))
	counts = stat.Histogram(nil, dividers, sorted, nil)
	return counts, centers
}

// ThresholdIsodata returns the lowest bin centre t for which t is within one
// bin width below the midpoint of the means of the samples on either side.
func ThresholdIsodata(values []float64, nbins int) (float64, error) {
	if len(values) == 0 || nbins < 2 {
		return 0, fmt.Errorf("isodata: %d values, %d bins: %w", len(values), nbins, ErrClusteringFailure)
	}
	counts, centers := histogram(values, nbins)
	width := centers[1] - centers[0]

	var total, totalSum float64
	for i, c := range counts {
		total += c
		totalSum += c * centers[i]
	}

	var low, lowSum float64
	for i := 0; i < nbins-1; i++ {
		low += counts[i]
		lowSum += counts[i] * centers[i]
		high := total - low
		if low == 0 || high == 0 {
			continue
		}
		mid := (lowSum/low + (totalSum-lowSum)/high) / 2
		if d := mid - centers[i]; d >= 0 && d < width {
			return centers[i], nil
		}
	}
	return 0, fmt.Errorf("isodata: no stable threshold: %w", ErrClusteringFailure)
}

// ThresholdTriangle returns the bin centre farthest below the line joining
// the histogram peak to the end of its longer tail.
func ThresholdTriangle(values []float64, nbins int) (float64, error) {
	if len(values) == 0 || nbins < 2 {
		return 0, fmt.Errorf("triangle: %d values, %d bins: %w", len(values), nbins, ErrClusteringFailure)
	}
	counts, centers := histogram(values, nbins)

	peak := floats.MaxIdx(counts)
	low, high := -1, -1
	for i, c := range counts {
		if c > 0 {
			if low < 0 {
				low = i
			}
			high = i
		}
	}
	if low == high {
		return values[0], nil
	}

	flip := peak-low < high-peak
	if flip {
		floats.Reverse(counts)
		low = nbins - high - 1
		peak = nbins - peak - 1
	}

	width := float64(peak - low)
	height := counts[peak]
	norm := math.Hypot(height, width)
	height /= norm
	width /= norm

	level, best := low, math.Inf(-1)
	for x := 0; x < peak-low; x++ {
		if d := height*float64(x) - width*counts[x+low]; d > best {
			level, best = x+low, d
		}
	}
	if flip {
		level = nbins - level - 1
	}
	return centers[level], nil
}
