package measure

import (
	"math"
	"sort"

	"github.com/ironsheep/pellet-mcp/internal/imaging"
)

// HoughOptions controls the line transform and its peak extraction.
type HoughOptions struct {
	// Angles is the number of angle bins spanning [-90, 90) degrees.
	Angles int `json:"angles" yaml:"angles"`
	// MinDistance is the minimum separation of two peaks in rho bins.
	MinDistance int `json:"min_distance" yaml:"min_distance"`
	// MinAngle is the minimum separation of two peaks in angle bins.
	MinAngle int `json:"min_angle" yaml:"min_angle"`
	// Threshold is the fraction of the accumulator maximum a peak must
	// exceed.
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// DefaultHoughOptions returns 500 angles, peaks at least 9 rho bins and 10
// angle bins apart, and a threshold at half the strongest peak.
func DefaultHoughOptions() HoughOptions {
	return HoughOptions{Angles: 500, MinDistance: 9, MinAngle: 10, Threshold: 0.5}
}

// HoughSpace is a line accumulator indexed by [rho][angle].
type HoughSpace struct {
	Votes  [][]int
	Angles []float64 // radians
	// Offset is added to a signed distance to get its rho bin.
	Offset int
}

// HoughPeak is one prominent line.
type HoughPeak struct {
	RhoBin   int
	AngleBin int
	Votes    int
}

// Rho returns the signed distance of the line from the origin in pixels.
func (p HoughPeak) Rho(h *HoughSpace) int {
	return p.RhoBin - h.Offset
}

// HoughLines votes every edge pixel into the line accumulator. Angle bin i
// is -pi/2 + i*pi/n; each pixel votes for round(x*cos + y*sin) per angle.
func HoughLines(edges *imaging.Mask, n int) *HoughSpace {
	width, height := edges.Width, edges.Height
	offset := int(math.Ceil(math.Hypot(float64(width), float64(height))))

	angles := make([]float64, n)
	cos := make([]float64, n)
	sin := make([]float64, n)
	for i := range angles {
		angles[i] = -math.Pi/2 + float64(i)*math.Pi/float64(n)
		cos[i] = math.Cos(angles[i])
		sin[i] = math.Sin(angles[i])
	}

	votes := make([][]int, 2*offset+1)
	for i := range votes {
		votes[i] = make([]int, n)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !edges.At(x, y) {
				continue
			}
			for a := 0; a < n; a++ {
				rho := int(math.Round(float64(x)*cos[a]+float64(y)*sin[a])) + offset
				votes[rho][a]++
			}
		}
	}

	return &HoughSpace{Votes: votes, Angles: angles, Offset: offset}
}

// Peaks extracts prominent lines, strongest first.
//
// A cell is a candidate when it is the maximum of its
// (2*MinDistance+1) x (2*MinAngle+1) neighbourhood and exceeds
// Threshold times the global maximum. Candidates are accepted greedily by
// votes; each accepted peak suppresses its neighbourhood, wrapping across the
// angle axis with the rho axis mirrored, since angle -90 continues angle 90
// with the sign of rho flipped.
func (h *HoughSpace) Peaks(opts HoughOptions) []HoughPeak {
	rows := len(h.Votes)
	if rows == 0 {
		return nil
	}
	cols := len(h.Votes[0])
	minAngle := opts.MinAngle
	if minAngle > cols {
		minAngle = cols
	}

	max := 0
	for _, row := range h.Votes {
		for _, v := range row {
			if v > max {
				max = v
			}
		}
	}
	if max == 0 {
		return nil
	}
	threshold := opts.Threshold * float64(max)

	localMax := neighbourhoodMax(h.Votes, opts.MinDistance, minAngle)
	candidates := make([]HoughPeak, 0)
	for r := 0; r < rows; r++ {
		for a := 0; a < cols; a++ {
			v := h.Votes[r][a]
			if v == localMax[r][a] && float64(v) > threshold {
				candidates = append(candidates, HoughPeak{RhoBin: r, AngleBin: a, Votes: v})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Votes > candidates[j].Votes
	})

	suppressed := make([][]bool, rows)
	for i := range suppressed {
		suppressed[i] = make([]bool, cols)
	}

	peaks := make([]HoughPeak, 0)
	for _, c := range candidates {
		if suppressed[c.RhoBin][c.AngleBin] {
			continue
		}
		peaks = append(peaks, c)
		for dr := -opts.MinDistance; dr <= opts.MinDistance; dr++ {
			for da := -minAngle; da <= minAngle; da++ {
				r, a := c.RhoBin+dr, c.AngleBin+da
				if r < 0 || r >= rows {
					continue
				}
				if a < 0 || a >= cols {
					r = rows - 1 - r
					a = (a + cols) % cols
				}
				suppressed[r][a] = true
			}
		}
	}
	return peaks
}

// neighbourhoodMax is a separable maximum filter with zero padding.
func neighbourhoodMax(votes [][]int, rhoRadius, angleRadius int) [][]int {
	rows, cols := len(votes), len(votes[0])
	tmp := make([][]int, rows)
	out := make([][]int, rows)
	for r := range votes {
		tmp[r] = make([]int, cols)
		out[r] = make([]int, cols)
	}
	for r := 0; r < rows; r++ {
		for a := 0; a < cols; a++ {
			m := 0
			for d := -rhoRadius; d <= rhoRadius; d++ {
				if rr := r + d; rr >= 0 && rr < rows && votes[rr][a] > m {
					m = votes[rr][a]
				}
			}
			tmp[r][a] = m
		}
	}
	for r := 0; r < rows; r++ {
		for a := 0; a < cols; a++ {
			m := 0
			for d := -angleRadius; d <= angleRadius; d++ {
				if aa := a + d; aa >= 0 && aa < cols && tmp[r][aa] > m {
					m = tmp[r][aa]
				}
			}
			out[r][a] = m
		}
	}
	return out
}
