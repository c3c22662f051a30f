package filters

import (
	"sort"

	"github.com/ironsheep/pellet-mcp/internal/imaging"
)

// Rank selects which order statistic a disk filter keeps.
type Rank int

const (
	RankMin Rank = iota
	RankMax
	RankMedian
)

// disk returns the offsets of a digital disk: all (dx, dy) with
// dx^2 + dy^2 <= radius^2.
func disk(radius int) [][2]int {
	offsets := make([][2]int, 0, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				offsets = append(offsets, [2]int{dx, dy})
			}
		}
	}
	return offsets
}

// DiskFilter applies a minimum, maximum or median over a disk-shaped
// footprint of the given radius. Radius 0 returns a copy. The median of an
// even number of samples is the upper middle one.
func DiskFilter(g *imaging.Gray, radius int, rank Rank) *imaging.Gray {
	if radius <= 0 {
		return g.Clone()
	}
	offsets := disk(radius)
	window := make([]float64, len(offsets))
	out := imaging.NewGray(g.Width, g.Height)

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			for i, o := range offsets {
				window[i] = g.Pix[reflect(y+o[1], g.Height)*g.Width+reflect(x+o[0], g.Width)]
			}
			var v float64
			switch rank {
			case RankMin:
				v = window[0]
				for _, w := range window[1:] {
					if w < v {
						v = w
					}
				}
			case RankMax:
				v = window[0]
				for _, w := range window[1:] {
					if w > v {
						v = w
					}
				}
			default:
				sort.Float64s(window)
				v = window[len(window)/2]
			}
			out.Pix[y*g.Width+x] = v
		}
	}
	return out
}
