package filters

import (
	"math"

	"github.com/ironsheep/pellet-mcp/internal/imaging"
)

// Five-tap Farid & Simoncelli interpolation and first-derivative filters.
var (
	faridSmooth = []float64{
		0.0376593171958126, 0.249153396177344, 0.426374573253687,
		0.249153396177344, 0.0376593171958126,
	}
	faridDeriv = []float64{
		0.109603762960254, 0.276690988455557, 0,
		-0.276690988455557, -0.109603762960254,
	}
)

// FaridH returns the response to horizontal edges: derivative along y,
// smoothing along x.
func FaridH(g *imaging.Gray) *imaging.Gray {
	return convolve1D(convolve1D(g, faridSmooth, AxisX), faridDeriv, AxisY)
}

// FaridV returns the response to vertical edges: derivative along x,
// smoothing along y.
func FaridV(g *imaging.Gray) *imaging.Gray {
	return convolve1D(convolve1D(g, faridSmooth, AxisY), faridDeriv, AxisX)
}

// Farid returns the edge magnitude sqrt((h^2 + v^2) / 2).
func Farid(g *imaging.Gray) *imaging.Gray {
	h := FaridH(g)
	v := FaridV(g)
	out := imaging.NewGray(g.Width, g.Height)
	for i := range out.Pix {
		out.Pix[i] = math.Sqrt((h.Pix[i]*h.Pix[i] + v.Pix[i]*v.Pix[i]) / 2)
	}
	return out
}
