package coupling

import (
	"math"

	"github.com/san-kum/terrasim/internal/grid"
)

const (
	// CalmWind is the speed below which wind drives no coupling.
	CalmWind = 2.0 // m/s

	orographicSlope = 1e-3
	maxEnhancement  = 5.0
	shadowDepth     = 0.7
)

// Orographic lifts rain on windward slopes and dries the lee. Windward
// cells are tagged first; the lee pass can only claim untagged cells.
type Orographic struct{}

func (Orographic) Name() string { return "orographic" }

func (o Orographic) Compute(in Inputs) *EffectGrid {
	w, h := in.size()
	g := NewEffectGrid(o.Name(), Multiplicative, w, h)
	o.Apply(in, g)
	return g
}

// Apply writes into an existing grid, respecting tags already present.
func (Orographic) Apply(in Inputs, g *EffectGrid) {
	w, h := in.size()
	gain := in.Params.OrographicGain
	dx := in.Params.MetersPerCell
	if gain == 0 {
		return
	}

	lift := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			u, v := in.Atmos.WindU.AtIndex(i), in.Atmos.WindV.AtIndex(i)
			speed := math.Hypot(u, v)
			if speed < CalmWind {
				continue
			}
			gx, gy := grid.Gradient(in.Elevation, x, y, dx)
			// slope along the wind; positive means the air is climbing
			s := (gx*u + gy*v) / speed
			if math.Abs(s) <= orographicSlope {
				continue
			}
			lift[i] = gain * s * speed
		}
	}

	for i, l := range lift {
		if l > 0 {
			g.Mark(i, Enhancement, math.Min(1+l, maxEnhancement))
		}
	}
	for i, l := range lift {
		if l < 0 {
			g.Mark(i, Suppression, 1-shadowDepth*math.Min(-l, 1))
		}
	}
}
