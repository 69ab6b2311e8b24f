package coupling

import (
	"math"

	"github.com/san-kum/terrasim/internal/scale"
)

const (
	anemometerHeight = 10.0 // m
	roughnessLength  = 0.01 // m
	criticalStress   = 0.1  // Pa

	// DryDepth is the water depth below which a cell counts as bare.
	DryDepth = 1e-3 // m
)

// ShearStress returns the surface stress ρ·u*² for a 10 m wind speed.
func ShearStress(speed float64) float64 {
	ustar := scale.VonKarman * speed / math.Log(anemometerHeight/roughnessLength)
	return scale.AirDensity * ustar * ustar
}

// WindErosion strips material from dry land where the surface stress
// exceeds the critical value and drops it one cell downwind. Material
// carried past the edge is counted in Exported.
type WindErosion struct{}

func (WindErosion) Name() string { return "wind_erosion" }

func (we WindErosion) Compute(in Inputs) *EffectGrid {
	w, h := in.size()
	g := NewEffectGrid(we.Name(), Additive, w, h)
	rate := in.Params.WindErosionRate
	limit := in.Params.ErosionCapPerTick
	if rate == 0 || in.Atmos.WindU.IsZero() {
		return g
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if in.Elevation.AtIndex(i) <= 0 || in.depth(i) >= DryDepth {
				continue
			}
			u, v := in.Atmos.WindU.AtIndex(i), in.Atmos.WindV.AtIndex(i)
			speed := math.Hypot(u, v)
			if speed < CalmWind {
				continue
			}
			tau := ShearStress(speed)
			if tau <= criticalStress {
				continue
			}
			loss := math.Min(rate*(tau-criticalStress)/criticalStress, limit)
			g.Add(i, -loss)

			// downwind neighbour; V is northward, rows grow southward
			nx := x + int(math.Round(u/speed))
			ny := y - int(math.Round(v/speed))
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				g.Exported += loss
				continue
			}
			g.Add(ny*w+nx, loss)
		}
	}
	return g
}
