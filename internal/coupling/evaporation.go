package coupling

import (
	"math"

	"github.com/san-kum/terrasim/internal/scale"
)

const (
	pressureExponent = -0.378
	warmthFactor     = 0.002 // per °C
	minEvaporation   = 0.5
	maxEvaporation   = 2.0
)

// EvaporationFactor is the evaporation multiplier for a cell at pressure p
// (Pa) and temperature t (°C), with strength blending toward 1.
func EvaporationFactor(p, t, strength float64) float64 {
	raw := math.Pow(p/scale.SeaLevelPress, pressureExponent) * (1 + warmthFactor*t)
	m := 1 + strength*(raw-1)
	return math.Max(minEvaporation, math.Min(maxEvaporation, m))
}

// Evaporation lets low pressure and warm air speed up evaporation.
type Evaporation struct{}

func (Evaporation) Name() string { return "evaporation" }

func (e Evaporation) Compute(in Inputs) *EffectGrid {
	w, h := in.size()
	g := NewEffectGrid(e.Name(), Multiplicative, w, h)
	if in.Atmos.Pressure.IsZero() {
		return g
	}
	s := in.Params.EvaporationStrength
	for i := 0; i < w*h; i++ {
		g.Mark(i, None, EvaporationFactor(in.Atmos.Pressure.AtIndex(i), in.Atmos.Temperature.AtIndex(i), s))
	}
	return g
}
