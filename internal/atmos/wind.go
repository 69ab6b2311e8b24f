package atmos

import (
	"math"

	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

// Rossby number limits for the geostrophic blend.
const (
	RossbyGeostrophic = 0.3
	RossbyFallback    = 1.0
)

// WindRegime records which estimate produced a cell's wind.
type WindRegime int

const (
	RegimeCalm WindRegime = iota
	RegimeGeostrophic
	RegimeBlended
	RegimeFallback
)

// Geostrophic returns the geostrophic wind for a pressure gradient. The
// caller guarantees |f| >= scale.FThreshold.
func Geostrophic(f, dpdx, dpdy float64) (u, v float64) {
	rf := scale.AirDensity * f
	return -dpdy / rf, dpdx / rf
}

// DownGradient estimates wind without rotation: it blows from high to low
// pressure with speed sqrt(2·|∇p|·ℓ/ρ).
func DownGradient(dpdx, dpdy, mixingLength float64) (u, v float64) {
	g := math.Hypot(dpdx, dpdy)
	if g == 0 {
		return 0, 0
	}
	speed := math.Sqrt(2 * g * mixingLength / scale.AirDensity)
	return -speed * dpdx / g, -speed * dpdy / g
}

// CellWind combines both estimates by local Rossby number. It never
// divides by f when |f| is below the threshold.
func CellWind(f, dpdx, dpdy float64, p scale.Parameters) (u, v float64, regime WindRegime) {
	if dpdx == 0 && dpdy == 0 {
		return 0, 0, RegimeCalm
	}
	fu, fv := DownGradient(dpdx, dpdy, p.MixingLength)
	if math.Abs(f) < scale.FThreshold {
		return fu, fv, RegimeFallback
	}

	gu, gv := Geostrophic(f, dpdx, dpdy)
	ro := math.Hypot(gu, gv) / (math.Abs(f) * p.RossbyLength)
	switch {
	case ro >= RossbyFallback:
		return fu, fv, RegimeFallback
	case ro <= RossbyGeostrophic:
		return gu, gv, RegimeGeostrophic
	}
	w := (RossbyFallback - ro) / (RossbyFallback - RossbyGeostrophic)
	return w*gu + (1-w)*fu, w*gv + (1-w)*fv, RegimeBlended
}

// clampWind scales (u, v) down to the hard wind limit.
func clampWind(u, v float64) (float64, float64, bool) {
	s := math.Hypot(u, v)
	if s <= scale.MaxRealisticWind || s == 0 {
		return u, v, false
	}
	k := scale.MaxRealisticWind / s
	return u * k, v * k, true
}

type windCounts struct {
	regimes [4]int
	clamps  int
}

func (e *Engine) updateWind(stats *Stats) {
	w, h := e.params.Scale.Width, e.params.Scale.Height
	dx := e.params.MetersPerCell
	p := e.params

	counts := make([]windCounts, e.backend.Chunks(h, minRows))
	e.backend.ParallelFor(h, minRows, func(chunk, y0, y1 int) {
		c := &counts[chunk]
		for y := y0; y < y1; y++ {
			f := scale.CoriolisParameter(e.latitude.At(0, y))
			for x := 0; x < w; x++ {
				dpdx, dpdy := grid.Gradient(e.seaLevel, x, y, dx)
				u, v, regime := CellWind(f, dpdx, dpdy, p)
				u, v, clamped := clampWind(u, v)
				if clamped {
					c.clamps++
				}
				c.regimes[regime]++
				e.windU.Set(x, y, u)
				e.windV.Set(x, y, v)
			}
		}
	})

	for _, c := range counts {
		stats.GeostrophicCells += c.regimes[RegimeGeostrophic]
		stats.BlendedCells += c.regimes[RegimeBlended]
		stats.FallbackCells += c.regimes[RegimeFallback]
		stats.WindClamps += c.clamps
	}
}
