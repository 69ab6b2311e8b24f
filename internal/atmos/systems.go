package atmos

import (
	"math"
	"sort"

	"github.com/san-kum/terrasim/internal/grid"
)

type SystemKind int

const (
	Low SystemKind = iota
	High
)

func (k SystemKind) String() string {
	if k == High {
		return "high"
	}
	return "low"
}

// PressureSystem is a local pressure extremum.
type PressureSystem struct {
	Kind     SystemKind
	X, Y     int
	Pressure float64
	Anomaly  float64 // Pa relative to the domain mean
}

// DetectSystems finds interior cells of the sea-level pressure field that
// are strict extrema of their eight neighbours and deviate from the domain
// mean by more than threshold Pa. Results are ordered by |Anomaly|, largest
// first.
func DetectSystems(s Snapshot, threshold float64) []PressureSystem {
	p := s.SeaLevelPressure
	w, h := p.Width(), p.Height()
	if w < 3 || h < 3 {
		return nil
	}
	mean := grid.Mean(p)

	var out []PressureSystem
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := p.At(x, y)
			a := c - mean
			if math.Abs(a) <= threshold {
				continue
			}
			isMin, isMax := true, true
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					n := p.At(x+dx, y+dy)
					if n <= c {
						isMin = false
					}
					if n >= c {
						isMax = false
					}
				}
			}
			switch {
			case isMin && a < 0:
				out = append(out, PressureSystem{Kind: Low, X: x, Y: y, Pressure: c, Anomaly: a})
			case isMax && a > 0:
				out = append(out, PressureSystem{Kind: High, X: x, Y: y, Pressure: c, Anomaly: a})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Anomaly) > math.Abs(out[j].Anomaly)
	})
	return out
}

// Vorticity returns the relative vorticity ζ = ∂v/∂x - ∂u/∂y in s⁻¹.
func Vorticity(s Snapshot, metersPerCell float64) *grid.Grid[float64] {
	w, h := s.WindU.Width(), s.WindU.Height()
	out := grid.New[float64](w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dvdx, _ := grid.Gradient(s.WindV, x, y, metersPerCell)
			_, dudy := grid.Gradient(s.WindU, x, y, metersPerCell)
			out.Set(x, y, dvdx-dudy)
		}
	}
	return out
}
