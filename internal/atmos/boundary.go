package atmos

import (
	"math"

	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

// SpongeFactor is the damping applied at distance d cells from the edge
// for a sponge of width cells. Cells at or beyond width are untouched.
func SpongeFactor(d int, width float64) float64 {
	fd := float64(d)
	if width <= 0 || fd >= width {
		return 1
	}
	r := (width - fd) / width
	return 1 - 0.9*r*r
}

func (e *Engine) applyBoundary(stats *Stats) {
	w, h := e.params.Scale.Width, e.params.Scale.Height
	zeroGradient(e.windU)
	zeroGradient(e.windV)

	sponge := e.params.SpongeWidth
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			k := SpongeFactor(grid.EdgeDistance(w, h, x, y), sponge)
			if k == 1 {
				continue
			}
			i := y*w + x
			e.windU.SetIndex(i, e.windU.AtIndex(i)*k)
			e.windV.SetIndex(i, e.windV.AtIndex(i)*k)
		}
	}

	stats.BoundaryRatio = boundaryRatio(e.windU, e.windV)
	stats.BoundaryAnomaly = stats.BoundaryRatio > scale.BoundaryAnomalyRatio
}

// zeroGradient copies the first interior ring onto the outer ring. Grids
// thinner than three cells have no interior and are left alone.
func zeroGradient(g *grid.Grid[float64]) {
	w, h := g.Width(), g.Height()
	if w < 3 || h < 3 {
		return
	}
	for x := 0; x < w; x++ {
		ix := min(max(x, 1), w-2)
		g.Set(x, 0, g.At(ix, 1))
		g.Set(x, h-1, g.At(ix, h-2))
	}
	for y := 1; y < h-1; y++ {
		g.Set(0, y, g.At(1, y))
		g.Set(w-1, y, g.At(w-2, y))
	}
}

// boundaryRatio compares mean speed on the outer ring with the interior.
func boundaryRatio(u, v grid.Reader[float64]) float64 {
	w, h := u.Width(), u.Height()
	var edge, interior float64
	var ne, ni int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := math.Hypot(u.At(x, y), v.At(x, y))
			if grid.EdgeDistance(w, h, x, y) == 0 {
				edge += s
				ne++
			} else {
				interior += s
				ni++
			}
		}
	}
	if ne == 0 || ni == 0 || edge == 0 {
		return 0
	}
	im := math.Max(interior/float64(ni), 1e-9)
	return (edge / float64(ne)) / im
}
