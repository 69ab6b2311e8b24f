package hydro

import (
	"math"

	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

var neighbours8 = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// GhostElevation extrapolates the terrain one cell beyond the edge:
// 2·e(edge) - e(mirror), where mirror is the cell opposite the ghost.
func GhostElevation(elevation grid.Reader[float64], x, y, dx, dy int) float64 {
	w, h := elevation.Width(), elevation.Height()
	mx := min(max(x-dx, 0), w-1)
	my := min(max(y-dy, 0), h-1)
	return 2*elevation.At(x, y) - elevation.At(mx, my)
}

// SteepestDescent returns the unit direction (east, north) and surface
// gradient towards the lowest neighbouring water surface. ok is false
// when no neighbour is lower.
func SteepestDescent(elevation, depth grid.Reader[float64], x, y int, dx float64) (ex, ey, gradient float64, ok bool) {
	w, h := elevation.Width(), elevation.Height()
	here := elevation.At(x, y) + depth.At(x, y)

	for _, n := range neighbours8 {
		nx, ny := x+n[0], y+n[1]
		var surface float64
		if nx >= 0 && nx < w && ny >= 0 && ny < h {
			surface = elevation.At(nx, ny) + depth.At(nx, ny)
		} else {
			surface = GhostElevation(elevation, x, y, n[0], n[1])
		}

		dist := dx
		if n[0] != 0 && n[1] != 0 {
			dist *= math.Sqrt2
		}
		g := (here - surface) / dist
		if g > gradient {
			norm := math.Hypot(float64(n[0]), float64(n[1]))
			ex, ey = float64(n[0])/norm, -float64(n[1])/norm
			gradient = g
			ok = true
		}
	}
	return ex, ey, gradient, ok
}

// ClampVelocity keeps a non-zero speed inside the realistic band.
func ClampVelocity(speed float64) (float64, bool) {
	switch {
	case speed == 0:
		return 0, false
	case speed < scale.MinRealisticVelocity:
		return scale.MinRealisticVelocity, true
	case speed > scale.MaxRealisticVelocity:
		return scale.MaxRealisticVelocity, true
	}
	return speed, false
}

type flowStats struct {
	clamps     int
	degenerate int
	maxSpeed   float64
}

func (e *Engine) computeFlow(elevation grid.Reader[float64]) flowStats {
	w, h := e.params.Scale.Width, e.params.Scale.Height
	dx := e.params.MetersPerCell
	hMin := e.params.MinDepth
	depth := e.depth.Read()

	partial := make([]flowStats, e.backend.Chunks(h, minRows))
	e.backend.ParallelFor(h, minRows, func(chunk, y0, y1 int) {
		ps := &partial[chunk]
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				if depth.AtIndex(i) < hMin {
					e.u.SetIndex(i, 0)
					e.v.SetIndex(i, 0)
					ps.degenerate++
					continue
				}
				ex, ey, g, ok := SteepestDescent(elevation, depth, x, y, dx)
				if !ok {
					e.u.SetIndex(i, 0)
					e.v.SetIndex(i, 0)
					ps.degenerate++
					continue
				}
				speed, clamped := ClampVelocity(math.Sqrt(scale.Gravity * g))
				if clamped {
					ps.clamps++
				}
				ps.maxSpeed = math.Max(ps.maxSpeed, speed)
				e.u.SetIndex(i, speed*ex)
				e.v.SetIndex(i, speed*ey)
			}
		}
	})

	var fs flowStats
	for _, p := range partial {
		fs.clamps += p.clamps
		fs.degenerate += p.degenerate
		fs.maxSpeed = math.Max(fs.maxSpeed, p.maxSpeed)
	}
	return fs
}
