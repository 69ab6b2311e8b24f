package coupling

import (
	"math"

	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

// Maritime builds the land-sea breeze pressure contrast: land warmer than
// the nearest sea gets lower pressure, decaying inland over the coastal
// radius. The grid feeds the next tick's pressure forcing.
type Maritime struct{}

func (Maritime) Name() string { return "maritime" }

func (m Maritime) Compute(in Inputs) *EffectGrid {
	w, h := in.size()
	g := NewEffectGrid(m.Name(), Additive, w, h)
	height := in.Params.MaritimeHeight
	radius := in.Params.CoastalRadius
	if height == 0 || in.Atmos.Temperature.IsZero() {
		return g
	}

	dist, nearest := CoastDistance(in.Elevation)
	if nearest == nil {
		return g
	}

	temp := in.Atmos.Temperature
	beta := 1 / (grid.Mean(temp) + scale.KelvinOffset)
	k := scale.AirDensity * scale.Gravity * beta * height
	for i := 0; i < w*h; i++ {
		d := dist[i]
		if d == 0 || d > radius {
			continue
		}
		contrast := temp.AtIndex(i) - temp.AtIndex(nearest[i])
		g.Add(i, -k*contrast*math.Exp(-d/radius))
	}
	return g
}

// CoastDistance returns, for each cell, the chamfer distance in cells to
// the nearest ocean cell (elevation <= 0) and that cell's index. Ocean
// cells have distance 0. nearest is nil when the domain has no ocean.
func CoastDistance(elevation grid.Reader[float64]) (dist []float64, nearest []int) {
	w, h := elevation.Width(), elevation.Height()
	n := w * h
	dist = make([]float64, n)
	nearest = make([]int, n)

	ocean := false
	for i := 0; i < n; i++ {
		if elevation.AtIndex(i) <= 0 {
			nearest[i] = i
			ocean = true
			continue
		}
		dist[i] = math.Inf(1)
		nearest[i] = -1
	}
	if !ocean {
		return dist, nil
	}

	relax := func(i, x, y, dx, dy int, cost float64) {
		nx, ny := x+dx, y+dy
		if nx < 0 || nx >= w || ny < 0 || ny >= h {
			return
		}
		j := ny*w + nx
		if d := dist[j] + cost; d < dist[i] {
			dist[i] = d
			nearest[i] = nearest[j]
		}
	}

	// forward pass looks at already-visited neighbours above and left,
	// backward pass at those below and right
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			relax(i, x, y, -1, 0, 1)
			relax(i, x, y, 0, -1, 1)
			relax(i, x, y, -1, -1, math.Sqrt2)
			relax(i, x, y, 1, -1, math.Sqrt2)
		}
	}
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			i := y*w + x
			relax(i, x, y, 1, 0, 1)
			relax(i, x, y, 0, 1, 1)
			relax(i, x, y, 1, 1, math.Sqrt2)
			relax(i, x, y, -1, 1, math.Sqrt2)
		}
	}
	return dist, nearest
}
