package scale

import (
	"math"

	"github.com/san-kum/terrasim/internal/grid"
)

// MaxCells bounds the grid size accepted by Derive.
const MaxCells = 1 << 24

// WorldScale is the physical size of the domain and its resolution. It is
// comparable and used as a cache key.
type WorldScale struct {
	DomainKm float64
	Width    int
	Height   int
}

func NewWorldScale(domainKm float64, width, height int) (WorldScale, error) {
	ws := WorldScale{DomainKm: domainKm, Width: width, Height: height}
	return ws, ws.Validate()
}

func (s WorldScale) Validate() error {
	if math.IsNaN(s.DomainKm) || math.IsInf(s.DomainKm, 0) || s.DomainKm <= 0 {
		return configErr("domain.size_km", s.DomainKm, "must be a positive finite number")
	}
	if s.Width <= 0 {
		return configErr("domain.width", s.Width, "must be positive")
	}
	if s.Height <= 0 {
		return configErr("domain.height", s.Height, "must be positive")
	}
	if s.Width*s.Height > MaxCells {
		return configErr("domain.width*height", s.Width*s.Height, "exceeds cell limit")
	}
	return nil
}

// MetersPerCell is the edge length of one cell. The longer axis spans the
// full domain.
func (s WorldScale) MetersPerCell() float64 {
	return s.DomainKm * 1000 / float64(max(s.Width, s.Height))
}

func (s WorldScale) DomainMeters() float64 { return s.DomainKm * 1000 }

func (s WorldScale) Cells() int { return s.Width * s.Height }

func (s WorldScale) CellArea() float64 {
	m := s.MetersPerCell()
	return m * m
}

// ReferenceAreaRatio compares the cell count against the 240x120 reference grid.
func (s WorldScale) ReferenceAreaRatio() float64 {
	return float64(ReferenceWidth*ReferenceHeight) / float64(s.Cells())
}

// ExtentYKm is the north-south extent of the domain.
func (s WorldScale) ExtentYKm() float64 {
	return s.MetersPerCell() * float64(s.Height) / 1000
}

// CoriolisParameter returns f = 2Ω·sin(lat).
func CoriolisParameter(latDeg float64) float64 {
	return 2 * EarthRotation * math.Sin(latDeg*math.Pi/180)
}

// LatitudeGrid fills a grid with the latitude of each row.
func LatitudeGrid(p Parameters) *grid.Grid[float64] {
	g := grid.New[float64](p.Scale.Width, p.Scale.Height)
	for y := 0; y < p.Scale.Height; y++ {
		lat := p.Latitude(y)
		row := g.Row(y)
		for x := range row {
			row[x] = lat
		}
	}
	return g
}
