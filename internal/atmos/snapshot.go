package atmos

import (
	"math"

	"github.com/san-kum/terrasim/internal/grid"
)

// Stats counts the guarded decisions taken during one Advance.
type Stats struct {
	GeostrophicCells int
	BlendedCells     int
	FallbackCells    int
	WindClamps       int
	PressureClamps   int

	// BoundaryRatio is the mean edge wind speed over the mean interior
	// wind speed after the sponge.
	BoundaryRatio   float64
	BoundaryAnomaly bool

	Temperature StaleReason
}

// Snapshot is an immutable copy of the atmospheric state after a tick.
type Snapshot struct {
	Tick             int64
	Temperature      grid.Snapshot[float64]
	Pressure         grid.Snapshot[float64]
	SeaLevelPressure grid.Snapshot[float64]
	ThermalAnomaly   grid.Snapshot[float64]
	WindU            grid.Snapshot[float64]
	WindV            grid.Snapshot[float64]
	Stats            Stats
}

func (s Snapshot) IsZero() bool { return s.Temperature.IsZero() }

// WindSpeed returns the wind magnitude at flat index i.
func (s Snapshot) WindSpeed(i int) float64 {
	return math.Hypot(s.WindU.AtIndex(i), s.WindV.AtIndex(i))
}

// MaxWindSpeed scans every cell.
func (s Snapshot) MaxWindSpeed() float64 {
	m := 0.0
	for i := 0; i < s.WindU.Len(); i++ {
		m = math.Max(m, s.WindSpeed(i))
	}
	return m
}
