package hydro

import (
	"math"

	"github.com/san-kum/terrasim/internal/grid"
)

// Snapshot is an immutable copy of the water state after a tick. Velocity
// is physical: U eastward, V northward, in m/s.
type Snapshot struct {
	Tick     int64
	Depth    grid.Snapshot[float64]
	U        grid.Snapshot[float64]
	V        grid.Snapshot[float64]
	Sediment grid.Snapshot[float64]
}

func (s Snapshot) IsZero() bool { return s.Depth.IsZero() }

func (s Snapshot) Speed(i int) float64 {
	return math.Hypot(s.U.AtIndex(i), s.V.AtIndex(i))
}

// AdvanceResult describes one tick. Volumes are in m³.
type AdvanceResult struct {
	Dt float64

	MassBefore  float64
	MassAfter   float64
	Rain        float64
	Evaporation float64
	Outflow     float64

	// RawError is the relative ledger error before renormalisation;
	// RelativeError is what remains after it.
	RawError      float64
	RelativeError float64
	Renormalised  bool
	Correction    float64

	VelocityClamps  int
	DegenerateCells int
	DriedCells      int
	MaxSpeed        float64
	MaxCFL          float64

	Eroded         float64 // m, summed over cells
	Deposited      float64
	SedimentExport float64
	ElevationDelta grid.Snapshot[float64]
}

// Balance returns rain - evaporation - outflow.
func (r AdvanceResult) Balance() float64 {
	return r.Rain - r.Evaporation - r.Outflow
}
