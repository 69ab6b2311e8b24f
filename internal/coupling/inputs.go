package coupling

import (
	"github.com/san-kum/terrasim/internal/atmos"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/hydro"
	"github.com/san-kum/terrasim/internal/scale"
)

// Inputs bundles the snapshots a coupling may read. Hydro may be zero on
// the first tick; couplings then treat every cell as dry.
type Inputs struct {
	Params    scale.Parameters
	Atmos     atmos.Snapshot
	Hydro     hydro.Snapshot
	Elevation grid.Snapshot[float64]
}

func (in Inputs) size() (int, int) {
	return in.Params.Scale.Width, in.Params.Scale.Height
}

func (in Inputs) depth(i int) float64 {
	if in.Hydro.IsZero() {
		return 0
	}
	return in.Hydro.Depth.AtIndex(i)
}

// Coupling computes one EffectGrid from published state.
type Coupling interface {
	Name() string
	Compute(in Inputs) *EffectGrid
}
