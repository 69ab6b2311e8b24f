package diagnostics

import "fmt"

type WarningKind int

const (
	WarnVelocity WarningKind = iota
	WarnCFL
	WarnMass
	WarnBoundary
	WarnRenormalised
	WarnCouplingConflict
	WarnConservation
)

func (k WarningKind) String() string {
	switch k {
	case WarnVelocity:
		return "velocity"
	case WarnCFL:
		return "cfl"
	case WarnMass:
		return "mass"
	case WarnBoundary:
		return "boundary"
	case WarnRenormalised:
		return "renormalised"
	case WarnCouplingConflict:
		return "coupling_conflict"
	case WarnConservation:
		return "conservation"
	}
	return "unknown"
}

type Warning struct {
	Kind    WarningKind
	Message string
}

func (w Warning) String() string { return fmt.Sprintf("%s: %s", w.Kind, w.Message) }

// MomentumBudget summarises motion in both fluids.
type MomentumBudget struct {
	Water         float64 // kg·m/s per m² of domain, depth-weighted
	Air           float64 // mean wind speed, m/s
	BoundaryRatio float64
}

// Guards counts the numerical safeguards that fired during the tick.
type Guards struct {
	WindClamps      int
	VelocityClamps  int
	PressureClamps  int
	DegenerateCells int
	DriedCells      int
	FallbackCells   int
	CouplingRefused int
}

// QualityReport is built once per tick and never modified afterwards.
type QualityReport struct {
	Tick int64

	MassConservationError float64
	ResidualMassError     float64
	CFLViolations         int
	MaxCFL                float64
	Momentum              MomentumBudget
	RealisticFraction     float64
	Score                 float64
	Guards                Guards
	Change                ChangeMetrics

	Warnings    []Warning
	Escalated   bool
	Consecutive int
}

func (r QualityReport) HasWarning(kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
