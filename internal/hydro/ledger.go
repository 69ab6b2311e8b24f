package hydro

import "math"

// massEpsilon keeps relative errors finite for a dry domain.
const massEpsilon = 1e-12

// Ledger accumulates water fluxes over the life of an engine.
type Ledger struct {
	Initial     float64
	Rain        float64
	Evaporation float64
	Outflow     float64
	Corrections float64
	Ticks       int64
}

func (l *Ledger) record(r AdvanceResult) {
	l.Rain += r.Rain
	l.Evaporation += r.Evaporation
	l.Outflow += r.Outflow
	l.Corrections += r.Correction
	l.Ticks++
}

// Expected is the storage implied by the fluxes. Corrections are not part
// of it: renormalisation moves storage onto this value.
func (l Ledger) Expected() float64 {
	return l.Initial + l.Rain - l.Evaporation - l.Outflow
}

// RelativeError compares the change in mass against the booked fluxes.
func RelativeError(before, after, rain, evaporation, outflow float64) float64 {
	expected := before + rain - evaporation - outflow
	return math.Abs(after-expected) / math.Max(math.Max(after, expected), massEpsilon)
}

// DrainageMetrics summarises the cumulative water budget.
type DrainageMetrics struct {
	Ledger
	Storage      float64 // m³ currently on the grid
	BalanceError float64 // relative gap between Storage and the ledger

	// EdgeSaturation is the mean depth of the outer ring over the mean
	// depth of the whole grid. Values well above 1 mean water is piling
	// up against the open boundary.
	EdgeSaturation float64
}
