// Package diagnostics scores every tick of a simulation without touching
// its state.
package diagnostics

import (
	"fmt"
	"math"

	"github.com/san-kum/terrasim/internal/atmos"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/hydro"
	"github.com/san-kum/terrasim/internal/scale"
)

const (
	DefaultPersistTicks = 3
	DefaultHistory      = 128

	massWeight    = 0.4
	cflWeight     = 0.3
	realismWeight = 0.3
)

// Input is everything the validator reads for one tick.
type Input struct {
	Tick            int64
	Params          scale.Parameters
	Atmos           atmos.Snapshot
	Hydro           hydro.Snapshot
	Result          hydro.AdvanceResult
	CouplingRefused int
	// ElevationDelta is the bed change applied this tick; it may be zero.
	ElevationDelta grid.Snapshot[float64]
}

type Options struct {
	// PersistTicks is how many consecutive ticks above the hard ceiling
	// are tolerated before a report escalates.
	PersistTicks int
	HistorySize  int
	Metrics      []Metric
}

type Validator struct {
	persist     int
	consecutive int
	history     *History
	metrics     []Metric
}

func NewValidator(opts Options) *Validator {
	if opts.PersistTicks <= 0 {
		opts.PersistTicks = DefaultPersistTicks
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistory
	}
	return &Validator{
		persist: opts.PersistTicks,
		history: NewHistory(opts.HistorySize),
		metrics: opts.Metrics,
	}
}

func (v *Validator) AddMetric(m Metric) { v.metrics = append(v.metrics, m) }

func (v *Validator) History() *History { return v.history }

// Metrics returns the current value of every registered metric by name.
func (v *Validator) Metrics() map[string]float64 {
	out := make(map[string]float64, len(v.metrics))
	for _, m := range v.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Reset clears the escalation streak, history and metrics.
func (v *Validator) Reset() {
	v.consecutive = 0
	v.history.Reset()
	for _, m := range v.metrics {
		m.Reset()
	}
}

// Observe builds the report for one tick.
func (v *Validator) Observe(in Input) QualityReport {
	r := QualityReport{
		Tick:                  in.Tick,
		MassConservationError: in.Result.RawError,
		ResidualMassError:     in.Result.RelativeError,
	}

	cells := in.Params.Scale.Cells()
	r.CFLViolations, r.MaxCFL = cflViolations(in)
	r.RealisticFraction = realisticFraction(in)
	r.Momentum = momentum(in)
	r.Change = change(in)
	r.Guards = Guards{
		WindClamps:      in.Atmos.Stats.WindClamps,
		VelocityClamps:  in.Result.VelocityClamps,
		PressureClamps:  in.Atmos.Stats.PressureClamps,
		DegenerateCells: in.Result.DegenerateCells,
		DriedCells:      in.Result.DriedCells,
		FallbackCells:   in.Atmos.Stats.FallbackCells,
		CouplingRefused: in.CouplingRefused,
	}
	r.Score = Score(r.MassConservationError, r.CFLViolations, cells, r.RealisticFraction)

	if r.MassConservationError > scale.MassHardCeiling {
		v.consecutive++
	} else {
		v.consecutive = 0
	}
	r.Consecutive = v.consecutive
	r.Escalated = v.consecutive > v.persist

	r.Warnings = warnings(in, r)

	v.history.Add(r)
	for _, m := range v.metrics {
		m.Observe(r)
	}
	return r
}

// Score weighs mass conservation, CFL compliance and realism into [0, 1].
func Score(massError float64, violations, cells int, realistic float64) float64 {
	massScore := 1 - math.Min(massError/scale.MassHardCeiling, 1)
	if math.IsNaN(massScore) {
		massScore = 0
	}
	cflScore := 1.0
	if cells > 0 {
		cflScore = 1 - float64(violations)/float64(cells)
	}
	s := massWeight*massScore + cflWeight*cflScore + realismWeight*realistic
	return math.Max(0, math.Min(1, s))
}

func cflViolations(in Input) (int, float64) {
	if in.Hydro.IsZero() || in.Result.Dt <= 0 {
		return 0, 0
	}
	k := in.Result.Dt / in.Params.MetersPerCell
	n := 0
	worst := 0.0
	for i := 0; i < in.Hydro.Depth.Len(); i++ {
		c := (in.Hydro.Speed(i) + math.Sqrt(scale.Gravity*math.Max(in.Hydro.Depth.AtIndex(i), 0))) * k
		if c > 1 {
			n++
		}
		worst = math.Max(worst, c)
	}
	return n, worst
}

// Realistic reports whether one cell's state is physically plausible.
func Realistic(p scale.Parameters, temp, press, wind, water float64) bool {
	return temp >= scale.RealisticTempLow && temp <= scale.RealisticTempHigh &&
		press >= p.PressureMin && press <= p.PressureMax &&
		wind <= scale.RealisticWind &&
		water <= scale.MaxRealisticVelocity
}

func realisticFraction(in Input) float64 {
	cells := in.Params.Scale.Cells()
	if cells == 0 || in.Atmos.IsZero() {
		return 0
	}
	ok := 0
	for i := 0; i < cells; i++ {
		water := 0.0
		if !in.Hydro.IsZero() {
			water = in.Hydro.Speed(i)
		}
		if Realistic(in.Params,
			in.Atmos.Temperature.AtIndex(i),
			in.Atmos.Pressure.AtIndex(i),
			in.Atmos.WindSpeed(i),
			water) {
			ok++
		}
	}
	return float64(ok) / float64(cells)
}

func momentum(in Input) MomentumBudget {
	var m MomentumBudget
	cells := in.Params.Scale.Cells()
	if cells == 0 {
		return m
	}
	if !in.Hydro.IsZero() {
		for i := 0; i < cells; i++ {
			m.Water += waterDensity * in.Hydro.Depth.AtIndex(i) * in.Hydro.Speed(i)
		}
		m.Water /= float64(cells)
	}
	if !in.Atmos.IsZero() {
		for i := 0; i < cells; i++ {
			m.Air += in.Atmos.WindSpeed(i)
		}
		m.Air /= float64(cells)
		m.BoundaryRatio = in.Atmos.Stats.BoundaryRatio
	}
	return m
}

const waterDensity = 1000.0

func change(in Input) ChangeMetrics {
	var c ChangeMetrics
	for i := 0; i < in.ElevationDelta.Len(); i++ {
		d := math.Abs(in.ElevationDelta.AtIndex(i))
		c.Total += d
		c.Max = math.Max(c.Max, d)
		if d > significantChange {
			c.Significant++
		}
	}
	if in.Params.CellArea > 0 {
		w := math.Abs(in.Result.MassAfter-in.Result.MassBefore) / in.Params.CellArea
		c.Total += w
		c.Max = math.Max(c.Max, w)
	}
	if cells := in.Params.Scale.Cells(); cells > 0 {
		c.Average = c.Total / float64(cells)
	}
	return c
}

func warnings(in Input, r QualityReport) []Warning {
	var out []Warning
	add := func(k WarningKind, format string, args ...any) {
		out = append(out, Warning{Kind: k, Message: fmt.Sprintf(format, args...)})
	}

	if in.Result.MaxSpeed >= scale.VelocityWarning {
		add(WarnVelocity, "water speed %.2f m/s near limit %.0f", in.Result.MaxSpeed, scale.MaxRealisticVelocity)
	}
	if r.MaxCFL > scale.CFLWarning {
		add(WarnCFL, "CFL ratio %.3f above %.1f", r.MaxCFL, scale.CFLWarning)
	}
	if r.MassConservationError > scale.MassWarning {
		add(WarnMass, "relative mass error %.3g", r.MassConservationError)
	}
	if in.Atmos.Stats.BoundaryAnomaly {
		add(WarnBoundary, "edge wind %.2fx interior", in.Atmos.Stats.BoundaryRatio)
	}
	if in.Result.Renormalised {
		add(WarnRenormalised, "water mass corrected by %.3g m³", in.Result.Correction)
	}
	if in.CouplingRefused > 0 {
		add(WarnCouplingConflict, "%d conflicting coupling writes refused", in.CouplingRefused)
	}
	if r.Escalated {
		add(WarnConservation, "mass error above %.0e for %d ticks", scale.MassHardCeiling, r.Consecutive)
	}
	return out
}
