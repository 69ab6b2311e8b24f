package diagnostics

import "math"

// Metric aggregates reports over a run.
type Metric interface {
	Name() string
	Observe(r QualityReport)
	Value() float64
	Reset()
}

// Stability is the fraction of ticks that raised no warning.
type Stability struct {
	name    string
	flagged int
	samples int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string { return s.name }

func (s *Stability) Observe(r QualityReport) {
	s.samples++
	if len(r.Warnings) > 0 {
		s.flagged++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.flagged)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.flagged = 0
	s.samples = 0
}

// PeakMassError tracks the worst relative mass error seen.
type PeakMassError struct {
	peak float64
}

func NewPeakMassError() *PeakMassError { return &PeakMassError{} }

func (m *PeakMassError) Name() string { return "peak_mass_error" }

func (m *PeakMassError) Observe(r QualityReport) {
	m.peak = math.Max(m.peak, r.MassConservationError)
}

func (m *PeakMassError) Value() float64 { return m.peak }
func (m *PeakMassError) Reset()         { m.peak = 0 }

// PeakCFL tracks the largest CFL ratio seen.
type PeakCFL struct {
	peak float64
}

func NewPeakCFL() *PeakCFL { return &PeakCFL{} }

func (m *PeakCFL) Name() string { return "peak_cfl" }

func (m *PeakCFL) Observe(r QualityReport) {
	m.peak = math.Max(m.peak, r.MaxCFL)
}

func (m *PeakCFL) Value() float64 { return m.peak }
func (m *PeakCFL) Reset()         { m.peak = 0 }

// MeanRealism averages the realistic-cell fraction.
type MeanRealism struct {
	sum     float64
	samples int
}

func NewMeanRealism() *MeanRealism { return &MeanRealism{} }

func (m *MeanRealism) Name() string { return "mean_realism" }

func (m *MeanRealism) Observe(r QualityReport) {
	m.sum += r.RealisticFraction
	m.samples++
}

func (m *MeanRealism) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanRealism) Reset() {
	m.sum = 0
	m.samples = 0
}

// Clamps counts every wind and water speed clamp over the run.
type Clamps struct {
	total int
}

func NewClamps() *Clamps { return &Clamps{} }

func (c *Clamps) Name() string { return "clamps" }

func (c *Clamps) Observe(r QualityReport) {
	c.total += r.Guards.WindClamps + r.Guards.VelocityClamps
}

func (c *Clamps) Value() float64 { return float64(c.total) }
func (c *Clamps) Reset()         { c.total = 0 }

// DefaultMetrics returns one of each built-in metric, with the default
// convergence tracker.
func DefaultMetrics() []Metric {
	return []Metric{
		NewStability(), NewPeakMassError(), NewPeakCFL(), NewMeanRealism(), NewClamps(),
		NewConvergenceTracker(DefaultConvergenceConfig()),
	}
}
