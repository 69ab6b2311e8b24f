package observability

import (
	"github.com/san-kum/terrasim/internal/sim"
)

// Observer feeds every frame of a simulator into Metrics.
type Observer struct {
	m *Metrics
}

func NewObserver(m *Metrics) *Observer { return &Observer{m: m} }

var _ sim.Observer = (*Observer)(nil)

func (o *Observer) OnFrame(f sim.Frame) {
	m := o.m
	r := f.Report

	m.Ticks.Inc()
	m.Score.Set(r.Score)
	m.MassError.Set(r.MassConservationError)
	m.MaxCFL.Set(r.MaxCFL)
	m.MaxWind.Set(f.Atmos.MaxWindSpeed())
	m.Storage.Set(f.Result.MassAfter)
	m.Realistic.Set(r.RealisticFraction)
	m.SimSeconds.Set(f.SimTime)
	m.TickSeconds.Observe(f.WallTime.Seconds())
	m.Timestep.Observe(f.Result.Dt)
	m.Erosion.WithLabelValues(f.Erosion.String()).Inc()

	if r.Escalated {
		m.ConservationViolations.Inc()
	}
	for _, w := range r.Warnings {
		m.Warnings.WithLabelValues(w.Kind.String()).Inc()
	}

	g := r.Guards
	for _, c := range []struct {
		name string
		n    int
	}{
		{"wind_clamp", g.WindClamps},
		{"velocity_clamp", g.VelocityClamps},
		{"pressure_clamp", g.PressureClamps},
		{"degenerate_cell", g.DegenerateCells},
		{"dried_cell", g.DriedCells},
		{"coriolis_fallback", g.FallbackCells},
		{"coupling_refused", g.CouplingRefused},
	} {
		if c.n > 0 {
			m.Guards.WithLabelValues(c.name).Add(float64(c.n))
		}
	}
}

// Started marks a run as active for domainKm.
func (o *Observer) Started(domainKm float64) {
	o.m.Running.Set(1)
	o.m.DomainKm.Set(domainKm)
}

func (o *Observer) Stopped() { o.m.Running.Set(0) }
