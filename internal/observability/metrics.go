// Package observability exports simulation health to Prometheus.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "terrasim"

// Metrics holds the Prometheus collectors fed by a running simulation.
type Metrics struct {
	Ticks                  prometheus.Counter
	ConservationViolations prometheus.Counter
	Running                prometheus.Gauge

	Score       prometheus.Gauge
	MassError   prometheus.Gauge
	MaxCFL      prometheus.Gauge
	MaxWind     prometheus.Gauge
	Storage     prometheus.Gauge
	DomainKm    prometheus.Gauge
	Realistic   prometheus.Gauge
	SimSeconds  prometheus.Gauge
	TickSeconds prometheus.Histogram
	Timestep    prometheus.Histogram

	Warnings *prometheus.CounterVec // labels: kind
	Guards   *prometheus.CounterVec // labels: guard
	Erosion  *prometheus.CounterVec // labels: pass
}

func newMetrics() *Metrics {
	return &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Completed simulation ticks.",
		}),
		ConservationViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conservation_violations_total",
			Help:      "Ticks that escalated a persistent mass conservation error.",
		}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while a simulation is stepping, 0 otherwise.",
		}),
		Score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Quality score of the latest tick, in [0, 1].",
		}),
		MassError: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mass_error_relative",
			Help:      "Relative water mass error of the latest tick before correction.",
		}),
		MaxCFL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_cfl",
			Help:      "Largest per-cell CFL ratio of the latest tick.",
		}),
		MaxWind: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_wind_mps",
			Help:      "Fastest wind speed of the latest tick.",
		}),
		Storage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "water_storage_m3",
			Help:      "Surface water volume on the grid.",
		}),
		DomainKm: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "domain_km",
			Help:      "Edge length of the simulated domain.",
		}),
		Realistic: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realistic_fraction",
			Help:      "Fraction of cells inside realistic physical bounds.",
		}),
		SimSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulated_seconds",
			Help:      "Simulated time since the run started.",
		}),
		TickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock time spent computing one tick.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		Timestep: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "timestep_seconds",
			Help:      "Hydrodynamic timestep chosen after the CFL limit.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
		}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Diagnostics warnings by kind.",
		}, []string{"kind"}),
		Guards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guards_total",
			Help:      "Numerical safeguards that fired, by guard.",
		}, []string{"guard"}),
		Erosion: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "erosion_ticks_total",
			Help:      "Ticks by the erosion pass that owned them.",
		}, []string{"pass"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Ticks, m.ConservationViolations, m.Running,
		m.Score, m.MassError, m.MaxCFL, m.MaxWind, m.Storage, m.DomainKm, m.Realistic, m.SimSeconds,
		m.TickSeconds, m.Timestep,
		m.Warnings, m.Guards, m.Erosion,
	}
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered collectors, so tests can build
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
