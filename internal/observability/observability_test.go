package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/terrasim/internal/diagnostics"
	"github.com/san-kum/terrasim/internal/hydro"
	"github.com/san-kum/terrasim/internal/sim"
)

func frame(tick int64, escalated bool) sim.Frame {
	return sim.Frame{
		Tick:    tick,
		SimTime: float64(tick) * 600,
		Result:  hydro.AdvanceResult{Dt: 600, MassAfter: 1234},
		Report: diagnostics.QualityReport{
			Tick:                  tick,
			MassConservationError: 2e-9,
			MaxCFL:                0.4,
			RealisticFraction:     0.98,
			Score:                 0.97,
			Guards:                diagnostics.Guards{WindClamps: 2, FallbackCells: 5},
			Warnings:              []diagnostics.Warning{{Kind: diagnostics.WarnCFL, Message: "close"}},
			Escalated:             escalated,
		},
		Erosion:  sim.AuthorityAlternate.PassFor(tick),
		WallTime: 3 * time.Millisecond,
	}
}

func TestObserverRecordsFrames(t *testing.T) {
	m := NewMetricsForTesting()
	o := NewObserver(m)

	o.OnFrame(frame(0, false))
	o.OnFrame(frame(1, true))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConservationViolations))
	assert.Equal(t, 0.97, testutil.ToFloat64(m.Score))
	assert.Equal(t, 2e-9, testutil.ToFloat64(m.MassError))
	assert.Equal(t, 1234.0, testutil.ToFloat64(m.Storage))
	assert.Equal(t, 600.0, testutil.ToFloat64(m.SimSeconds))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Guards.WithLabelValues("wind_clamp")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.Guards.WithLabelValues("coriolis_fallback")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Warnings.WithLabelValues("cfl")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Erosion.WithLabelValues("hydraulic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Erosion.WithLabelValues("aeolian")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TickSeconds), "one histogram series")
}

func TestStartedStopped(t *testing.T) {
	m := NewMetricsForTesting()
	o := NewObserver(m)

	o.Started(1000)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Running))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.DomainKm))
	o.Stopped()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Running))
}

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := NewMetrics(reg)
	m.Ticks.Inc()

	n, err := testutil.GatherAndCount(reg, "terrasim_ticks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Panics(t, func() { NewMetrics(reg) }, "registering twice must panic")
}

func TestServerRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Score.Set(0.5)
	srv := NewServer(":0", reg, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "terrasim_quality_score 0.5"))

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
