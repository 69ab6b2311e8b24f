package diagnostics

import (
	"math"
	"testing"

	"github.com/san-kum/terrasim/internal/grid"
)

func TestChangeMetrics(t *testing.T) {
	in := calmInput(t, 4, 4)
	delta := grid.New[float64](4, 4)
	delta.Set(1, 1, -0.002)
	delta.Set(2, 3, 0.001)
	delta.Set(0, 0, 5e-5)
	in.ElevationDelta = grid.Take[float64](delta, 1)
	in.Result.MassAfter = in.Result.MassBefore + 0.003*in.Params.CellArea

	r := NewValidator(Options{}).Observe(in)
	c := r.Change
	if math.Abs(c.Total-(0.002+0.001+5e-5+0.003)) > 1e-12 {
		t.Errorf("unexpected total %g", c.Total)
	}
	if math.Abs(c.Max-0.003) > 1e-12 {
		t.Errorf("water change should set the max, got %g", c.Max)
	}
	if math.Abs(c.Average-c.Total/16) > 1e-15 {
		t.Errorf("unexpected average %g", c.Average)
	}
	if c.Significant != 2 {
		t.Errorf("expected 2 significant cells, got %d", c.Significant)
	}
}

func changeReport(tick int64, total float64) QualityReport {
	return QualityReport{Tick: tick, Change: ChangeMetrics{Total: total, Average: total / 100, Max: total}}
}

func TestConvergenceNeedsConsecutiveTicks(t *testing.T) {
	c := NewConvergenceTracker(ConvergenceConfig{
		MinTicks:         5,
		AverageThreshold: 1e-3,
		Consecutive:      3,
		Criteria:         []Criterion{AverageChange},
	})

	totals := []float64{1, 1, 0.01, 0.01, 1, 0.01, 0.01, 0.01, 0.01}
	for i, v := range totals {
		c.Observe(changeReport(int64(i+1), v))
		if i < 7 && c.Converged() {
			t.Fatalf("converged too early at tick %d", i+1)
		}
	}
	st := c.Stats()
	if !st.Converged || st.ConvergedAt != 8 {
		t.Fatalf("expected convergence at tick 8, got %+v", st)
	}
	if math.Abs(st.Ratio-0.01) > 1e-12 {
		t.Errorf("expected ratio 0.01, got %g", st.Ratio)
	}
	if c.Value() != 1 {
		t.Errorf("converged value should be 1, got %g", c.Value())
	}

	c.Observe(changeReport(10, 5))
	if !c.Converged() {
		t.Error("convergence must hold until reset")
	}
	c.Reset()
	if c.Converged() || c.Stats().Ticks != 0 || c.Value() != 0 {
		t.Errorf("reset should clear the tracker, got %+v", c.Stats())
	}
}

func TestConvergenceRateAndVariance(t *testing.T) {
	c := NewConvergenceTracker(ConvergenceConfig{
		RateThreshold:     1e-6,
		VarianceThreshold: 1e-9,
		Window:            30,
		Consecutive:       1,
		Criteria:          []Criterion{RateStable, VarianceStable},
	})
	for i := 0; i < 19; i++ {
		c.Observe(changeReport(int64(i+1), 0.2))
	}
	if c.Converged() {
		t.Fatal("variance needs 20 samples")
	}
	c.Observe(changeReport(20, 0.2))
	if !c.Converged() {
		t.Error("a flat series should satisfy rate and variance")
	}

	noisy := NewConvergenceTracker(ConvergenceConfig{
		RateThreshold: 1e-3,
		Consecutive:   1,
		Criteria:      []Criterion{RateStable},
	})
	for i := 0; i < 40; i++ {
		noisy.Observe(changeReport(int64(i+1), 0.5+0.1*float64(i%2)))
	}
	if noisy.Converged() {
		t.Error("an oscillating series is not stable")
	}
}

func TestConvergenceProgressAndEstimate(t *testing.T) {
	c := NewConvergenceTracker(ConvergenceConfig{
		MinTicks:       1000,
		TotalThreshold: 1e-3,
		Criteria:       []Criterion{TotalChange},
	})
	if _, ok := c.Remaining(); ok {
		t.Error("no estimate before any tick")
	}
	for i := 0; i < 60; i++ {
		c.Observe(changeReport(int64(i+1), 1-0.01*float64(i)))
	}
	if v := c.Value(); math.Abs(v-0.59) > 1e-9 {
		t.Errorf("expected progress 0.59, got %g", v)
	}
	n, ok := c.Remaining()
	if !ok || n != 45 {
		t.Errorf("expected 45 ticks remaining, got %d (%v)", n, ok)
	}
}
