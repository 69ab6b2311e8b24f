package diagnostics

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/san-kum/terrasim/internal/atmos"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/hydro"
	"github.com/san-kum/terrasim/internal/scale"
)

func calmInput(t *testing.T, w, h int) Input {
	t.Helper()
	p, err := scale.Derive(100, w, h)
	if err != nil {
		t.Fatal(err)
	}
	zero := grid.Take[float64](grid.New[float64](w, h), 1)
	return Input{
		Tick:   1,
		Params: p,
		Atmos: atmos.Snapshot{
			Temperature:      grid.Take[float64](grid.NewFilled(w, h, 15.0), 1),
			Pressure:         grid.Take[float64](grid.NewFilled(w, h, scale.SeaLevelPress), 1),
			SeaLevelPressure: grid.Take[float64](grid.NewFilled(w, h, scale.SeaLevelPress), 1),
			ThermalAnomaly:   zero,
			WindU:            zero,
			WindV:            zero,
		},
		Hydro: hydro.Snapshot{
			Depth:    grid.Take[float64](grid.NewFilled(w, h, 0.01), 1),
			U:        zero,
			V:        zero,
			Sediment: zero,
		},
		Result: hydro.AdvanceResult{Dt: 10, MassBefore: 1, MassAfter: 1},
	}
}

func TestPerfectTickScoresOne(t *testing.T) {
	v := NewValidator(Options{})
	r := v.Observe(calmInput(t, 8, 8))

	if r.Score != 1 {
		t.Errorf("expected score 1, got %f", r.Score)
	}
	if r.RealisticFraction != 1 {
		t.Errorf("expected all cells realistic, got %f", r.RealisticFraction)
	}
	if r.CFLViolations != 0 {
		t.Errorf("expected no CFL violations, got %d", r.CFLViolations)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", r.Warnings)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		mass       float64
		violations int
		realistic  float64
		expected   float64
	}{
		{"perfect", 0, 0, 1, 1},
		{"mass at ceiling", scale.MassHardCeiling, 0, 1, 0.6},
		{"half mass", scale.MassHardCeiling / 2, 0, 1, 0.8},
		{"all violating", 0, 100, 1, 0.7},
		{"unrealistic", 0, 0, 0, 0.7},
		{"nan mass", math.NaN(), 0, 1, 0.6},
		{"worst", 1, 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.mass, tt.violations, 100, tt.realistic)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestCFLViolationsCounted(t *testing.T) {
	in := calmInput(t, 4, 4)
	u := grid.New[float64](4, 4)
	u.Set(1, 1, 9)
	in.Hydro.U = grid.Take[float64](u, 1)
	in.Result.Dt = in.Params.MetersPerCell / 5

	r := NewValidator(Options{}).Observe(in)
	if r.CFLViolations != 1 {
		t.Fatalf("expected 1 violation, got %d", r.CFLViolations)
	}
	if r.MaxCFL <= 1 {
		t.Errorf("expected max CFL above 1, got %f", r.MaxCFL)
	}
	if !r.HasWarning(WarnCFL) {
		t.Error("expected a CFL warning")
	}
}

func TestRealisticFraction(t *testing.T) {
	in := calmInput(t, 2, 2)
	temp := grid.NewFilled(2, 2, 15.0)
	temp.Set(0, 0, 52)
	in.Atmos.Temperature = grid.Take[float64](temp, 1)
	wind := grid.New[float64](2, 2)
	wind.Set(1, 0, 60)
	in.Atmos.WindU = grid.Take[float64](wind, 1)

	r := NewValidator(Options{}).Observe(in)
	if r.RealisticFraction != 0.5 {
		t.Errorf("expected 0.5 realistic, got %f", r.RealisticFraction)
	}
}

func TestWarnings(t *testing.T) {
	in := calmInput(t, 4, 4)
	in.Result.MaxSpeed = 8.5
	in.Result.RawError = 2e-5
	in.Result.Renormalised = true
	in.Atmos.Stats.BoundaryAnomaly = true
	in.Atmos.Stats.BoundaryRatio = 2.5
	in.CouplingRefused = 3

	r := NewValidator(Options{}).Observe(in)
	var kinds []WarningKind
	for _, w := range r.Warnings {
		kinds = append(kinds, w.Kind)
	}
	want := []WarningKind{WarnVelocity, WarnMass, WarnBoundary, WarnRenormalised, WarnCouplingConflict}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestEscalationAfterPersistentError(t *testing.T) {
	v := NewValidator(Options{})
	in := calmInput(t, 4, 4)
	in.Result.RawError = 5e-3

	var escalated []bool
	for i := 0; i < 5; i++ {
		in.Tick = int64(i + 1)
		escalated = append(escalated, v.Observe(in).Escalated)
	}
	if diff := cmp.Diff([]bool{false, false, false, true, true}, escalated); diff != "" {
		t.Errorf("escalation mismatch (-want +got):\n%s", diff)
	}

	in.Result.RawError = 0
	if r := v.Observe(in); r.Escalated || r.Consecutive != 0 {
		t.Errorf("a clean tick must clear the streak, got %+v", r.Consecutive)
	}
}

func TestHistoryRing(t *testing.T) {
	h := NewHistory(4)
	if _, ok := h.Latest(); ok {
		t.Error("empty history has no latest report")
	}
	for i := 1; i <= 6; i++ {
		h.Add(QualityReport{Tick: int64(i), Score: float64(i) / 10})
	}
	if h.Len() != 4 {
		t.Fatalf("expected 4 reports, got %d", h.Len())
	}

	var ticks []int64
	for _, r := range h.Reports() {
		ticks = append(ticks, r.Tick)
	}
	if diff := cmp.Diff([]int64{3, 4, 5, 6}, ticks); diff != "" {
		t.Errorf("ring order mismatch (-want +got):\n%s", diff)
	}

	latest, _ := h.Latest()
	if latest.Tick != 6 {
		t.Errorf("expected latest tick 6, got %d", latest.Tick)
	}
	if m := h.Mean(ScoreOf); math.Abs(m-0.45) > 1e-12 {
		t.Errorf("expected mean 0.45, got %f", m)
	}
	if tr := h.Trend(ScoreOf); math.Abs(tr-0.1) > 1e-12 {
		t.Errorf("expected trend 0.1, got %f", tr)
	}

	h.Reset()
	if h.Len() != 0 || h.Trend(ScoreOf) != 0 {
		t.Error("reset history must be empty")
	}
}

func TestMetrics(t *testing.T) {
	v := NewValidator(Options{Metrics: DefaultMetrics()})
	in := calmInput(t, 4, 4)
	in.Atmos.Stats.WindClamps = 2
	in.Result.VelocityClamps = 1
	v.Observe(in)

	in.Result.RawError = 3e-5
	v.Observe(in)

	got := v.Metrics()
	want := map[string]float64{
		"stability":       0.5,
		"peak_mass_error": 3e-5,
		"peak_cfl":        got["peak_cfl"],
		"mean_realism":    1,
		"clamps":          6,
		"convergence":     0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
	if got["peak_cfl"] <= 0 {
		t.Error("peak CFL should be positive with standing water")
	}

	v.Reset()
	if v.Metrics()["clamps"] != 0 || v.History().Len() != 0 {
		t.Error("reset must clear metrics and history")
	}
}

func TestDominantPeriod(t *testing.T) {
	sine := make([]float64, 64)
	alternating := make([]float64, 64)
	for i := range sine {
		sine[i] = math.Sin(2 * math.Pi * float64(i) / 8)
		alternating[i] = 0.9 + 0.05*float64(1-2*(i%2))
	}

	if p := DominantPeriod(sine); math.Abs(p-8) > 1e-9 {
		t.Errorf("expected period 8, got %f", p)
	}
	if p := DominantPeriod(alternating); math.Abs(p-2) > 1e-9 {
		t.Errorf("expected period 2, got %f", p)
	}
	if p := DominantPeriod(make([]float64, 32)); p != 0 {
		t.Errorf("flat series should have no period, got %f", p)
	}
	if PowerSpectrum([]float64{1}) != nil {
		t.Error("single sample has no spectrum")
	}

	h := NewHistory(16)
	for i := 0; i < 16; i++ {
		h.Add(QualityReport{Score: alternating[i]})
	}
	if p := h.DominantPeriod(ScoreOf); math.Abs(p-2) > 1e-9 {
		t.Errorf("history: expected period 2, got %f", p)
	}
}
