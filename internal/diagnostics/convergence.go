package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// significantChange is the per-cell change, in metres, that counts a cell
// as still moving.
const significantChange = 1e-4

const (
	rateSamples     = 10
	varianceSamples = 20
	estimateAfter   = 50
	adaptiveTicks   = 10000
)

// ChangeMetrics is how far terrain and water moved in one tick. Terrain
// contributes |Δz| per cell; water contributes its net volume change as a
// depth over one cell.
type ChangeMetrics struct {
	Total       float64 // m
	Average     float64 // m per cell
	Max         float64 // m
	Significant int     // cells above significantChange
}

// Selectors for change series.
func ChangeOf(r QualityReport) float64        { return r.Change.Total }
func AverageChangeOf(r QualityReport) float64 { return r.Change.Average }

// Criterion is one test a ConvergenceTracker applies to every tick.
type Criterion int

const (
	TotalChange Criterion = iota
	AverageChange
	MaxChange
	RateStable
	VarianceStable
)

func (c Criterion) String() string {
	switch c {
	case TotalChange:
		return "total_change"
	case AverageChange:
		return "average_change"
	case MaxChange:
		return "max_change"
	case RateStable:
		return "rate_stable"
	case VarianceStable:
		return "variance_stable"
	}
	return "unknown"
}

type ConvergenceConfig struct {
	// MinTicks is the earliest tick that may be declared converged.
	MinTicks int

	TotalThreshold    float64 // m
	AverageThreshold  float64 // m per cell
	MaxThreshold      float64 // m
	RateThreshold     float64 // m per tick, mean |ΔTotal| over the last 10 ticks
	VarianceThreshold float64 // m², of the average change over the last 20 ticks

	// Window is how many reports the tracker keeps. VarianceStable needs
	// at least 20.
	Window int
	// Consecutive is how many ticks in a row must meet every criterion.
	Consecutive int
	Criteria    []Criterion
	// Adaptive tightens the thresholds by up to half over 10000 ticks.
	Adaptive bool
}

func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		MinTicks:          100,
		TotalThreshold:    1e-3,
		AverageThreshold:  1e-4,
		MaxThreshold:      1e-2,
		RateThreshold:     1e-5,
		VarianceThreshold: 1e-6,
		Window:            50,
		Consecutive:       10,
		Criteria:          []Criterion{AverageChange, RateStable},
		Adaptive:          true,
	}
}

// ConvergenceStats summarises a tracker.
type ConvergenceStats struct {
	Ticks       int
	Converged   bool
	ConvergedAt int64 // tick, 0 while not converged
	Ratio       float64
	Streak      int
	Last        ChangeMetrics
}

// ConvergenceTracker decides when a run has settled: every configured
// criterion must hold for Consecutive ticks in a row, after MinTicks. Once
// converged it stays converged until Reset.
type ConvergenceTracker struct {
	cfg     ConvergenceConfig
	history *History

	ticks       int
	streak      int
	converged   bool
	convergedAt int64
	initial     float64
	ratio       float64
	last        ChangeMetrics
}

func NewConvergenceTracker(cfg ConvergenceConfig) *ConvergenceTracker {
	if cfg.Window < rateSamples {
		cfg.Window = rateSamples
	}
	if cfg.Consecutive < 1 {
		cfg.Consecutive = 1
	}
	return &ConvergenceTracker{cfg: cfg, history: NewHistory(cfg.Window), initial: -1}
}

func (c *ConvergenceTracker) Name() string { return "convergence" }

func (c *ConvergenceTracker) Observe(r QualityReport) {
	c.ticks++
	c.last = r.Change
	c.history.Add(r)
	if c.initial < 0 {
		c.initial = r.Change.Total
	}

	if c.meets() {
		c.streak++
	} else {
		c.streak = 0
	}
	if !c.converged && c.ticks >= c.cfg.MinTicks && c.streak >= c.cfg.Consecutive {
		c.converged = true
		c.convergedAt = r.Tick
		if c.initial > 0 {
			c.ratio = r.Change.Total / c.initial
		}
	}
}

// Value is 1 once converged, otherwise the fraction by which the total
// change has fallen since the first tick.
func (c *ConvergenceTracker) Value() float64 {
	if c.converged {
		return 1
	}
	if c.initial <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, 1-c.last.Total/c.initial))
}

func (c *ConvergenceTracker) Reset() {
	c.history.Reset()
	c.ticks = 0
	c.streak = 0
	c.converged = false
	c.convergedAt = 0
	c.initial = -1
	c.ratio = 0
	c.last = ChangeMetrics{}
}

func (c *ConvergenceTracker) Converged() bool { return c.converged }

func (c *ConvergenceTracker) Stats() ConvergenceStats {
	return ConvergenceStats{
		Ticks:       c.ticks,
		Converged:   c.converged,
		ConvergedAt: c.convergedAt,
		Ratio:       c.ratio,
		Streak:      c.streak,
		Last:        c.last,
	}
}

// Remaining estimates the ticks left until the total change reaches
// TotalThreshold at the recent rate of decline. It reports false before
// 50 ticks or while the change is not falling.
func (c *ConvergenceTracker) Remaining() (int, bool) {
	if c.ticks < estimateAfter || c.last.Total == 0 {
		return 0, false
	}
	s := c.recent(ChangeOf, rateSamples)
	if len(s) < rateSamples || s[0] <= s[len(s)-1] {
		return 0, false
	}
	rate := (s[0] - s[len(s)-1]) / float64(len(s))
	left := c.last.Total - c.cfg.TotalThreshold
	if left <= 0 {
		return 0, true
	}
	return int(left / rate), true
}

func (c *ConvergenceTracker) meets() bool {
	for _, cr := range c.cfg.Criteria {
		if !c.check(cr) {
			return false
		}
	}
	return true
}

func (c *ConvergenceTracker) check(cr Criterion) bool {
	switch cr {
	case TotalChange:
		return c.last.Total < c.threshold(c.cfg.TotalThreshold)
	case AverageChange:
		return c.last.Average < c.threshold(c.cfg.AverageThreshold)
	case MaxChange:
		return c.last.Max < c.threshold(c.cfg.MaxThreshold)
	case RateStable:
		s := c.recent(ChangeOf, rateSamples)
		if len(s) < rateSamples {
			return false
		}
		sum := 0.0
		for i := 1; i < len(s); i++ {
			sum += math.Abs(s[i] - s[i-1])
		}
		return sum/float64(len(s)-1) < c.cfg.RateThreshold
	case VarianceStable:
		s := c.recent(AverageChangeOf, varianceSamples)
		if len(s) < varianceSamples {
			return false
		}
		return stat.Variance(s, nil) < c.cfg.VarianceThreshold
	}
	return false
}

func (c *ConvergenceTracker) threshold(base float64) float64 {
	if !c.cfg.Adaptive {
		return base
	}
	progress := math.Min(float64(c.ticks)/adaptiveTicks, 1)
	return base * (1 - 0.5*progress)
}

// recent returns up to n of the newest values of f, oldest first.
func (c *ConvergenceTracker) recent(f func(QualityReport) float64, n int) []float64 {
	s := c.history.Series(f)
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}
