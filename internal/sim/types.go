package sim

import (
	"strings"
	"time"

	"github.com/san-kum/terrasim/internal/atmos"
	"github.com/san-kum/terrasim/internal/coupling"
	"github.com/san-kum/terrasim/internal/diagnostics"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/hydro"
	"github.com/san-kum/terrasim/internal/scale"
)

// Authority decides which erosion pass owns the geology phase of a tick.
type Authority int

const (
	AuthorityAlternate Authority = iota
	AuthorityHydraulic
	AuthorityAeolian
)

func (a Authority) String() string {
	switch a {
	case AuthorityHydraulic:
		return "hydraulic"
	case AuthorityAeolian:
		return "aeolian"
	}
	return "alternate"
}

func ParseAuthority(s string) (Authority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "alternate":
		return AuthorityAlternate, nil
	case "hydraulic":
		return AuthorityHydraulic, nil
	case "aeolian", "wind":
		return AuthorityAeolian, nil
	}
	return 0, scale.NewConfigurationError("erosion.authority", s, "must be hydraulic, aeolian or alternate")
}

type ErosionPass int

const (
	PassHydraulic ErosionPass = iota
	PassAeolian
)

func (p ErosionPass) String() string {
	if p == PassAeolian {
		return "aeolian"
	}
	return "hydraulic"
}

// PassFor returns the single erosion pass that runs on tick. Alternate
// authority gives even ticks to water and odd ticks to wind.
func (a Authority) PassFor(tick int64) ErosionPass {
	switch a {
	case AuthorityHydraulic:
		return PassHydraulic
	case AuthorityAeolian:
		return PassAeolian
	}
	if tick%2 == 0 {
		return PassHydraulic
	}
	return PassAeolian
}

type Config struct {
	DomainKm float64
	Width    int
	Height   int

	RainRate        float64 // m/s
	EvaporationRate float64 // s⁻¹
	DtHint          float64 // s
	InitialDepth    float64 // m

	TemperatureRefreshTicks int
	// SeasonalRate is the fraction of the annual cycle per tick.
	SeasonalRate   float64
	SeasonOffset   float64
	NoiseAmplitude float64 // Pa
	Seed           uint64

	Tuning    scale.Tuning
	Couplings coupling.Enabled
	Authority Authority
}

func DefaultConfig() Config {
	return Config{
		DomainKm:                1000,
		Width:                   96,
		Height:                  48,
		RainRate:                2e-7,
		EvaporationRate:         2e-6,
		DtHint:                  600,
		InitialDepth:            0.01,
		TemperatureRefreshTicks: 24,
		SeasonalRate:            1.0 / 8760,
		Tuning:                  scale.DefaultTuning(),
		Couplings:               coupling.AllEnabled(),
		Authority:               AuthorityAlternate,
	}
}

// Frame is the immutable output of one tick.
type Frame struct {
	Tick    int64
	SimTime float64 // s
	Season  float64

	Atmos          atmos.Snapshot
	Hydro          hydro.Snapshot
	Elevation      grid.Snapshot[float64]
	ElevationDelta grid.Snapshot[float64]
	RainMultiplier grid.Snapshot[float64]
	Humidity       grid.Snapshot[float64] // relative, zero without moisture
	Thermal        grid.Snapshot[float64]
	Vorticity      grid.Snapshot[float64] // s⁻¹

	// Systems are the pressure highs and lows, strongest first.
	Systems []atmos.PressureSystem

	Result        hydro.AdvanceResult
	Report        diagnostics.QualityReport
	Erosion       ErosionPass
	AeolianExport float64 // m summed over cells

	WallTime time.Duration
}

type Observer interface {
	OnFrame(f Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Frame)

func (f ObserverFunc) OnFrame(fr Frame) { f(fr) }

type Result struct {
	Reports    []diagnostics.QualityReport
	Final      Frame
	Metrics    map[string]float64
	Drainage   hydro.DrainageMetrics
	StepsTaken int
	SimTime    float64
	Duration   time.Duration
	Errors     []error

	// ConvergedAt is the tick a WithConvergence run settled on, or 0.
	ConvergedAt int64
}
