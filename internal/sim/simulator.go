package sim

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/san-kum/terrasim/internal/atmos"
	"github.com/san-kum/terrasim/internal/compute"
	"github.com/san-kum/terrasim/internal/coupling"
	"github.com/san-kum/terrasim/internal/diagnostics"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/hydro"
	"github.com/san-kum/terrasim/internal/scale"
)

// elevationEpsilon is the accumulated bed change, in metres, that bumps
// the elevation version and so invalidates elevation-keyed caches.
const elevationEpsilon = 0.5

// systemThreshold is the share of the seasonal pressure swing a local
// extremum must reach to count as a pressure system.
const systemThreshold = 0.5

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option { return func(s *Simulator) { s.log = l } }

func WithClock(c clockwork.Clock) Option { return func(s *Simulator) { s.clock = c } }

func WithBackend(b compute.Backend) Option { return func(s *Simulator) { s.backend = b } }

func WithMetrics(m ...diagnostics.Metric) Option {
	return func(s *Simulator) { s.metrics = append(s.metrics, m...) }
}

// WithConvergence tracks settling with cfg and ends Run early once the
// terrain and water have converged. It replaces any convergence metric
// passed to WithMetrics.
func WithConvergence(cfg diagnostics.ConvergenceConfig) Option {
	return func(s *Simulator) {
		s.convergence = diagnostics.NewConvergenceTracker(cfg)
		kept := s.metrics[:0]
		for _, m := range s.metrics {
			if m.Name() != s.convergence.Name() {
				kept = append(kept, m)
			}
		}
		s.metrics = append(kept, s.convergence)
	}
}

func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

type Simulator struct {
	cfg     Config
	params  scale.Parameters
	log     *zap.Logger
	clock   clockwork.Clock
	backend compute.Backend
	metrics []diagnostics.Metric

	convergence *diagnostics.ConvergenceTracker

	atmos     *atmos.Engine
	hydro     *hydro.Engine
	layer     *coupling.Layer
	validator *diagnostics.Validator
	observers []Observer

	elevation   *grid.DoubleBuffer[float64]
	elevVersion uint64
	drift       *grid.Grid[float64]
	forcing     *grid.Grid[float64]
	lastHydro   hydro.Snapshot

	tick    int64
	simTime float64
}

// New builds a simulator over elevation (metres, matching the configured
// resolution). Every error it returns is a configuration error.
func New(cfg Config, elevation grid.Reader[float64], opts ...Option) (*Simulator, error) {
	params, err := validateConfig(cfg)
	if err != nil {
		return nil, err
	}
	if elevation == nil || elevation.Width() != cfg.Width || elevation.Height() != cfg.Height {
		return nil, scale.NewConfigurationError("terrain", shape(elevation), "elevation must match domain.width x domain.height")
	}
	if !grid.AllFinite(elevation) {
		return nil, scale.NewConfigurationError("terrain", "non-finite", "elevation must be finite")
	}

	s := &Simulator{
		cfg:    cfg,
		params: params,
		log:    zap.NewNop(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.backend == nil {
		s.backend = compute.GetBackend()
	}

	s.atmos, err = atmos.NewEngine(params, atmos.Options{
		TemperatureRefreshTicks: cfg.TemperatureRefreshTicks,
		NoiseAmplitude:          cfg.NoiseAmplitude,
		Seed:                    cfg.Seed,
		Logger:                  s.log.Named("atmos"),
		Backend:                 s.backend,
	})
	if err != nil {
		return nil, err
	}
	s.hydro, err = hydro.NewEngine(params, hydro.Options{
		Logger:  s.log.Named("hydro"),
		Backend: s.backend,
	})
	if err != nil {
		return nil, err
	}

	s.layer = coupling.NewLayer(cfg.Couplings)
	s.validator = diagnostics.NewValidator(diagnostics.Options{Metrics: s.metrics})

	s.elevation = grid.NewDoubleBuffer[float64](cfg.Width, cfg.Height)
	if err := s.elevation.Reset(elevation); err != nil {
		return nil, err
	}
	s.elevVersion = 1
	s.drift = grid.New[float64](cfg.Width, cfg.Height)
	s.forcing = grid.New[float64](cfg.Width, cfg.Height)

	if err := s.hydro.Seed(grid.NewFilled(cfg.Width, cfg.Height, cfg.InitialDepth)); err != nil {
		return nil, err
	}
	s.lastHydro = s.hydro.Snapshot()
	return s, nil
}

func shape(r grid.Reader[float64]) any {
	if r == nil {
		return nil
	}
	return [2]int{r.Width(), r.Height()}
}

func validateConfig(cfg Config) (scale.Parameters, error) {
	params, err := scale.Derive(cfg.DomainKm, cfg.Width, cfg.Height)
	if err != nil {
		return scale.Parameters{}, err
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return scale.Parameters{}, err
	}

	checks := []struct {
		field string
		v     float64
	}{
		{"hydro.rainfall_mm_per_hour", cfg.RainRate},
		{"hydro.evaporation_per_hour", cfg.EvaporationRate},
		{"hydro.dt_hint_s", cfg.DtHint},
		{"hydro.initial_depth_m", cfg.InitialDepth},
		{"atmosphere.seasonal_rate", cfg.SeasonalRate},
		{"atmosphere.noise_amplitude_pa", cfg.NoiseAmplitude},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) || c.v < 0 {
			return scale.Parameters{}, scale.NewConfigurationError(c.field, c.v, "must be a finite non-negative number")
		}
	}
	if cfg.Authority < AuthorityAlternate || cfg.Authority > AuthorityAeolian {
		return scale.Parameters{}, scale.NewConfigurationError("erosion.authority", int(cfg.Authority), "unknown authority")
	}
	return cfg.Tuning.DeriveFor(params), nil
}

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Params() scale.Parameters { return s.params }
func (s *Simulator) Config() Config           { return s.cfg }
func (s *Simulator) Tick() int64              { return s.tick }

func (s *Simulator) Validator() *diagnostics.Validator { return s.validator }

// Convergence is the tracker installed by WithConvergence, or nil.
func (s *Simulator) Convergence() *diagnostics.ConvergenceTracker { return s.convergence }

func (s *Simulator) Drainage() hydro.DrainageMetrics { return s.hydro.Drainage() }

// Elevation publishes the current terrain.
func (s *Simulator) Elevation() grid.Snapshot[float64] {
	return grid.Take[float64](s.elevation.Read(), s.elevVersion)
}

// Rescale re-derives every parameter for a new domain size at the same
// resolution. Caches keyed on scale are invalidated by the new key.
func (s *Simulator) Rescale(domainKm float64) error {
	cfg := s.cfg
	cfg.DomainKm = domainKm
	params, err := validateConfig(cfg)
	if err != nil {
		return err
	}
	if err := s.atmos.Rescale(params); err != nil {
		return err
	}
	if err := s.hydro.Rescale(params); err != nil {
		return err
	}
	s.cfg = cfg
	s.params = params
	s.forcing.Fill(0)
	s.log.Info("rescaled",
		zap.Float64("domain_km", domainKm),
		zap.Float64("meters_per_cell", params.MetersPerCell))
	return nil
}

// Step runs one tick through the ordered pipeline: atmosphere, couplings,
// hydrodynamics, geology, diagnostics. A persistent conservation failure
// is returned as *scale.ConservationViolation alongside a complete frame;
// the simulator stays usable.
func (s *Simulator) Step() (Frame, error) {
	start := s.clock.Now()
	season := s.season()
	elev := s.Elevation()

	as, err := s.atmos.Advance(elev, atmos.Forcing{Season: season, Pressure: s.forcing})
	if err != nil {
		return Frame{}, err
	}

	fx, err := s.layer.Compute(coupling.Inputs{
		Params:    s.params,
		Atmos:     as,
		Hydro:     s.lastHydro,
		Elevation: elev,
	})
	if err != nil {
		return Frame{}, err
	}

	pass := s.cfg.Authority.PassFor(s.tick)
	res, err := s.hydro.Advance(s.elevation.Read(), s.cfg.DtHint, hydro.Sources{
		RainRate:              s.cfg.RainRate,
		EvaporationRate:       s.cfg.EvaporationRate,
		RainMultiplier:        fx.RainMultiplier,
		EvaporationMultiplier: fx.Evaporation.Snapshot(),
		Erode:                 pass == PassHydraulic,
	})
	if err != nil {
		return Frame{}, err
	}

	delta := res.ElevationDelta
	var export float64
	if pass == PassAeolian {
		delta = fx.Elevation.Snapshot()
		export = fx.Elevation.Exported
	}
	s.applyGeology(delta)

	next := fx.Pressure.Snapshot()
	if err := s.forcing.CopyFrom(next); err != nil {
		return Frame{}, err
	}

	hs := s.hydro.Snapshot()
	s.lastHydro = hs
	s.tick++
	s.simTime += res.Dt

	report := s.validator.Observe(diagnostics.Input{
		Tick:            s.tick,
		Params:          s.params,
		Atmos:           as,
		Hydro:           hs,
		Result:          res,
		CouplingRefused: fx.Refused(),
		ElevationDelta:  delta,
	})

	frame := Frame{
		Tick:           s.tick,
		SimTime:        s.simTime,
		Season:         season,
		Atmos:          as,
		Hydro:          hs,
		Elevation:      s.Elevation(),
		ElevationDelta: delta,
		RainMultiplier: fx.RainMultiplier,
		Humidity:       fx.Humidity,
		Thermal:        fx.Thermal.Snapshot(),
		Vorticity:      grid.Take[float64](atmos.Vorticity(as, s.params.MetersPerCell), uint64(s.tick)),
		Systems:        atmos.DetectSystems(as, systemThreshold*s.params.SeasonalPressureAmplitude),
		Result:         res,
		Report:         report,
		Erosion:        pass,
		AeolianExport:  export,
		WallTime:       s.clock.Since(start),
	}

	for _, o := range s.observers {
		o.OnFrame(frame)
	}

	s.log.Debug("tick",
		zap.Int64("tick", s.tick),
		zap.Float64("dt", res.Dt),
		zap.Float64("score", report.Score),
		zap.Stringer("erosion", pass))

	if report.Escalated {
		s.log.Warn("persistent conservation violation",
			zap.Int64("tick", s.tick),
			zap.Int("consecutive", report.Consecutive),
			zap.Float64("relative_error", report.MassConservationError))
		return frame, &scale.ConservationViolation{
			Tick:          s.tick,
			Consecutive:   report.Consecutive,
			RelativeError: report.MassConservationError,
		}
	}
	return frame, nil
}

func (s *Simulator) season() float64 {
	v := s.cfg.SeasonOffset + float64(s.tick)*s.cfg.SeasonalRate
	return v - math.Floor(v)
}

// applyGeology adds delta to the terrain. The elevation version only moves
// once the accumulated change somewhere exceeds elevationEpsilon.
func (s *Simulator) applyGeology(delta grid.Snapshot[float64]) {
	cur := s.elevation.Read()
	next := s.elevation.Write()
	bump := false
	for i := 0; i < cur.Len(); i++ {
		d := delta.AtIndex(i)
		next.SetIndex(i, cur.AtIndex(i)+d)
		acc := s.drift.AtIndex(i) + d
		if math.Abs(acc) > elevationEpsilon {
			bump = true
		}
		s.drift.SetIndex(i, acc)
	}
	s.elevation.Swap()
	if bump {
		s.elevVersion++
		s.drift.Fill(0)
	}
}

// Run advances ticks steps. The context is checked between ticks only, so
// a cancelled run never exposes a partial tick. Conservation violations do
// not stop the run: they are collected in Result.Errors and the last one
// is returned once all ticks are done.
func (s *Simulator) Run(ctx context.Context, ticks int) (*Result, error) {
	if ticks < 0 {
		return nil, scale.NewConfigurationError("run.ticks", ticks, "must not be negative")
	}

	start := s.clock.Now()
	result := &Result{
		Reports: make([]diagnostics.QualityReport, 0, ticks),
		Errors:  make([]error, 0),
	}

	s.log.Info("run started",
		zap.Int("ticks", ticks),
		zap.Float64("domain_km", s.cfg.DomainKm),
		zap.Int("width", s.cfg.Width),
		zap.Int("height", s.cfg.Height))

	var violation error
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			s.finish(result, start)
			return result, ctx.Err()
		default:
		}

		frame, err := s.Step()
		if err != nil {
			if !errors.Is(err, scale.ErrConservation) {
				s.finish(result, start)
				return result, err
			}
			result.Errors = append(result.Errors, err)
			violation = err
		}
		result.Reports = append(result.Reports, frame.Report)
		result.Final = frame
		result.StepsTaken++

		if s.convergence != nil && s.convergence.Converged() {
			result.ConvergedAt = s.convergence.Stats().ConvergedAt
			s.log.Info("converged",
				zap.Int64("tick", result.ConvergedAt),
				zap.Float64("total_change_m", frame.Report.Change.Total))
			break
		}
	}

	s.finish(result, start)
	s.log.Info("run finished",
		zap.Int("steps", result.StepsTaken),
		zap.Duration("elapsed", result.Duration),
		zap.Float64("mean_score", s.validator.History().Mean(diagnostics.ScoreOf)))
	return result, violation
}

func (s *Simulator) finish(result *Result, start time.Time) {
	result.Duration = s.clock.Since(start)
	result.Metrics = s.validator.Metrics()
	result.Drainage = s.hydro.Drainage()
	result.SimTime = s.simTime
}

// RunWithCallback steps until ticks are done or callback returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, ticks int, callback func(Frame) bool) error {
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		frame, err := s.Step()
		if err != nil && !errors.Is(err, scale.ErrConservation) {
			return err
		}
		if !callback(frame) {
			return nil
		}
	}
	return nil
}
