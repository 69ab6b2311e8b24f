package atmos

import (
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/san-kum/terrasim/internal/compute"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

// Options configures an Engine. The zero value is usable.
type Options struct {
	// TemperatureRefreshTicks bounds how long the cached climatology is
	// reused. Zero keeps it until the scale or elevation changes. The
	// seasonal offset is applied every tick regardless.
	TemperatureRefreshTicks int

	// NoiseAmplitude is the standard deviation of the smoothed pressure
	// noise in Pa. Zero disables noise.
	NoiseAmplitude float64
	Seed           uint64

	Logger  *zap.Logger
	Backend compute.Backend
}

// Forcing carries the external inputs of one tick.
type Forcing struct {
	// Season is the fraction of the annual cycle, [0, 1).
	Season float64

	// Pressure is added to the pressure field before the wind phase. Nil
	// means no forcing. Its shape must match the domain.
	Pressure grid.Reader[float64]
}

type Engine struct {
	params  scale.Parameters
	opts    Options
	log     *zap.Logger
	backend compute.Backend

	latitude    *grid.Grid[float64]
	climatology *grid.DoubleBuffer[float64]
	temperature *grid.DoubleBuffer[float64]
	pressure    *grid.Grid[float64]
	seaLevel    *grid.Grid[float64]
	thermal     *grid.Grid[float64]
	windU       *grid.Grid[float64]
	windV       *grid.Grid[float64]
	noise       *grid.DoubleBuffer[float64]
	rng         *rand.Rand

	cache *FieldCache
	tick  int64
}

func NewEngine(params scale.Parameters, opts Options) (*Engine, error) {
	if err := params.Scale.Validate(); err != nil {
		return nil, err
	}
	if opts.TemperatureRefreshTicks < 0 {
		return nil, scale.NewConfigurationError("atmosphere.temperature_refresh_ticks", opts.TemperatureRefreshTicks, "must not be negative")
	}
	if opts.NoiseAmplitude < 0 {
		return nil, scale.NewConfigurationError("atmosphere.noise_amplitude_pa", opts.NoiseAmplitude, "must not be negative")
	}

	e := &Engine{
		opts:    opts,
		log:     opts.Logger,
		backend: opts.Backend,
		cache:   NewFieldCache(opts.TemperatureRefreshTicks),
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.backend == nil {
		e.backend = compute.GetBackend()
	}
	e.allocate(params)
	return e, nil
}

func (e *Engine) allocate(params scale.Parameters) {
	w, h := params.Scale.Width, params.Scale.Height
	e.params = params
	e.latitude = scale.LatitudeGrid(params)
	e.climatology = grid.NewDoubleBuffer[float64](w, h)
	e.temperature = grid.NewDoubleBuffer[float64](w, h)
	e.pressure = grid.NewFilled(w, h, scale.SeaLevelPress)
	e.seaLevel = grid.NewFilled(w, h, scale.SeaLevelPress)
	e.thermal = grid.New[float64](w, h)
	e.windU = grid.New[float64](w, h)
	e.windV = grid.New[float64](w, h)
	e.noise = grid.NewDoubleBuffer[float64](w, h)
}

// Rescale switches to new parameters. Grids are reallocated when the
// resolution changes; the temperature cache sees the new scale key.
func (e *Engine) Rescale(params scale.Parameters) error {
	if err := params.Scale.Validate(); err != nil {
		return err
	}
	if params.Scale.Width != e.params.Scale.Width || params.Scale.Height != e.params.Scale.Height {
		e.allocate(params)
		return nil
	}
	e.params = params
	e.latitude = scale.LatitudeGrid(params)
	return nil
}

func (e *Engine) Params() scale.Parameters { return e.params }

// InvalidateTemperature forces the next Advance to recompute temperature.
func (e *Engine) InvalidateTemperature() { e.cache.Invalidate() }

// Advance runs temperature, pressure and wind for one tick. The elevation
// snapshot version keys the temperature cache.
func (e *Engine) Advance(elevation grid.Snapshot[float64], f Forcing) (Snapshot, error) {
	w, h := e.params.Scale.Width, e.params.Scale.Height
	if elevation.Width() != w || elevation.Height() != h {
		return Snapshot{}, grid.ErrDimensionMismatch
	}
	if f.Pressure != nil && (f.Pressure.Width() != w || f.Pressure.Height() != h) {
		return Snapshot{}, grid.ErrDimensionMismatch
	}

	var stats Stats
	stats.Temperature = e.updateTemperature(elevation, f.Season)
	stats.PressureClamps = e.updatePressure(elevation, f)
	e.updateWind(&stats)
	e.applyBoundary(&stats)

	e.tick++
	if stats.BoundaryAnomaly {
		e.log.Warn("boundary accumulation",
			zap.Int64("tick", e.tick),
			zap.Float64("ratio", stats.BoundaryRatio))
	}
	if stats.WindClamps > 0 {
		e.log.Debug("wind clamped",
			zap.Int64("tick", e.tick),
			zap.Int("cells", stats.WindClamps))
	}

	return e.snapshot(stats), nil
}

// snapshot copies the current fields.
func (e *Engine) snapshot(stats Stats) Snapshot {
	v := uint64(e.tick)
	return Snapshot{
		Tick:             e.tick,
		Temperature:      e.temperature.Publish(),
		Pressure:         grid.Take[float64](e.pressure, v),
		SeaLevelPressure: grid.Take[float64](e.seaLevel, v),
		ThermalAnomaly:   grid.Take[float64](e.thermal, v),
		WindU:            grid.Take[float64](e.windU, v),
		WindV:            grid.Take[float64](e.windV, v),
		Stats:            stats,
	}
}
