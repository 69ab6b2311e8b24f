package coupling

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/terrasim/internal/grid"
)

// ErrNonFinite reports a coupling that produced NaN or infinite effects.
var ErrNonFinite = errors.New("coupling: non-finite effect")

// Enabled selects which couplings run. Thermal is always computed.
type Enabled struct {
	Orographic  bool
	Maritime    bool
	WindErosion bool
	Evaporation bool
	Moisture    bool
}

func AllEnabled() Enabled {
	return Enabled{Orographic: true, Maritime: true, WindErosion: true, Evaporation: true, Moisture: true}
}

// Effects is the full coupling output of one tick. Disabled couplings
// yield neutral grids.
type Effects struct {
	Rain        *EffectGrid // multiplier for hydro rain, orographic
	Moisture    *EffectGrid // multiplier for hydro rain, humidity
	Evaporation *EffectGrid // multiplier for hydro evaporation
	Pressure    *EffectGrid // additive, next tick's pressure
	Thermal     *EffectGrid // additive, read-only
	Elevation   *EffectGrid // additive, wind erosion

	// RainMultiplier is Rain times Moisture, the factor hydro applies.
	RainMultiplier grid.Snapshot[float64]
	// Humidity is the relative humidity; zero when Moisture is off.
	Humidity grid.Snapshot[float64]
}

func (e Effects) grids() []*EffectGrid {
	return []*EffectGrid{e.Rain, e.Moisture, e.Evaporation, e.Pressure, e.Thermal, e.Elevation}
}

// Refused sums refused writes over every grid.
func (e Effects) Refused() int {
	n := 0
	for _, g := range e.grids() {
		if g != nil {
			n += g.Refused()
		}
	}
	return n
}

type Layer struct {
	enabled Enabled

	width, height int
	scratch       *grid.Pool[float64]
	moisture      *Moisture
}

func NewLayer(enabled Enabled) *Layer {
	return &Layer{enabled: enabled}
}

func (l *Layer) Enabled() Enabled { return l.enabled }

// prepare sizes the scratch pool and humidity state for the domain. A new
// shape starts the humidity field over.
func (l *Layer) prepare(w, h int) {
	if l.scratch != nil && l.width == w && l.height == h {
		return
	}
	l.width, l.height = w, h
	l.scratch = grid.NewPool[float64](w, h)
	l.moisture = NewMoisture(w, h, l.scratch)
}

// Compute runs the couplings concurrently. Each reads only the immutable
// inputs and writes its own grid. The first coupling whose grid has the
// wrong shape or a non-finite value fails the whole tick.
func (l *Layer) Compute(in Inputs) (Effects, error) {
	w, h := in.size()
	l.prepare(w, h)
	fx := Effects{
		Rain:        NewEffectGrid("orographic", Multiplicative, w, h),
		Moisture:    NewEffectGrid("moisture", Multiplicative, w, h),
		Evaporation: NewEffectGrid("evaporation", Multiplicative, w, h),
		Pressure:    NewEffectGrid("maritime", Additive, w, h),
		Elevation:   NewEffectGrid("wind_erosion", Additive, w, h),
	}

	var g errgroup.Group
	run := func(on bool, c Coupling, dst **EffectGrid) {
		if !on {
			return
		}
		g.Go(func() error {
			out := c.Compute(in)
			if err := check(out, w, h); err != nil {
				return fmt.Errorf("coupling %s: %w", c.Name(), err)
			}
			*dst = out
			return nil
		})
	}
	run(l.enabled.Orographic, Orographic{}, &fx.Rain)
	run(l.enabled.Moisture, l.moisture, &fx.Moisture)
	run(l.enabled.Evaporation, Evaporation{}, &fx.Evaporation)
	run(l.enabled.Maritime, Maritime{}, &fx.Pressure)
	run(l.enabled.WindErosion, WindErosion{}, &fx.Elevation)
	run(true, Thermal{}, &fx.Thermal)
	if err := g.Wait(); err != nil {
		return Effects{}, err
	}

	rain := l.scratch.GetCopy(fx.Rain.values)
	for i := 0; i < rain.Len(); i++ {
		rain.SetIndex(i, rain.AtIndex(i)*fx.Moisture.Value(i))
	}
	fx.RainMultiplier = grid.Take[float64](rain, 0)
	l.scratch.Put(rain)
	if l.enabled.Moisture {
		fx.Humidity = l.moisture.Relative()
	}
	return fx, nil
}

func check(g *EffectGrid, w, h int) error {
	if g == nil || g.Width() != w || g.Height() != h {
		return grid.ErrDimensionMismatch
	}
	if !grid.AllFinite(g.values) {
		return ErrNonFinite
	}
	return nil
}
