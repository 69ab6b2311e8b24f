package hydro

import (
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/terrasim/internal/compute"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

const minRows = 8

// Sources are the per-tick water inputs. Multiplier grids may be nil,
// which means 1 everywhere.
type Sources struct {
	RainRate        float64 // m/s
	EvaporationRate float64 // s⁻¹, fraction of depth

	RainMultiplier        grid.Reader[float64]
	EvaporationMultiplier grid.Reader[float64]

	// Erode makes this tick the authoritative erosion pass.
	Erode bool
}

type Options struct {
	Logger  *zap.Logger
	Backend compute.Backend
}

type Engine struct {
	params  scale.Parameters
	log     *zap.Logger
	backend compute.Backend

	depth    *grid.DoubleBuffer[float64]
	sediment *grid.DoubleBuffer[float64]
	u        *grid.Grid[float64]
	v        *grid.Grid[float64]
	delta    *grid.Grid[float64]

	ledger Ledger
	tick   int64
}

func NewEngine(params scale.Parameters, opts Options) (*Engine, error) {
	if err := params.Scale.Validate(); err != nil {
		return nil, err
	}
	w, h := params.Scale.Width, params.Scale.Height
	e := &Engine{
		params:   params,
		log:      opts.Logger,
		backend:  opts.Backend,
		depth:    grid.NewDoubleBuffer[float64](w, h),
		sediment: grid.NewDoubleBuffer[float64](w, h),
		u:        grid.New[float64](w, h),
		v:        grid.New[float64](w, h),
		delta:    grid.New[float64](w, h),
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.backend == nil {
		e.backend = compute.GetBackend()
	}
	return e, nil
}

func (e *Engine) Params() scale.Parameters { return e.params }

// Seed replaces the water depth, clears sediment and velocity and restarts
// the ledger. Negative and non-finite depths are treated as dry.
func (e *Engine) Seed(depth grid.Reader[float64]) error {
	if depth.Width() != e.params.Scale.Width || depth.Height() != e.params.Scale.Height {
		return grid.ErrDimensionMismatch
	}
	next := e.depth.Write()
	for i := 0; i < next.Len(); i++ {
		v := depth.AtIndex(i)
		if !(v > 0) || math.IsInf(v, 0) {
			v = 0
		}
		next.SetIndex(i, v)
	}
	e.depth.Swap()
	e.sediment.Write().Fill(0)
	e.sediment.Swap()
	e.u.Fill(0)
	e.v.Fill(0)
	e.ledger = Ledger{Initial: e.TotalMass()}
	return nil
}

// TotalMass is the water volume on the grid in m³.
func (e *Engine) TotalMass() float64 {
	return grid.Sum(e.depth.Read()) * e.params.CellArea
}

func (e *Engine) Snapshot() Snapshot {
	v := uint64(e.tick)
	return Snapshot{
		Tick:     e.tick,
		Depth:    e.depth.Publish(),
		U:        grid.Take[float64](e.u, v),
		V:        grid.Take[float64](e.v, v),
		Sediment: e.sediment.Publish(),
	}
}

// Advance moves water for one tick over elevation. dtHint caps the
// timestep; a non-positive hint leaves the CFL limit alone.
func (e *Engine) Advance(elevation grid.Reader[float64], dtHint float64, src Sources) (AdvanceResult, error) {
	w, h := e.params.Scale.Width, e.params.Scale.Height
	if elevation.Width() != w || elevation.Height() != h {
		return AdvanceResult{}, grid.ErrDimensionMismatch
	}
	for _, m := range []grid.Reader[float64]{src.RainMultiplier, src.EvaporationMultiplier} {
		if m != nil && (m.Width() != w || m.Height() != h) {
			return AdvanceResult{}, grid.ErrDimensionMismatch
		}
	}

	var res AdvanceResult
	res.MassBefore = e.TotalMass()

	fs := e.computeFlow(elevation)
	res.VelocityClamps = fs.clamps
	res.DegenerateCells = fs.degenerate
	res.MaxSpeed = fs.maxSpeed

	res.Dt = e.timestep(dtHint, src)

	e.applySources(src, &res)
	res.MaxCFL = e.maxCFL(res.Dt)
	e.transport(&res)
	e.balance(&res)

	e.delta.Fill(0)
	if src.Erode {
		e.erode(&res)
	}
	res.ElevationDelta = grid.Take[float64](e.delta, uint64(e.tick+1))

	e.ledger.record(res)
	e.tick++

	if res.Renormalised {
		e.log.Debug("water mass renormalised",
			zap.Int64("tick", e.tick),
			zap.Float64("raw_error", res.RawError),
			zap.Float64("correction_m3", res.Correction))
	}
	if res.DegenerateCells > 0 {
		e.log.Debug("degenerate flow cells",
			zap.Int64("tick", e.tick),
			zap.Int("cells", res.DegenerateCells))
	}
	return res, nil
}

// timestep returns min(dtHint, min over cells of CFL·dx/(|v| + sqrt(g·h))).
// With rain the limit is taken again on the depth after a full step of
// rain; the second pass only shortens the step.
func (e *Engine) timestep(dtHint float64, src Sources) float64 {
	limit := e.cflLimit(0, src)
	if src.RainRate > 0 && !math.IsInf(limit, 0) {
		limit = math.Min(limit, e.cflLimit(limit, src))
	}
	if dtHint > 0 && !math.IsInf(dtHint, 0) && dtHint < limit {
		return dtHint
	}
	return limit
}

// cflLimit is the CFL step over depths raised by rainDt seconds of rain.
func (e *Engine) cflLimit(rainDt float64, src Sources) float64 {
	dx := e.params.MetersPerCell
	hMin := e.params.MinDepth
	depth := e.depth.Read()

	limit := math.Inf(1)
	for i := 0; i < depth.Len(); i++ {
		h := math.Max(depth.AtIndex(i), hMin)
		if rainDt > 0 {
			h += src.RainRate * rainDt * rainMultiplier(src, i)
		}
		c := math.Hypot(e.u.AtIndex(i), e.v.AtIndex(i)) + math.Sqrt(scale.Gravity*h)
		limit = math.Min(limit, e.params.CFLSafety*dx/c)
	}
	return limit
}

func rainMultiplier(src Sources, i int) float64 {
	if src.RainMultiplier == nil {
		return 1
	}
	return math.Max(src.RainMultiplier.AtIndex(i), 0)
}

func (e *Engine) maxCFL(dt float64) float64 {
	dx := e.params.MetersPerCell
	depth := e.depth.Read()
	m := 0.0
	for i := 0; i < depth.Len(); i++ {
		c := math.Hypot(e.u.AtIndex(i), e.v.AtIndex(i)) + math.Sqrt(scale.Gravity*math.Max(depth.AtIndex(i), 0))
		m = math.Max(m, c*dt/dx)
	}
	return m
}

// DryThreshold is the depth below which a cell is dried after sources.
func DryThreshold(rainRate, dt float64) float64 {
	return math.Max(1e-9, math.Min(1e-4, 0.01*rainRate*dt))
}

func (e *Engine) applySources(src Sources, res *AdvanceResult) {
	depth := e.depth.Read()
	next := e.depth.Write()
	dt := res.Dt
	thr := DryThreshold(src.RainRate, dt)
	area := e.params.CellArea

	var rain, evap float64
	for i := 0; i < depth.Len(); i++ {
		d := depth.AtIndex(i)

		rm, em := rainMultiplier(src, i), 1.0
		if src.EvaporationMultiplier != nil {
			em = math.Max(src.EvaporationMultiplier.AtIndex(i), 0)
		}

		r := src.RainRate * dt * rm
		ev := d * math.Min(1-math.Exp(-src.EvaporationRate*dt*em), 0.5)
		v := d + r - ev
		if v > 0 && v < thr {
			ev += v
			v = 0
			res.DriedCells++
		}
		rain += r
		evap += ev
		next.SetIndex(i, v)
	}
	e.depth.Swap()
	res.Rain = rain * area
	res.Evaporation = evap * area
}

func (e *Engine) balance(res *AdvanceResult) {
	res.MassAfter = e.TotalMass()
	res.RawError = RelativeError(res.MassBefore, res.MassAfter, res.Rain, res.Evaporation, res.Outflow)
	res.RelativeError = res.RawError
	if res.RawError <= scale.MassTolerance {
		return
	}

	expected := res.MassBefore + res.Balance()
	if expected <= 0 || res.MassAfter <= 0 {
		return
	}
	k := expected / res.MassAfter
	d := e.depth.Read()
	next := e.depth.Write()
	for i := 0; i < d.Len(); i++ {
		next.SetIndex(i, d.AtIndex(i)*k)
	}
	e.depth.Swap()
	res.Renormalised = true
	res.Correction = expected - res.MassAfter
	res.MassAfter = e.TotalMass()
	res.RelativeError = RelativeError(res.MassBefore, res.MassAfter, res.Rain, res.Evaporation, res.Outflow)
}

// Drainage reports the cumulative water budget.
func (e *Engine) Drainage() DrainageMetrics {
	d := e.depth.Read()
	storage := e.TotalMass()
	m := DrainageMetrics{Ledger: e.ledger, Storage: storage}
	expected := e.ledger.Expected()
	m.BalanceError = math.Abs(storage-expected) / math.Max(math.Max(storage, expected), massEpsilon)

	w, h := d.Width(), d.Height()
	var edge float64
	var n int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if grid.EdgeDistance(w, h, x, y) == 0 {
				edge += d.At(x, y)
				n++
			}
		}
	}
	if mean := grid.Mean(d); mean > 0 && n > 0 {
		m.EdgeSaturation = edge / float64(n) / mean
	}
	return m
}

// Rescale switches to parameters for a new domain size at the same
// resolution. Depths are kept; the ledger restarts because cell areas
// change.
func (e *Engine) Rescale(params scale.Parameters) error {
	if err := params.Scale.Validate(); err != nil {
		return err
	}
	if params.Scale.Width != e.params.Scale.Width || params.Scale.Height != e.params.Scale.Height {
		return grid.ErrDimensionMismatch
	}
	e.params = params
	e.ledger = Ledger{Initial: e.TotalMass()}
	return nil
}
