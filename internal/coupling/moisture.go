package coupling

import (
	"math"

	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

const (
	vaporGasConstant  = 461.5  // J/(kg·K)
	referenceVapor    = 611.0  // Pa, saturation at 0 °C
	clausiusClapeyron = 5423.0 // L_v/R_v, K

	initialHumidity  = 0.6 // relative humidity of a fresh column
	surfaceUptake    = 0.3 // share of the saturation deficit open water refills per tick
	efficiencySlope  = 0.1 // per percent of relative humidity
	washout          = 0.1 // share of the column rained out at full efficiency
	condensationGain = 2.0
	maxMoistureRain  = 5.0

	// maxCourant bounds |cx|+|cy| so donor-cell transport stays monotone.
	maxCourant = 0.9
)

// SaturationVaporPressure is the Clausius-Clapeyron vapour pressure, in Pa,
// that saturates air at t °C.
func SaturationVaporPressure(t float64) float64 {
	return referenceVapor * math.Exp(clausiusClapeyron*(1/scale.KelvinOffset-1/(t+scale.KelvinOffset)))
}

// SaturationHumidity is the vapour density, in kg/m³, of saturated air at
// t °C.
func SaturationHumidity(t float64) float64 {
	return SaturationVaporPressure(t) / (vaporGasConstant * (t + scale.KelvinOffset))
}

// PrecipitationEfficiency is the logistic share of column moisture able to
// rain out at relative humidity rh (1 is saturated). It is 0.5 at rh = 0.5.
func PrecipitationEfficiency(rh float64) float64 {
	return 1 / (1 + math.Exp(-efficiencySlope*(100*rh-50)))
}

// MoistureRain is the rain multiplier for a column with the given
// efficiency and condensed excess (as a fraction of saturation). strength
// blends toward 1; the result stays within [0, 5].
func MoistureRain(efficiency, condensed, strength float64) float64 {
	raw := 2*efficiency + condensationGain*condensed
	m := 1 + strength*(raw-1)
	return math.Max(0, math.Min(maxMoistureRain, m))
}

// Moisture carries a humidity field from tick to tick. Open water refills
// it, the wind moves it, and columns near saturation rain more while
// losing some of their vapour. Unlike the other couplings it keeps state,
// so one instance belongs to one Layer.
type Moisture struct {
	humidity *grid.DoubleBuffer[float64] // kg/m³
	scratch  *grid.Pool[float64]
	relative grid.Snapshot[float64]
	seeded   bool
}

// NewMoisture allocates the humidity field. scratch must hand out grids of
// the same shape.
func NewMoisture(width, height int, scratch *grid.Pool[float64]) *Moisture {
	return &Moisture{
		humidity: grid.NewDoubleBuffer[float64](width, height),
		scratch:  scratch,
	}
}

func (*Moisture) Name() string { return "moisture" }

// Humidity publishes the vapour density after the last Compute.
func (m *Moisture) Humidity() grid.Snapshot[float64] { return m.humidity.Publish() }

// Relative is the relative humidity left after the last Compute.
func (m *Moisture) Relative() grid.Snapshot[float64] { return m.relative }

func (m *Moisture) Compute(in Inputs) *EffectGrid {
	w, h := in.size()
	g := NewEffectGrid(m.Name(), Multiplicative, w, h)
	if in.Atmos.Temperature.IsZero() {
		return g
	}

	sat := m.scratch.Get()
	defer m.scratch.Put(sat)
	for i := 0; i < w*h; i++ {
		sat.SetIndex(i, SaturationHumidity(in.Atmos.Temperature.AtIndex(i)))
	}
	if !m.seeded {
		next := m.humidity.Write()
		for i := 0; i < w*h; i++ {
			next.SetIndex(i, initialHumidity*sat.AtIndex(i))
		}
		m.humidity.Swap()
		m.seeded = true
	}

	m.evaporate(in, sat)
	m.advect(in)

	rh := m.scratch.Get()
	defer m.scratch.Put(rh)
	s := in.Params.MoistureStrength
	q := m.humidity.Read()
	next := m.humidity.Write()
	for i := 0; i < w*h; i++ {
		v, qs := q.AtIndex(i), sat.AtIndex(i)
		condensed := 0.0
		if v > qs {
			condensed = (v - qs) / qs
			v = qs
		}
		e := PrecipitationEfficiency(v / qs)
		g.Mark(i, None, MoistureRain(e, condensed, s))
		v *= 1 - washout*e
		next.SetIndex(i, v)
		rh.SetIndex(i, v/qs)
	}
	m.humidity.Swap()
	m.relative = grid.Take[float64](rh, m.humidity.Version())
	return g
}

// evaporate refills columns over open water toward saturation.
func (m *Moisture) evaporate(in Inputs, sat *grid.Grid[float64]) {
	q := m.humidity.Read()
	next := m.humidity.Write()
	for i := 0; i < q.Len(); i++ {
		v := q.AtIndex(i)
		wet := in.Elevation.AtIndex(i) <= 0 || in.depth(i) > in.Params.MinDepth
		if wet && v < sat.AtIndex(i) {
			v += surfaceUptake * (sat.AtIndex(i) - v)
		}
		next.SetIndex(i, v)
	}
	m.humidity.Swap()
}

// advect moves humidity downwind with a donor-cell step. Air entering
// across an edge carries the edge cell's own humidity.
func (m *Moisture) advect(in Inputs) {
	w, h := in.size()
	k := in.Params.MoistureTransport / in.Params.MetersPerCell
	q := m.humidity.Read()
	next := m.humidity.Write()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			cx := in.Atmos.WindU.AtIndex(i) * k
			cy := in.Atmos.WindV.AtIndex(i) * k
			if t := math.Abs(cx) + math.Abs(cy); t > maxCourant {
				cx *= maxCourant / t
				cy *= maxCourant / t
			}

			v := q.AtIndex(i)
			ux, uy := x-1, y+1 // westerly and southerly air arrive from the west and south
			if cx < 0 {
				ux = x + 1
			}
			if cy < 0 {
				uy = y - 1
			}
			qx, qy := v, v
			if ux >= 0 && ux < w {
				qx = q.At(ux, y)
			}
			if uy >= 0 && uy < h {
				qy = q.At(x, uy)
			}
			next.SetIndex(i, v+math.Abs(cx)*(qx-v)+math.Abs(cy)*(qy-v))
		}
	}
	m.humidity.Swap()
}
