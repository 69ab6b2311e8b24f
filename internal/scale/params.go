package scale

import "math"

// ScaleAware types derive scale-dependent values from Parameters.
type ScaleAware[T any] interface {
	DeriveFor(p Parameters) T
}

// Parameters holds every scale-dependent constant. All fields are
// continuous in domain size and resolution.
type Parameters struct {
	Scale WorldScale

	MetersPerCell      float64
	DomainMeters       float64
	CellArea           float64
	ReferenceAreaRatio float64

	CFLSafety float64
	MinDepth  float64 // H_MIN, m

	LatitudeCenter float64 // degrees
	LatitudeRange  float64 // degrees, north-south extent

	CoriolisActivationKm float64
	RossbyLength         float64 // m
	MixingLength         float64 // m, fallback wind
	DeformationRadius    float64 // m

	DiffusionFactor           float64
	ThermalHeight             float64 // m, k in Δp = -kρgβΔT
	SeasonalAmplitude         float64 // °C
	SeasonalPressureAmplitude float64 // Pa
	PressureMin               float64 // Pa
	PressureMax               float64 // Pa
	SpongeWidth               float64 // cells

	OrographicGain       float64
	MaritimeHeight       float64 // m
	CoastalRadius        float64 // cells
	WindErosionRate      float64 // m per tick per unit excess shear
	EvaporationStrength  float64
	HydraulicErosionRate float64 // fraction of capacity deficit per tick
	ErosionCapPerTick    float64 // m

	MoistureStrength float64
	// MoistureTransport is how long, in seconds, the wind carries humidity
	// each tick. It moves at most half a cell at the characteristic wind.
	MoistureTransport float64
}

const (
	characteristicWind = 10.0  // m/s
	synopticLength     = 1e6   // m
	mixingLength       = 1000  // m
	buoyancyFrequency  = 0.01  // s⁻¹
	seaBreezeReach     = 50000 // m
)

// Derive computes Parameters for a domain. It fails only on an invalid
// domain size or resolution.
func Derive(domainKm float64, width, height int) (Parameters, error) {
	ws, err := NewWorldScale(domainKm, width, height)
	if err != nil {
		return Parameters{}, err
	}
	return derive(ws), nil
}

func derive(ws WorldScale) Parameters {
	mpc := ws.MetersPerCell()
	domainM := ws.DomainMeters()
	km := ws.DomainKm
	continental := km / (km + 1000)

	latRange := math.Min(ws.ExtentYKm()*1000/MetersPerDegree, 180)
	latCenter := 45 * (1 - latRange/180)

	// Representative latitude: half way between centre and poleward edge.
	fRep := math.Abs(CoriolisParameter(math.Abs(latCenter) + latRange/4))

	sponge := 0.04 * domainM / mpc * (1 + continental)
	sponge = math.Min(sponge, float64(min(ws.Width, ws.Height))/4)
	sponge = math.Max(sponge, 1)

	return Parameters{
		Scale:              ws,
		MetersPerCell:      mpc,
		DomainMeters:       domainM,
		CellArea:           mpc * mpc,
		ReferenceAreaRatio: ws.ReferenceAreaRatio(),

		CFLSafety: CFLSafety,
		MinDepth:  1e-6 * (1 + mpc/1e5),

		LatitudeCenter: latCenter,
		LatitudeRange:  latRange,

		CoriolisActivationKm: characteristicWind / CoriolisParameter(45) / 1000,
		RossbyLength:         synopticLength * domainM / (synopticLength + domainM),
		MixingLength:         mpc * mixingLength / (mpc + mixingLength),
		DeformationRadius:    buoyancyFrequency * ScaleHeight / math.Max(fRep, FThreshold),

		DiffusionFactor:           0.2,
		ThermalHeight:             500 + 2000*km/(km+500),
		SeasonalAmplitude:         10 + 10*(1-math.Exp(-km/1000)),
		SeasonalPressureAmplitude: 300 * (1 + 0.2*continental),
		PressureMin:               50000 - 20000*continental,
		PressureMax:               110000 + 10000*continental,
		SpongeWidth:               sponge,

		OrographicGain:       1.5 * math.Sqrt(mpc/1000),
		MaritimeHeight:       300 * math.Sqrt(km/100),
		CoastalRadius:        math.Max(1, seaBreezeReach/mpc),
		WindErosionRate:      2e-4 * mpc / (mpc + 1000),
		EvaporationStrength:  1,
		HydraulicErosionRate: 0.1,
		ErosionCapPerTick:    5e-3,

		MoistureStrength:  1,
		MoistureTransport: 0.5 * mpc / characteristicWind,
	}
}

// Latitude of row y in degrees. Row 0 is the northern edge.
func (p Parameters) Latitude(y int) float64 {
	h := p.Scale.Height
	if h <= 1 {
		return p.LatitudeCenter
	}
	return p.LatitudeCenter + (0.5-float64(y)/float64(h-1))*p.LatitudeRange
}

// Tuning scales the coupling gains. Values of 1 keep the derived defaults;
// 0 disables a term.
type Tuning struct {
	Orographic       float64
	Maritime         float64
	WindErosion      float64
	Evaporation      float64
	HydraulicErosion float64
	Moisture         float64
}

func DefaultTuning() Tuning {
	return Tuning{Orographic: 1, Maritime: 1, WindErosion: 1, Evaporation: 1, HydraulicErosion: 1, Moisture: 1}
}

const maxTuning = 10

func (t Tuning) Validate() error {
	checks := []struct {
		field string
		v     float64
	}{
		{"coupling.orographic", t.Orographic},
		{"coupling.maritime", t.Maritime},
		{"coupling.wind_erosion", t.WindErosion},
		{"coupling.evaporation", t.Evaporation},
		{"erosion.hydraulic_strength", t.HydraulicErosion},
		{"coupling.moisture", t.Moisture},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || c.v < 0 || c.v > maxTuning {
			return configErr(c.field, c.v, "must be within [0, 10]")
		}
	}
	return nil
}

// DeriveFor applies the tuning to derived parameters.
func (t Tuning) DeriveFor(p Parameters) Parameters {
	p.OrographicGain *= t.Orographic
	p.MaritimeHeight *= t.Maritime
	p.WindErosionRate *= t.WindErosion
	p.EvaporationStrength *= t.Evaporation
	p.HydraulicErosionRate *= t.HydraulicErosion
	p.MoistureStrength *= t.Moisture
	return p
}

var _ ScaleAware[Parameters] = Tuning{}
