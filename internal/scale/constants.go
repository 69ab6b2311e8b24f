package scale

// Physical constants.
const (
	Gravity         = 9.81      // m/s²
	EarthRotation   = 7.2921e-5 // rad/s
	AirDensity      = 1.225     // kg/m³
	SeaLevelPress   = 101325.0  // Pa
	ScaleHeight     = 8400.0    // m, barometric
	LapseRate       = 0.0065    // °C/m
	KelvinOffset    = 273.15
	MetersPerDegree = 111320.0
	VonKarman       = 0.4
)

// Numerical safety limits.
const (
	// FThreshold is the |f| below which geostrophic balance is not used.
	// 2Ω·sin(0.39°) ≈ 1e-6 s⁻¹.
	FThreshold = 1e-6

	CFLSafety = 0.25

	MinRealisticVelocity = 0.01 // m/s, water
	MaxRealisticVelocity = 10.0 // m/s, water
	VelocityWarning      = 8.0  // m/s, water

	MaxRealisticWind = 100.0 // m/s, hard clamp
	RealisticWind    = 50.0  // m/s, diagnostics bound

	MinTemperature       = -60.0
	MaxTemperature       = 55.0
	RealisticTempLow     = -50.0
	RealisticTempHigh    = 50.0
	MassTolerance        = 1e-6
	MassWarning          = 1e-5
	MassHardCeiling      = 1e-3
	CFLWarning           = 0.8
	BoundaryAnomalyRatio = 2.0
)

// Reference grid the rainfall area ratio is measured against.
const (
	ReferenceWidth  = 240
	ReferenceHeight = 120
)
