package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/terrasim/internal/coupling"
	"github.com/san-kum/terrasim/internal/scale"
	"github.com/san-kum/terrasim/internal/sim"
	"github.com/san-kum/terrasim/internal/terrain"
)

const (
	DefaultDomainKm     = 1000.0
	DefaultWidth        = 96
	DefaultHeight       = 48
	DefaultRainfall     = 0.72   // mm/h
	DefaultEvaporation  = 0.0072 // fraction of depth per hour
	DefaultDtHint       = 600.0
	DefaultInitialDepth = 0.01
	DefaultRefreshTicks = 24
	DefaultSeasonalRate = 1.0 / 8760
	DefaultRelief       = 1500.0
	DefaultTicks        = 240
)

type Config struct {
	Domain     DomainConfig     `yaml:"domain"`
	Hydro      HydroConfig      `yaml:"hydro"`
	Atmosphere AtmosphereConfig `yaml:"atmosphere"`
	Coupling   CouplingConfig   `yaml:"coupling"`
	Erosion    ErosionConfig    `yaml:"erosion"`
	Terrain    TerrainConfig    `yaml:"terrain"`
	Run        RunConfig        `yaml:"run"`
}

type DomainConfig struct {
	SizeKm float64 `yaml:"size_km"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
}

type HydroConfig struct {
	RainfallMmPerHour  float64 `yaml:"rainfall_mm_per_hour"`
	EvaporationPerHour float64 `yaml:"evaporation_per_hour"`
	DtHintS            float64 `yaml:"dt_hint_s"`
	InitialDepthM      float64 `yaml:"initial_depth_m"`
}

type AtmosphereConfig struct {
	TemperatureRefreshTicks int     `yaml:"temperature_refresh_ticks"`
	SeasonalRate            float64 `yaml:"seasonal_rate"`
	SeasonOffset            float64 `yaml:"season_offset"`
	NoiseAmplitudePa        float64 `yaml:"noise_amplitude_pa"`
}

// Term switches one coupling on or off and scales its derived gain.
type Term struct {
	Enabled  bool    `yaml:"enabled"`
	Strength float64 `yaml:"strength"`
}

type CouplingConfig struct {
	Orographic  Term `yaml:"orographic"`
	Maritime    Term `yaml:"maritime"`
	WindErosion Term `yaml:"wind_erosion"`
	Evaporation Term `yaml:"evaporation"`
	Moisture    Term `yaml:"moisture"`
}

type ErosionConfig struct {
	Authority         string  `yaml:"authority"`
	HydraulicStrength float64 `yaml:"hydraulic_strength"`
}

type TerrainConfig struct {
	Kind    string  `yaml:"kind"`
	ReliefM float64 `yaml:"relief_m"`
	Path    string  `yaml:"path,omitempty"`
}

type RunConfig struct {
	Ticks int    `yaml:"ticks"`
	Seed  uint64 `yaml:"seed"`
}

func on() Term { return Term{Enabled: true, Strength: 1} }

func DefaultConfig() *Config {
	return &Config{
		Domain: DomainConfig{SizeKm: DefaultDomainKm, Width: DefaultWidth, Height: DefaultHeight},
		Hydro: HydroConfig{
			RainfallMmPerHour:  DefaultRainfall,
			EvaporationPerHour: DefaultEvaporation,
			DtHintS:            DefaultDtHint,
			InitialDepthM:      DefaultInitialDepth,
		},
		Atmosphere: AtmosphereConfig{
			TemperatureRefreshTicks: DefaultRefreshTicks,
			SeasonalRate:            DefaultSeasonalRate,
		},
		Coupling: CouplingConfig{
			Orographic:  on(),
			Maritime:    on(),
			WindErosion: on(),
			Evaporation: on(),
			Moisture:    on(),
		},
		Erosion: ErosionConfig{Authority: "alternate", HydraulicStrength: 1},
		Terrain: TerrainConfig{Kind: "island", ReliefM: DefaultRelief},
		Run:     RunConfig{Ticks: DefaultTicks, Seed: 1},
	}
}

// Load reads a YAML file over the defaults, so a file only needs the keys
// it changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks everything a simulator needs before it is built. The
// error is always a *scale.ConfigurationError.
func (c *Config) Validate() error {
	if _, err := scale.Derive(c.Domain.SizeKm, c.Domain.Width, c.Domain.Height); err != nil {
		return err
	}
	checks := []struct {
		field string
		v     float64
	}{
		{"hydro.rainfall_mm_per_hour", c.Hydro.RainfallMmPerHour},
		{"hydro.evaporation_per_hour", c.Hydro.EvaporationPerHour},
		{"hydro.dt_hint_s", c.Hydro.DtHintS},
		{"hydro.initial_depth_m", c.Hydro.InitialDepthM},
		{"atmosphere.seasonal_rate", c.Atmosphere.SeasonalRate},
		{"atmosphere.noise_amplitude_pa", c.Atmosphere.NoiseAmplitudePa},
		{"terrain.relief_m", c.Terrain.ReliefM},
	}
	for _, ch := range checks {
		if math.IsNaN(ch.v) || math.IsInf(ch.v, 0) || ch.v < 0 {
			return scale.NewConfigurationError(ch.field, ch.v, "must be a finite non-negative number")
		}
	}
	if c.Hydro.EvaporationPerHour > 1 {
		return scale.NewConfigurationError("hydro.evaporation_per_hour", c.Hydro.EvaporationPerHour, "cannot remove more than the full depth per hour")
	}
	if c.Atmosphere.TemperatureRefreshTicks < 0 {
		return scale.NewConfigurationError("atmosphere.temperature_refresh_ticks", c.Atmosphere.TemperatureRefreshTicks, "must not be negative")
	}
	if c.Run.Ticks < 0 {
		return scale.NewConfigurationError("run.ticks", c.Run.Ticks, "must not be negative")
	}
	if err := c.tuning().Validate(); err != nil {
		return err
	}
	if _, err := sim.ParseAuthority(c.Erosion.Authority); err != nil {
		return err
	}
	if !terrain.Has(c.Terrain.Kind) {
		return scale.NewConfigurationError("terrain.kind", c.Terrain.Kind, "unknown terrain kind")
	}
	if c.Terrain.Kind == "csv" && c.Terrain.Path == "" {
		return scale.NewConfigurationError("terrain.path", c.Terrain.Path, "csv terrain needs a path")
	}
	return nil
}

func (c *Config) tuning() scale.Tuning {
	return scale.Tuning{
		Orographic:       c.Coupling.Orographic.Strength,
		Maritime:         c.Coupling.Maritime.Strength,
		WindErosion:      c.Coupling.WindErosion.Strength,
		Evaporation:      c.Coupling.Evaporation.Strength,
		HydraulicErosion: c.Erosion.HydraulicStrength,
		Moisture:         c.Coupling.Moisture.Strength,
	}
}

// ToSim validates the file and converts it to simulator units: rainfall
// in m/s and evaporation per second.
func (c *Config) ToSim() (sim.Config, error) {
	if err := c.Validate(); err != nil {
		return sim.Config{}, err
	}
	authority, _ := sim.ParseAuthority(c.Erosion.Authority)
	return sim.Config{
		DomainKm:                c.Domain.SizeKm,
		Width:                   c.Domain.Width,
		Height:                  c.Domain.Height,
		RainRate:                c.Hydro.RainfallMmPerHour / 3.6e6,
		EvaporationRate:         c.Hydro.EvaporationPerHour / 3600,
		DtHint:                  c.Hydro.DtHintS,
		InitialDepth:            c.Hydro.InitialDepthM,
		TemperatureRefreshTicks: c.Atmosphere.TemperatureRefreshTicks,
		SeasonalRate:            c.Atmosphere.SeasonalRate,
		SeasonOffset:            c.Atmosphere.SeasonOffset,
		NoiseAmplitude:          c.Atmosphere.NoiseAmplitudePa,
		Seed:                    c.Run.Seed,
		Tuning:                  c.tuning(),
		Couplings: coupling.Enabled{
			Orographic:  c.Coupling.Orographic.Enabled,
			Maritime:    c.Coupling.Maritime.Enabled,
			WindErosion: c.Coupling.WindErosion.Enabled,
			Evaporation: c.Coupling.Evaporation.Enabled,
			Moisture:    c.Coupling.Moisture.Enabled,
		},
		Authority: authority,
	}, nil
}

// TerrainSpec describes the elevation grid for this domain.
func (c *Config) TerrainSpec() terrain.Spec {
	return terrain.Spec{
		Kind:   c.Terrain.Kind,
		Width:  c.Domain.Width,
		Height: c.Domain.Height,
		Relief: c.Terrain.ReliefM,
		Seed:   c.Run.Seed,
		Path:   c.Terrain.Path,
	}
}
