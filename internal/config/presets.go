package config

import "sort"

// Presets are tuned starting points per domain size. GetPreset returns a
// copy, so callers may edit the result.
var Presets = map[string]*Config{
	"valley": preset(func(c *Config) {
		c.Domain = DomainConfig{SizeKm: 10, Width: 64, Height: 64}
		c.Hydro.RainfallMmPerHour = 5
		c.Hydro.DtHintS = 30
		c.Terrain = TerrainConfig{Kind: "bowl", ReliefM: 400}
		c.Erosion.Authority = "hydraulic"
	}),
	"region": preset(func(c *Config) {
		c.Domain = DomainConfig{SizeKm: 100, Width: 96, Height: 64}
		c.Hydro.RainfallMmPerHour = 2
		c.Hydro.DtHintS = 120
		c.Terrain = TerrainConfig{Kind: "ridge", ReliefM: 1200}
	}),
	"continent": preset(func(c *Config) {
		c.Domain = DomainConfig{SizeKm: 1000, Width: 128, Height: 64}
		c.Terrain = TerrainConfig{Kind: "island", ReliefM: 2500}
		c.Atmosphere.NoiseAmplitudePa = 80
	}),
	"hemisphere": preset(func(c *Config) {
		c.Domain = DomainConfig{SizeKm: 10000, Width: 128, Height: 64}
		c.Hydro.DtHintS = 3600
		c.Terrain = TerrainConfig{Kind: "rough", ReliefM: 3000}
		c.Atmosphere.NoiseAmplitudePa = 200
		c.Erosion.Authority = "aeolian"
	}),
	"planet": preset(func(c *Config) {
		c.Domain = DomainConfig{SizeKm: 40000, Width: 128, Height: 64}
		c.Hydro.DtHintS = 3600
		c.Terrain = TerrainConfig{Kind: "rough", ReliefM: 4000}
		c.Atmosphere.NoiseAmplitudePa = 300
		c.Atmosphere.SeasonalRate = 1.0 / 2190
	}),
}

func preset(edit func(*Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
