package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/terrasim/internal/compute"
	"github.com/san-kum/terrasim/internal/config"
	"github.com/san-kum/terrasim/internal/scale"
	"github.com/san-kum/terrasim/internal/sim"
	"github.com/san-kum/terrasim/internal/terrain"
)

const zoomScenario = `
name: zoom
description: valley out to continent
config:
  domain: {size_km: 20, width: 16, height: 12}
  terrain: {kind: island, relief_m: 600}
steps:
  - label: valley
    ticks: 3
  - label: region
    ticks: 2
    domain_km: 200
  - ticks: 2
    domain_km: 2000
`

func TestLoadAndRunScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(zoomScenario), 0644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "zoom", sc.Name)
	require.Len(t, sc.Steps, 3)

	cfg, err := sc.BaseConfig()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRainfall, cfg.Hydro.RainfallMmPerHour, "inline config keeps unrelated defaults")
	assert.Equal(t, 16, cfg.Domain.Width)

	results, err := RunScenario(context.Background(), sc, nil, sim.WithBackend(compute.NewSerialBackend()))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "valley", results[0].Label)
	assert.Equal(t, 20.0, results[0].DomainKm)
	assert.Equal(t, 200.0, results[1].DomainKm)
	assert.Equal(t, "step-3", results[2].Label)
	assert.Equal(t, 2000.0, results[2].DomainKm)
	assert.Equal(t, int64(7), results[2].Result.Final.Tick)
	for _, r := range results {
		assert.Greater(t, r.MeanScore, 0.5)
	}
}

func TestScenarioValidation(t *testing.T) {
	tests := []struct {
		name string
		sc   Scenario
	}{
		{"no steps", Scenario{}},
		{"negative ticks", Scenario{Steps: []ScenarioStep{{Ticks: -1}}}},
		{"negative domain", Scenario{Steps: []ScenarioStep{{Ticks: 1, DomainKm: -5}}}},
		{"unknown preset", Scenario{Preset: "moon", Steps: []ScenarioStep{{Ticks: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.sc.Validate(), scale.ErrConfiguration)
			_, err := RunScenario(context.Background(), &tt.sc, nil)
			assert.ErrorIs(t, err, scale.ErrConfiguration)
		})
	}

	sc := Scenario{Preset: "valley", Steps: []ScenarioStep{{Ticks: 1}}}
	assert.NoError(t, sc.Validate())
}

func TestRunEnsemble(t *testing.T) {
	base := sim.DefaultConfig()
	base.DomainKm = 300
	base.Width = 12
	base.Height = 10
	base.NoiseAmplitude = 200
	elev, err := terrain.Build(terrain.Spec{Kind: "rough", Width: 12, Height: 10, Relief: 900, Seed: 5})
	require.NoError(t, err)

	results, err := RunEnsemble(context.Background(), EnsembleConfig{
		Base:      base,
		Elevation: elev,
		Trials:    4,
		Ticks:     3,
		FirstSeed: 10,
		MinScore:  0.5,
	}, 2, nil, sim.WithBackend(compute.NewSerialBackend()))
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, r := range results {
		assert.Equal(t, i, r.Trial)
		assert.Equal(t, uint64(10+i), r.Seed)
		assert.True(t, r.Finite)
	}
	stable, unstable, spread := EnsembleStats(results)
	assert.Equal(t, 4, stable+unstable)
	assert.GreaterOrEqual(t, spread, 0.0)

	_, err = RunEnsemble(context.Background(), EnsembleConfig{Base: base, Elevation: elev}, 0, nil)
	assert.ErrorIs(t, err, scale.ErrConfiguration)
}

func TestEnsembleStats(t *testing.T) {
	stable, unstable, spread := EnsembleStats([]EnsembleResult{
		{MeanScore: 0.9, Stable: true},
		{MeanScore: 0.4},
		{MeanScore: 0.95, Stable: true},
	})
	assert.Equal(t, 2, stable)
	assert.Equal(t, 1, unstable)
	assert.InDelta(t, 0.55, spread, 1e-12)

	_, _, spread = EnsembleStats(nil)
	assert.Zero(t, spread)
}
