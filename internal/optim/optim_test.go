package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/terrasim/internal/compute"
	"github.com/san-kum/terrasim/internal/scale"
	"github.com/san-kum/terrasim/internal/sim"
	"github.com/san-kum/terrasim/internal/terrain"
)

func TestGridSearchFindsMaximum(t *testing.T) {
	g, err := NewGridSearch([]string{"a", "b"}, [][]float64{{0, 1, 2}, {-1, 0, 1}})
	require.NoError(t, err)
	assert.Equal(t, 9, g.Points())

	best, val, trials, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		return -math.Pow(p["a"]-1, 2) - math.Pow(p["b"], 2), nil
	})
	require.NoError(t, err)
	assert.Len(t, trials, 9)
	assert.Equal(t, map[string]float64{"a": 1, "b": 0}, best)
	assert.Equal(t, 0.0, val)

	ranked := Ranked(trials)
	assert.Equal(t, best, ranked[0].Params)
}

func TestGridSearchSkipsFailures(t *testing.T) {
	g, err := NewGridSearch([]string{"a"}, [][]float64{{1, 2, 3}})
	require.NoError(t, err)

	boom := errors.New("boom")
	best, _, trials, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		if p["a"] == 3 {
			return 0, boom
		}
		return p["a"], nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, best["a"])
	assert.ErrorIs(t, trials[2].Err, boom)
	assert.Len(t, Ranked(trials), 2)

	_, _, _, err = g.Search(context.Background(), func(context.Context, map[string]float64) (float64, error) {
		return 0, boom
	})
	assert.Error(t, err)
}

func TestGridSearchCancelled(t *testing.T) {
	g, err := NewGridSearch([]string{"a"}, [][]float64{{1, 2}})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, trials, err := g.Search(ctx, func(context.Context, map[string]float64) (float64, error) { return 1, nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, trials)
}

func TestNewGridSearchValidates(t *testing.T) {
	_, err := NewGridSearch([]string{"a", "b"}, [][]float64{{1}})
	assert.Error(t, err)
	_, err = NewGridSearch([]string{"a"}, [][]float64{{}})
	assert.Error(t, err)
}

func TestApplyTuning(t *testing.T) {
	tuned, err := ApplyTuning(scale.DefaultTuning(), map[string]float64{"maritime": 0, "orographic": 2.5, "moisture": 1.5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, tuned.Maritime)
	assert.Equal(t, 2.5, tuned.Orographic)
	assert.Equal(t, 1.5, tuned.Moisture)
	assert.Equal(t, 1.0, tuned.Evaporation)

	_, err = ApplyTuning(scale.DefaultTuning(), map[string]float64{"gravity": 2})
	assert.ErrorIs(t, err, scale.ErrConfiguration)
	_, err = ApplyTuning(scale.DefaultTuning(), map[string]float64{"maritime": 20})
	assert.ErrorIs(t, err, scale.ErrConfiguration)
}

func TestTuningObjective(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.DomainKm = 100
	cfg.Width = 12
	cfg.Height = 12
	elev, err := terrain.Build(terrain.Spec{Kind: "ridge", Width: 12, Height: 12, Relief: 900})
	require.NoError(t, err)

	obj := TuningObjective(cfg, elev, 3, sim.WithBackend(compute.NewSerialBackend()))
	score, err := obj(context.Background(), map[string]float64{"orographic": 0.5})
	require.NoError(t, err)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)

	_, err = obj(context.Background(), map[string]float64{"orographic": -1})
	assert.ErrorIs(t, err, scale.ErrConfiguration)
}
