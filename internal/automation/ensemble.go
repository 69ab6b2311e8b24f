package automation

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/terrasim/internal/diagnostics"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
	"github.com/san-kum/terrasim/internal/sim"
)

// EnsembleConfig runs one configuration under several pressure noise seeds.
type EnsembleConfig struct {
	Base      sim.Config
	Elevation grid.Reader[float64]
	Trials    int
	Ticks     int
	// FirstSeed is the seed of trial 0; trial i uses FirstSeed+i.
	FirstSeed uint64
	// MinScore is the mean score a trial needs to count as stable.
	MinScore float64
}

type EnsembleResult struct {
	Trial      int
	Seed       uint64
	MeanScore  float64
	Violations int
	Finite     bool
	Stable     bool
}

// RunEnsemble runs the trials concurrently, at most limit at a time
// (limit <= 0 means no limit). Results follow trial order.
func RunEnsemble(ctx context.Context, cfg EnsembleConfig, limit int, log *zap.Logger, opts ...sim.Option) ([]EnsembleResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Trials <= 0 {
		return nil, scale.NewConfigurationError("ensemble.trials", cfg.Trials, "must be positive")
	}

	results := make([]EnsembleResult, cfg.Trials)
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for trial := 0; trial < cfg.Trials; trial++ {
		g.Go(func() error {
			c := cfg.Base
			c.Seed = cfg.FirstSeed + uint64(trial)
			s, err := sim.New(c, cfg.Elevation, opts...)
			if err != nil {
				return err
			}
			res, err := s.Run(ctx, cfg.Ticks)
			if err != nil && !errors.Is(err, scale.ErrConservation) {
				return err
			}

			finite := finiteFrame(res.Final)
			mean := s.Validator().History().Mean(diagnostics.ScoreOf)
			r := EnsembleResult{
				Trial:      trial,
				Seed:       c.Seed,
				MeanScore:  mean,
				Violations: len(res.Errors),
				Finite:     finite,
				Stable:     finite && len(res.Errors) == 0 && mean >= cfg.MinScore,
			}
			results[trial] = r
			log.Debug("ensemble trial",
				zap.Int("trial", trial),
				zap.Uint64("seed", c.Seed),
				zap.Float64("mean_score", mean),
				zap.Bool("stable", r.Stable))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func finiteFrame(f sim.Frame) bool {
	return grid.AllFinite(f.Hydro.Depth) &&
		grid.AllFinite(f.Atmos.Pressure) &&
		grid.AllFinite(f.Atmos.WindU) &&
		grid.AllFinite(f.Atmos.WindV) &&
		grid.AllFinite(f.Elevation)
}

// EnsembleStats summarises an ensemble.
func EnsembleStats(results []EnsembleResult) (stable, unstable int, spread float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range results {
		if r.Stable {
			stable++
		} else {
			unstable++
		}
		lo, hi = math.Min(lo, r.MeanScore), math.Max(hi, r.MeanScore)
	}
	if len(results) > 0 {
		spread = hi - lo
	}
	return stable, unstable, spread
}
