package sim

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/terrasim/internal/diagnostics"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

// SweepResult is one domain size of a sweep.
type SweepResult struct {
	DomainKm  float64
	Result    *Result
	MeanScore float64
	// Violation holds a conservation violation the run recovered from.
	Violation error
}

// Sweep runs the same terrain at several domain sizes concurrently. Each
// run gets its own simulator built from base with DomainKm replaced.
// Results follow the order of sizes. Options are applied to every
// simulator, so they must not carry shared state such as metrics.
func Sweep(ctx context.Context, base Config, elevation grid.Reader[float64], sizes []float64, ticks int, opts ...Option) ([]SweepResult, error) {
	for _, km := range sizes {
		cfg := base
		cfg.DomainKm = km
		if _, err := validateConfig(cfg); err != nil {
			return nil, err
		}
	}

	results := make([]SweepResult, len(sizes))
	g, ctx := errgroup.WithContext(ctx)
	for i, km := range sizes {
		g.Go(func() error {
			cfg := base
			cfg.DomainKm = km
			s, err := New(cfg, elevation, opts...)
			if err != nil {
				return err
			}
			res, err := s.Run(ctx, ticks)
			if err != nil && !errors.Is(err, scale.ErrConservation) {
				return err
			}
			results[i] = SweepResult{
				DomainKm:  km,
				Result:    res,
				MeanScore: s.Validator().History().Mean(diagnostics.ScoreOf),
				Violation: err,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
