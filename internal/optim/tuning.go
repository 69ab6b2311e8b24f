package optim

import (
	"context"
	"fmt"

	"github.com/san-kum/terrasim/internal/diagnostics"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
	"github.com/san-kum/terrasim/internal/sim"
)

// TuningParams are the names a tuning search accepts.
var TuningParams = []string{"orographic", "maritime", "wind_erosion", "evaporation", "hydraulic_erosion", "moisture"}

// ApplyTuning writes named strengths into t.
func ApplyTuning(t scale.Tuning, params map[string]float64) (scale.Tuning, error) {
	for name, v := range params {
		switch name {
		case "orographic":
			t.Orographic = v
		case "maritime":
			t.Maritime = v
		case "wind_erosion":
			t.WindErosion = v
		case "evaporation":
			t.Evaporation = v
		case "hydraulic_erosion":
			t.HydraulicErosion = v
		case "moisture":
			t.Moisture = v
		default:
			return t, scale.NewConfigurationError("tune."+name, v, fmt.Sprintf("unknown parameter, have %v", TuningParams))
		}
	}
	return t, t.Validate()
}

// TuningObjective runs base with the candidate tuning for ticks steps and
// returns the mean quality score. A conservation violation during the run
// counts against the score rather than failing the point.
func TuningObjective(base sim.Config, elevation grid.Reader[float64], ticks int, opts ...sim.Option) Objective {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		cfg := base
		t, err := ApplyTuning(base.Tuning, params)
		if err != nil {
			return 0, err
		}
		cfg.Tuning = t

		s, err := sim.New(cfg, elevation, opts...)
		if err != nil {
			return 0, err
		}
		res, err := s.Run(ctx, ticks)
		if res == nil {
			return 0, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		score := s.Validator().History().Mean(diagnostics.ScoreOf)
		if n := len(res.Errors); n > 0 {
			score *= 1 - float64(n)/float64(max(ticks, 1))
		}
		return score, nil
	}
}
