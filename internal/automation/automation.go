// Package automation runs scripted scenarios and seed ensembles on top of
// the simulator.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/terrasim/internal/config"
	"github.com/san-kum/terrasim/internal/diagnostics"
	"github.com/san-kum/terrasim/internal/scale"
	"github.com/san-kum/terrasim/internal/sim"
	"github.com/san-kum/terrasim/internal/terrain"
)

// Scenario is a scripted sequence of phases on one simulator. Each phase
// may rescale the domain before it runs, so a scenario can zoom from a
// valley out to a continent without rebuilding state.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Preset      string         `yaml:"preset"`
	Config      *config.Config `yaml:"-"`
	Steps       []ScenarioStep `yaml:"steps"`
}

type ScenarioStep struct {
	Label    string  `yaml:"label"`
	Ticks    int     `yaml:"ticks"`
	DomainKm float64 `yaml:"domain_km,omitempty"`
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// An inline config is decoded over the defaults, like a config file.
	var inline struct {
		Config *yaml.Node `yaml:"config"`
	}
	if err := yaml.Unmarshal(data, &inline); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if inline.Config != nil {
		cfg := config.DefaultConfig()
		if err := inline.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse %s config: %w", path, err)
		}
		scenario.Config = cfg
	}
	return &scenario, nil
}

// BaseConfig resolves the scenario configuration: an inline config wins
// over a preset, and the defaults fill in when neither is set.
func (s *Scenario) BaseConfig() (*config.Config, error) {
	switch {
	case s.Config != nil:
		return s.Config, nil
	case s.Preset != "":
		cfg := config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, scale.NewConfigurationError("scenario.preset", s.Preset, fmt.Sprintf("unknown preset, have %v", config.ListPresets()))
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return scale.NewConfigurationError("scenario.steps", 0, "need at least one step")
	}
	for i, st := range s.Steps {
		if st.Ticks < 0 {
			return scale.NewConfigurationError(fmt.Sprintf("scenario.steps[%d].ticks", i), st.Ticks, "must not be negative")
		}
		if st.DomainKm < 0 {
			return scale.NewConfigurationError(fmt.Sprintf("scenario.steps[%d].domain_km", i), st.DomainKm, "must not be negative")
		}
	}
	cfg, err := s.BaseConfig()
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// StepResult is the outcome of one scenario phase.
type StepResult struct {
	Label     string
	DomainKm  float64
	Result    *sim.Result
	MeanScore float64
}

// RunScenario executes every step in order. Conservation violations are
// recorded in the step result and do not stop the scenario.
func RunScenario(ctx context.Context, scenario *Scenario, log *zap.Logger, opts ...sim.Option) ([]StepResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	base, _ := scenario.BaseConfig()
	cfg, err := base.ToSim()
	if err != nil {
		return nil, err
	}
	elev, err := terrain.Build(base.TerrainSpec())
	if err != nil {
		return nil, err
	}
	s, err := sim.New(cfg, elev, append([]sim.Option{sim.WithLogger(log)}, opts...)...)
	if err != nil {
		return nil, err
	}

	results := make([]StepResult, 0, len(scenario.Steps))
	for i, step := range scenario.Steps {
		if step.DomainKm > 0 {
			if err := s.Rescale(step.DomainKm); err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		label := step.Label
		if label == "" {
			label = fmt.Sprintf("step-%d", i+1)
		}
		log.Info("scenario step",
			zap.String("scenario", scenario.Name),
			zap.String("step", label),
			zap.Int("ticks", step.Ticks),
			zap.Float64("domain_km", s.Params().Scale.DomainKm))

		s.Validator().History().Reset()
		res, err := s.Run(ctx, step.Ticks)
		if err != nil && !errors.Is(err, scale.ErrConservation) {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{
			Label:     label,
			DomainKm:  s.Params().Scale.DomainKm,
			Result:    res,
			MeanScore: s.Validator().History().Mean(diagnostics.ScoreOf),
		})
	}
	return results, nil
}
