// Package optim searches coupling strengths for the best simulation
// quality.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
)

// Objective scores one parameter set. Higher is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// GridSearch evaluates every combination of the parameter ranges.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	log        *zap.Logger
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("grid search: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("grid search: empty range for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, log: zap.NewNop()}, nil
}

func (g *GridSearch) WithLogger(l *zap.Logger) *GridSearch {
	g.log = l
	return g
}

// Points is the number of evaluations a search makes.
func (g *GridSearch) Points() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Trial is one evaluated point.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Search returns the best parameters and every trial. Points whose
// objective fails are kept in the trials and skipped for the best. A
// cancelled context stops the search with ctx.Err().
func (g *GridSearch) Search(ctx context.Context, objective Objective) (map[string]float64, float64, []Trial, error) {
	best := math.Inf(-1)
	var bestParams map[string]float64
	trials := make([]Trial, 0, g.Points())

	err := g.searchRecursive(ctx, 0, map[string]float64{}, func(params map[string]float64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		val, err := objective(ctx, params)
		trials = append(trials, Trial{Params: params, Value: val, Err: err})
		if err != nil {
			g.log.Warn("grid point failed", zap.Any("params", params), zap.Error(err))
			return nil
		}
		g.log.Debug("grid point", zap.Any("params", params), zap.Float64("value", val))
		if val > best {
			best = val
			bestParams = params
		}
		return nil
	})
	if err != nil {
		return nil, 0, trials, err
	}
	if bestParams == nil {
		return nil, 0, trials, fmt.Errorf("grid search: all %d points failed", len(trials))
	}
	return bestParams, best, trials, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64) error) error {
	if depth == len(g.paramNames) {
		return visit(current)
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		if err := g.searchRecursive(ctx, depth+1, next, visit); err != nil {
			return err
		}
	}
	return nil
}

// Ranked sorts successful trials best first.
func Ranked(trials []Trial) []Trial {
	out := make([]Trial, 0, len(trials))
	for _, t := range trials {
		if t.Err == nil {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}
