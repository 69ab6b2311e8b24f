// Package terrain builds elevation grids for simulations: synthetic
// fixtures by name, or a CSV file of metres.
package terrain

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

// Spec describes the terrain to build.
type Spec struct {
	Kind   string
	Width  int
	Height int
	Relief float64 // m, peak height above sea level
	Seed   uint64
	Path   string // csv only
}

type Generator func(Spec) (*grid.Grid[float64], error)

type Registry struct {
	generators map[string]Generator
}

func NewRegistry() *Registry {
	r := &Registry{generators: make(map[string]Generator)}

	r.generators["flat"] = shaped(func(x, y float64) float64 { return 1 })
	r.generators["slope"] = shaped(func(x, y float64) float64 { return 1 - x })
	r.generators["ridge"] = shaped(func(x, y float64) float64 {
		return math.Max(0, 1-2*math.Abs(x-0.5))
	})
	r.generators["island"] = shaped(island)
	r.generators["bowl"] = shaped(func(x, y float64) float64 {
		return math.Min(1, 2*math.Hypot(x-0.5, y-0.5))
	})
	r.generators["rough"] = rough
	r.generators["csv"] = func(s Spec) (*grid.Grid[float64], error) { return LoadCSV(s.Path, s.Width, s.Height) }

	return r
}

// Register adds or replaces a generator.
func (r *Registry) Register(name string, g Generator) { r.generators[name] = g }

func (r *Registry) Build(s Spec) (*grid.Grid[float64], error) {
	fn, ok := r.generators[s.Kind]
	if !ok {
		return nil, scale.NewConfigurationError("terrain.kind", s.Kind, fmt.Sprintf("unknown terrain, have %v", r.List()))
	}
	if s.Width <= 0 || s.Height <= 0 {
		return nil, scale.NewConfigurationError("terrain", [2]int{s.Width, s.Height}, "size must be positive")
	}
	if math.IsNaN(s.Relief) || math.IsInf(s.Relief, 0) {
		return nil, scale.NewConfigurationError("terrain.relief_m", s.Relief, "must be finite")
	}
	return fn(s)
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Has(name string) bool {
	_, ok := r.generators[name]
	return ok
}

// Has reports whether the default registry knows kind.
func Has(kind string) bool { return NewRegistry().Has(kind) }

// Kinds lists the default registry.
func Kinds() []string { return NewRegistry().List() }

// Build uses the default registry.
func Build(s Spec) (*grid.Grid[float64], error) {
	return NewRegistry().Build(s)
}

// shaped scales a unit profile over normalised coordinates in [0, 1] by
// the relief.
func shaped(profile func(x, y float64) float64) Generator {
	return func(s Spec) (*grid.Grid[float64], error) {
		g := grid.New[float64](s.Width, s.Height)
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				g.Set(x, y, s.Relief*profile(unit(x, s.Width), unit(y, s.Height)))
			}
		}
		return g, nil
	}
}

func unit(i, n int) float64 {
	if n <= 1 {
		return 0.5
	}
	return float64(i) / float64(n-1)
}

// island is a cone that meets sea level at 0.4 from the centre and dips
// below it towards the edges.
func island(x, y float64) float64 {
	r := math.Hypot(x-0.5, y-0.5)
	return 1 - r/0.4
}

// rough adds seeded, smoothed noise to an island so the surface has
// features at several wavelengths.
func rough(s Spec) (*grid.Grid[float64], error) {
	base, _ := shaped(island)(s)
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed+1))
	noise := grid.New[float64](s.Width, s.Height)
	for i := range noise.Data() {
		noise.SetIndex(i, rng.Float64()*2-1)
	}
	for pass := 0; pass < 3; pass++ {
		next := noise.Clone()
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				next.Set(x, y, 0.5*noise.At(x, y)+0.5*grid.Mean4(noise, x, y))
			}
		}
		noise = next
	}
	for i := range base.Data() {
		base.SetIndex(i, base.AtIndex(i)+0.3*s.Relief*noise.AtIndex(i))
	}
	return base, nil
}
