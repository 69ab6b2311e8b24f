package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/terrasim/internal/sim"
)

// Fields holds the grids of one frame in row-major order.
type Fields struct {
	Tick        int64     `json:"tick"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Elevation   []float64 `json:"elevation_m"`
	Depth       []float64 `json:"depth_m"`
	Temperature []float64 `json:"temperature_c"`
	Pressure    []float64 `json:"pressure_pa"`
	WindU       []float64 `json:"wind_u"`
	WindV       []float64 `json:"wind_v"`
	Rain        []float64 `json:"rain_multiplier"`
	Humidity    []float64 `json:"relative_humidity,omitempty"`
	Vorticity   []float64 `json:"vorticity_per_s"`
	Systems     []System  `json:"pressure_systems"`
}

// System is one pressure high or low in a stored frame.
type System struct {
	Kind     string  `json:"kind"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Pressure float64 `json:"pressure_pa"`
	Anomaly  float64 `json:"anomaly_pa"`
}

func FieldsOf(f sim.Frame) Fields {
	out := Fields{
		Tick:        f.Tick,
		Width:       f.Elevation.Width(),
		Height:      f.Elevation.Height(),
		Elevation:   f.Elevation.Values(),
		Depth:       f.Hydro.Depth.Values(),
		Temperature: f.Atmos.Temperature.Values(),
		Pressure:    f.Atmos.Pressure.Values(),
		WindU:       f.Atmos.WindU.Values(),
		WindV:       f.Atmos.WindV.Values(),
		Rain:        f.RainMultiplier.Values(),
		Vorticity:   f.Vorticity.Values(),
		Systems:     make([]System, 0, len(f.Systems)),
	}
	if !f.Humidity.IsZero() {
		out.Humidity = f.Humidity.Values()
	}
	for _, p := range f.Systems {
		out.Systems = append(out.Systems, System{Kind: p.Kind.String(), X: p.X, Y: p.Y, Pressure: p.Pressure, Anomaly: p.Anomaly})
	}
	return out
}

// SaveFields stores a frame in an existing run.
func (s *Store) SaveFields(runID string, f sim.Frame) error {
	dir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
		}
		return err
	}
	return writeJSON(filepath.Join(dir, fieldsFile), FieldsOf(f))
}

func (s *Store) LoadFields(runID string) (*Fields, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, fieldsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s fields: %w", runID, ErrRunNotFound)
		}
		return nil, err
	}
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Elevation) != f.Width*f.Height {
		return nil, fmt.Errorf("%s fields: %d cells for %dx%d grid", runID, len(f.Elevation), f.Width, f.Height)
	}
	return &f, nil
}
