package atmos

import (
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

const (
	equatorTemperature = 30.0 // °C
	polarDrop          = 40.0 // °C from equator to pole
	minRows            = 8
)

// Climatology is the season-free temperature of one cell in °C.
func Climatology(latDeg, elevation float64) float64 {
	s := math.Sin(latDeg * math.Pi / 180)
	return equatorTemperature - polarDrop*s*s - scale.LapseRate*math.Max(elevation, 0)
}

// SeasonalOffset is the seasonal swing in °C. Season 0.25 is northern
// summer; the southern hemisphere is mirrored.
func SeasonalOffset(latDeg, season, amplitude float64) float64 {
	return amplitude * math.Sin(2*math.Pi*season) * math.Sin(latDeg*math.Pi/180)
}

// BaseTemperature is the undiffused temperature of one cell in °C.
func BaseTemperature(latDeg, elevation, season, seasonalAmplitude float64) float64 {
	return Climatology(latDeg, elevation) + SeasonalOffset(latDeg, season, seasonalAmplitude)
}

// updateTemperature refreshes the diffused climatology when its cache is
// stale and adds the seasonal offset every tick. The offset is uniform
// along a row, so it needs no diffusion and the cache never holds a
// season.
func (e *Engine) updateTemperature(elevation grid.Snapshot[float64], season float64) StaleReason {
	key := CacheKey{Scale: e.params.Scale, Elevation: elevation.Version()}
	reason := e.cache.Stale(key)
	if reason != Fresh {
		e.refreshClimatology(elevation)
		e.cache.Store(key)
		e.log.Debug("climatology recomputed",
			zap.Int64("tick", e.tick),
			zap.Stringer("reason", reason))
	}
	e.cache.Age()

	w, h := e.params.Scale.Width, e.params.Scale.Height
	amp := e.params.SeasonalAmplitude
	base := e.climatology.Read()
	out := e.temperature.Write()
	e.backend.ParallelFor(h, minRows, func(_, y0, y1 int) {
		for y := y0; y < y1; y++ {
			offset := SeasonalOffset(e.latitude.At(0, y), season, amp)
			for x := 0; x < w; x++ {
				out.Set(x, y, clamp(base.At(x, y)+offset, scale.MinTemperature, scale.MaxTemperature))
			}
		}
	})
	e.temperature.Swap()
	return reason
}

func (e *Engine) refreshClimatology(elevation grid.Snapshot[float64]) {
	w, h := e.params.Scale.Width, e.params.Scale.Height

	raw := e.climatology.Write()
	e.backend.ParallelFor(h, minRows, func(_, y0, y1 int) {
		for y := y0; y < y1; y++ {
			lat := e.latitude.At(0, y)
			for x := 0; x < w; x++ {
				raw.Set(x, y, Climatology(lat, elevation.At(x, y)))
			}
		}
	})
	e.climatology.Swap()

	d := e.params.DiffusionFactor
	src := e.climatology.Read()
	dst := e.climatology.Write()
	e.backend.ParallelFor(h, minRows, func(_, y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				t := src.At(x, y)
				dst.Set(x, y, t+d*(grid.Mean4(src, x, y)-t))
			}
		}
	})
	e.climatology.Swap()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
