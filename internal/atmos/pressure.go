package atmos

import (
	"math"

	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
)

// noiseMemory is the share of last tick's noise kept in the next one.
const noiseMemory = 0.9

// ThermalPressure returns Δp = -k·ρ·g·β·(T - T̄) with β = 1/(T̄ + 273.15).
func ThermalPressure(t, meanT, height float64) float64 {
	beta := 1 / (meanT + scale.KelvinOffset)
	return -height * scale.AirDensity * scale.Gravity * beta * (t - meanT)
}

// Barometric returns the hydrostatic surface pressure at elevation. Below
// sea level the surface is water, so the profile stops at zero.
func Barometric(elevation float64) float64 {
	return scale.SeaLevelPress * math.Exp(-math.Max(elevation, 0)/scale.ScaleHeight)
}

func (e *Engine) updatePressure(elevation grid.Snapshot[float64], f Forcing) int {
	w, h := e.params.Scale.Width, e.params.Scale.Height
	temp := e.temperature.Read()
	meanT := grid.Mean(temp)
	k := e.params.ThermalHeight
	seasonal := e.params.SeasonalPressureAmplitude * math.Sin(2*math.Pi*f.Season)
	lo, hi := e.params.PressureMin, e.params.PressureMax

	noise := e.advanceNoise()

	clamps := make([]int, e.backend.Chunks(h, minRows))
	e.backend.ParallelFor(h, minRows, func(chunk, y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				dp := ThermalPressure(temp.AtIndex(i), meanT, k)
				e.thermal.SetIndex(i, dp)

				anomaly := dp + seasonal
				if f.Pressure != nil {
					anomaly += f.Pressure.AtIndex(i)
				}
				if noise != nil {
					anomaly += noise.AtIndex(i)
				}

				sl := scale.SeaLevelPress + anomaly
				p := Barometric(elevation.AtIndex(i)) + anomaly
				if p < lo || p > hi {
					clamps[chunk]++
				}
				e.seaLevel.SetIndex(i, clamp(sl, lo, hi))
				e.pressure.SetIndex(i, clamp(p, lo, hi))
			}
		}
	})

	n := 0
	for _, c := range clamps {
		n += c
	}
	return n
}

// advanceNoise evolves the smoothed noise field as a first-order
// autoregressive process. It returns nil when noise is disabled.
func (e *Engine) advanceNoise() *grid.Grid[float64] {
	amp := e.opts.NoiseAmplitude
	if amp == 0 {
		return nil
	}

	// white noise is drawn serially so the field depends only on the seed
	fresh := e.noise.Write()
	for i := range fresh.Data() {
		fresh.SetIndex(i, e.rng.NormFloat64())
	}
	e.noise.Swap()

	src := e.noise.Read()
	prev := e.noise.Write()
	w, h := src.Width(), src.Height()
	innovation := math.Sqrt(1 - noiseMemory*noiseMemory)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			smooth := 0.5*src.At(x, y) + 0.5*grid.Mean4(src, x, y)
			prev.Set(x, y, noiseMemory*prev.At(x, y)+innovation*amp*smooth)
		}
	}
	e.noise.Swap()
	return e.noise.Read()
}
