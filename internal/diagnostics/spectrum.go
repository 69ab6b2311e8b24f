package diagnostics

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// flatAmplitude is the largest spectral amplitude per sample still treated
// as no oscillation.
const flatAmplitude = 1e-12

// PowerSpectrum returns the amplitude of each frequency bin 0..n/2 of the
// mean-removed series.
func PowerSpectrum(series []float64) []float64 {
	n := len(series)
	if n < 2 {
		return nil
	}
	mean := stat.Mean(series, nil)
	centred := make([]float64, n)
	for i, v := range series {
		centred[i] = v - mean
	}

	coeff := fft.FFTReal(centred)
	out := make([]float64, n/2+1)
	for k := range out {
		out[k] = cmplx.Abs(coeff[k])
	}
	return out
}

// DominantPeriod is the period in ticks of the strongest oscillation in
// series, or 0 when the series is flat. Alternating erosion passes show up
// as a period of 2.
func DominantPeriod(series []float64) float64 {
	ps := PowerSpectrum(series)
	best, peak := 0, 0.0
	for k := 1; k < len(ps); k++ {
		if ps[k] > peak {
			best, peak = k, ps[k]
		}
	}
	if best == 0 || peak <= flatAmplitude*float64(len(series)) || math.IsNaN(peak) {
		return 0
	}
	return float64(len(series)) / float64(best)
}

// DominantPeriod of f over the retained reports.
func (h *History) DominantPeriod(f func(QualityReport) float64) float64 {
	return DominantPeriod(h.Series(f))
}
