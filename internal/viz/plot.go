package viz

import (
	"github.com/guptarohit/asciigraph"
)

// PlotSeries draws values as an ASCII line chart. Series longer than
// width are resampled by asciigraph.
func PlotSeries(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return caption + ": no data"
	}
	if len(values) == 1 {
		values = []float64{values[0], values[0]}
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption))
}

// PlotMany overlays several series of equal length.
func PlotMany(series [][]float64, caption string, width, height int) string {
	if len(series) == 0 || len(series[0]) == 0 {
		return caption + ": no data"
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow, asciigraph.Red))
}
