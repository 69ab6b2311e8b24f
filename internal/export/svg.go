// Package export renders stored fields and report series as SVG.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/viz"
)

const background = "#0a0a0a"

// FieldSVG draws one rectangle per cell, shaded by the theme ramp over the
// finite range of the field. Non-finite cells are left as background.
func FieldSVG(r grid.Reader[float64], t viz.Theme, cellPx float64) string {
	w, h := r.Width(), r.Height()
	if w == 0 || h == 0 || cellPx <= 0 {
		return ""
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < r.Len(); i++ {
		if v := r.AtIndex(i); !math.IsNaN(v) && !math.IsInf(v, 0) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	span := hi - lo
	if span <= 0 || math.IsInf(span, 0) {
		span = 1
	}

	width, height := float64(w)*cellPx, float64(h)*cellPx
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g shape-rendering="crispEdges">
`, width, height, width, height, background)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := r.At(x, y)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
`, float64(x)*cellPx, float64(y)*cellPx, cellPx, cellPx, string(t.Shade((v-lo)/span)))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// SeriesSVG draws values against their index as a polyline, with 10%
// padding on the value axis.
func SeriesSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= span * 0.1
	span *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor)

	last := float64(len(values) - 1)
	for i, v := range values {
		x := float64(i) / last * float64(width)
		y := float64(height) - (v-lo)/span*float64(height)
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
