package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/terrasim/internal/grid"
)

var shades = []rune(" ░▒▓█")

// Heatmap shades r into cols x rows characters. Each character averages
// its block of cells; the result is normalised over the finite range of
// the block means.
func Heatmap(r grid.Reader[float64], cols, rows int, t Theme) string {
	w, h := r.Width(), r.Height()
	if w == 0 || h == 0 || cols <= 0 || rows <= 0 {
		return ""
	}
	cols, rows = min(cols, w), min(rows, h)

	means := make([]float64, cols*rows)
	lo, hi := math.Inf(1), math.Inf(-1)
	for by := 0; by < rows; by++ {
		y0, y1 := by*h/rows, (by+1)*h/rows
		for bx := 0; bx < cols; bx++ {
			x0, x1 := bx*w/cols, (bx+1)*w/cols
			sum, n := 0.0, 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					if v := r.At(x, y); !math.IsNaN(v) && !math.IsInf(v, 0) {
						sum += v
						n++
					}
				}
			}
			m := math.NaN()
			if n > 0 {
				m = sum / float64(n)
				lo, hi = math.Min(lo, m), math.Max(hi, m)
			}
			means[by*cols+bx] = m
		}
	}
	span := hi - lo
	if span <= 0 || math.IsInf(span, 0) {
		span = 1
	}

	var b strings.Builder
	for by := 0; by < rows; by++ {
		for bx := 0; bx < cols; bx++ {
			m := means[by*cols+bx]
			if math.IsNaN(m) {
				b.WriteRune('?')
				continue
			}
			v := (m - lo) / span
			glyph := shades[min(len(shades)-1, int(v*float64(len(shades))))]
			b.WriteString(lipgloss.NewStyle().Foreground(t.Shade(v)).Render(string(glyph)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Speed returns |(u, v)| per cell.
func Speed(u, v grid.Reader[float64]) *grid.Grid[float64] {
	out := grid.New[float64](u.Width(), u.Height())
	for y := 0; y < u.Height(); y++ {
		for x := 0; x < u.Width(); x++ {
			out.Set(x, y, math.Hypot(u.At(x, y), v.At(x, y)))
		}
	}
	return out
}
