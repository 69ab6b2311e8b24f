package viz

import (
	"math"
	"strings"

	"github.com/san-kum/terrasim/internal/grid"
)

// Braille patterns hold 2x4 dots per rune, offset from U+2800:
// 1 4
// 2 5
// 3 6
// 7 8
const brailleBlank = 0x2800

var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a dot canvas of Cols x Rows runes, addressed in dots:
// (Cols*2) x (Rows*4).
type Canvas struct {
	Cols, Rows int
	cells      [][]rune
}

func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{Cols: cols, Rows: rows, cells: make([][]rune, rows)}
	for i := range c.cells {
		c.cells[i] = make([]rune, cols)
	}
	c.Clear()
	return c
}

func (c *Canvas) DotWidth() int  { return c.Cols * 2 }
func (c *Canvas) DotHeight() int { return c.Rows * 4 }

// Set lights the dot at (x, y). Dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.DotWidth() || y >= c.DotHeight() {
		return
	}
	c.cells[y/4][x/2] |= dotBits[y%4][x%2]
}

func (c *Canvas) Clear() {
	for _, row := range c.cells {
		for j := range row {
			row[j] = brailleBlank
		}
	}
}

// Line draws from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.cells {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// sample maps a dot coordinate to the nearest grid cell.
func sample(r grid.Reader[float64], dx, dy, dotW, dotH int) float64 {
	x := min(dx*r.Width()/dotW, r.Width()-1)
	y := min(dy*r.Height()/dotH, r.Height()-1)
	return r.At(x, y)
}

// LandMask draws every dot whose terrain is above sea level.
func LandMask(elev grid.Reader[float64], cols, rows int) string {
	c := NewCanvas(cols, rows)
	if elev.Width() == 0 || elev.Height() == 0 {
		return c.String()
	}
	w, h := c.DotWidth(), c.DotHeight()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if sample(elev, x, y, w, h) > 0 {
				c.Set(x, y)
			}
		}
	}
	return c.String()
}

// WindArrows draws one stroke per character block pointing downwind,
// scaled by speed relative to the fastest sampled wind. Row 0 is north,
// so a northward wind draws upwards.
func WindArrows(u, v grid.Reader[float64], cols, rows int) string {
	c := NewCanvas(cols, rows)
	if u.Width() == 0 || u.Height() == 0 {
		return c.String()
	}
	w, h := c.DotWidth(), c.DotHeight()

	const step = 4
	peak := 0.0
	for y := step / 2; y < h; y += step {
		for x := step / 2; x < w; x += step {
			peak = math.Max(peak, math.Hypot(sample(u, x, y, w, h), sample(v, x, y, w, h)))
		}
	}
	if peak == 0 {
		return c.String()
	}
	for y := step / 2; y < h; y += step {
		for x := step / 2; x < w; x += step {
			wu, wv := sample(u, x, y, w, h), sample(v, x, y, w, h)
			k := float64(step-1) / peak
			c.Line(x, y, x+int(math.Round(wu*k)), y-int(math.Round(wv*k)))
		}
	}
	return c.String()
}
