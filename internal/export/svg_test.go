package export

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/viz"
)

func TestFieldSVG(t *testing.T) {
	g := grid.New[float64](4, 3)
	for i := 0; i < g.Len(); i++ {
		g.SetIndex(i, float64(i))
	}
	g.Set(1, 1, math.NaN())

	svg := FieldSVG(g, viz.ThemeMono, 10)
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("not an svg document")
	}
	if !strings.Contains(svg, `width="40" height="30"`) {
		t.Error("expected 40x30 canvas")
	}
	// 11 finite cells plus the background rect.
	if n := strings.Count(svg, "<rect"); n != 12 {
		t.Errorf("expected 12 rects, got %d", n)
	}
	if !strings.Contains(svg, `fill="#222222"`) || !strings.Contains(svg, `fill="#ffffff"`) {
		t.Error("expected both ends of the ramp")
	}

	if FieldSVG(grid.New[float64](0, 0), viz.ThemeMono, 10) != "" {
		t.Error("empty grid should render nothing")
	}
}

func TestSeriesSVG(t *testing.T) {
	svg := SeriesSVG([]float64{1, 0.9, 0.95}, 300, 100, "#00ff88")
	if !strings.Contains(svg, `d="M0.0,`) {
		t.Error("path should start at x=0")
	}
	if strings.Count(svg, " L") != 2 {
		t.Errorf("expected 2 line segments in %s", svg)
	}
	if SeriesSVG([]float64{1}, 300, 100, "#fff") != "" {
		t.Error("single point should render nothing")
	}
}
