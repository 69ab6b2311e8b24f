package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/terrasim/internal/atmos"
	"github.com/san-kum/terrasim/internal/compute"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/sim"
	"github.com/san-kum/terrasim/internal/terrain"
)

func newMonitor(t *testing.T, ticks int) (Monitor, *sim.Simulator) {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.DomainKm = 200
	cfg.Width = 16
	cfg.Height = 12
	elev, err := terrain.Build(terrain.Spec{Kind: "island", Width: 16, Height: 12, Relief: 800})
	if err != nil {
		t.Fatal(err)
	}
	s, err := sim.New(cfg, elev, sim.WithBackend(compute.NewSerialBackend()))
	if err != nil {
		t.Fatal(err)
	}
	return NewMonitor(s, ticks), s
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Monitor, msg tea.Msg) Monitor {
	next, _ := m.Update(msg)
	return next.(Monitor)
}

func TestMonitorSteps(t *testing.T) {
	m, _ := newMonitor(t, 3)
	if !strings.Contains(m.View(), "waiting for first tick") {
		t.Error("expected placeholder before the first tick")
	}

	for i := 0; i < 5; i++ {
		m = update(m, TickMsg{})
	}
	if m.frame.Tick != 3 {
		t.Errorf("expected monitor to stop at tick 3, got %d", m.frame.Tick)
	}
	if m.running {
		t.Error("monitor should stop running at the tick limit")
	}
	if len(m.scores) != 3 {
		t.Errorf("expected 3 scores, got %d", len(m.scores))
	}
	if !strings.Contains(m.View(), "DONE") {
		t.Error("expected DONE status")
	}
}

func TestMonitorKeys(t *testing.T) {
	m, s := newMonitor(t, 0)
	m = update(m, TickMsg{})

	m = update(m, key(" "))
	if m.running {
		t.Fatal("space should pause")
	}
	m = update(m, TickMsg{})
	if m.frame.Tick != 1 {
		t.Errorf("paused monitor stepped to tick %d", m.frame.Tick)
	}
	m = update(m, key("n"))
	if m.frame.Tick != 2 {
		t.Errorf("n should single-step, got tick %d", m.frame.Tick)
	}

	m = update(m, key("f"))
	if m.field != FieldDepth {
		t.Errorf("expected depth field, got %s", m.field)
	}
	for i := 0; i < int(fieldCount)-1; i++ {
		m = update(m, key("f"))
	}
	if m.field != FieldElevation {
		t.Errorf("field cycle should wrap, got %s", m.field)
	}

	m = update(m, key("+"))
	if km := s.Params().Scale.DomainKm; km != 400 {
		t.Errorf("expected 400 km after +, got %f", km)
	}
	m = update(m, key("-"))
	if km := s.Params().Scale.DomainKm; km != 200 {
		t.Errorf("expected 200 km after -, got %f", km)
	}

	m = update(m, key("t"))
	if m.theme != 1 {
		t.Errorf("expected second theme, got %d", m.theme)
	}

	for f := Field(0); f < fieldCount; f++ {
		m.field = f
		if !strings.Contains(m.View(), strings.ToUpper(f.String())) {
			t.Errorf("view should title the %s field", f)
		}
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestHeatmap(t *testing.T) {
	g := grid.New[float64](8, 4)
	for i := 0; i < g.Len(); i++ {
		x, _ := g.XY(i)
		g.SetIndex(i, float64(x))
	}
	out := Heatmap(g, 4, 2, ThemeMono)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], " ") || !strings.HasSuffix(lines[0], "█") {
		t.Errorf("expected a dark-to-full gradient, got %q", lines[0])
	}
	if Heatmap(grid.New[float64](0, 0), 4, 4, ThemeMono) != "" {
		t.Error("empty grid should render nothing")
	}
}

func TestLandMaskAndWind(t *testing.T) {
	elev := grid.NewFilled(4, 4, -10.0)
	elev.Set(0, 0, 100)
	mask := LandMask(elev, 4, 2)
	if strings.Count(mask, "\n") != 2 {
		t.Errorf("expected 2 canvas rows, got %q", mask)
	}
	if []rune(mask)[0] == brailleBlank {
		t.Error("north-west land cell should be drawn")
	}

	u := grid.NewFilled(8, 8, 5.0)
	v := grid.New[float64](8, 8)
	arrows := WindArrows(u, v, 4, 2)
	if arrows == NewCanvas(4, 2).String() {
		t.Error("wind arrows should draw something")
	}
	calm := WindArrows(v, v, 4, 2)
	if calm != NewCanvas(4, 2).String() {
		t.Error("calm wind should draw nothing")
	}
}

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Line(0, 0, 3, 3)
	c.Set(-1, 0)
	c.Set(100, 100)
	want := string([]rune{brailleBlank | 0x1 | 0x10, brailleBlank | 0x4 | 0x80}) + "\n"
	if got := c.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSparklineAndScoreBar(t *testing.T) {
	if got := Sparkline([]float64{0, 1}, 10); got != "▁█" {
		t.Errorf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{1, 2, 3, 4}, 2); []rune(got)[1] != '█' {
		t.Errorf("sparkline should keep the latest values, got %q", got)
	}
	if got := ScoreBar(0.5, 10, ThemeMono); strings.Count(got, "█") != 5 {
		t.Errorf("expected half-filled bar, got %q", got)
	}
}

func TestPlotSeries(t *testing.T) {
	if !strings.Contains(PlotSeries(nil, "score", 20, 4), "no data") {
		t.Error("empty series should say no data")
	}
	if !strings.Contains(PlotSeries([]float64{1, 0.9, 0.95}, "score", 20, 4), "score") {
		t.Error("expected caption in plot")
	}
}

func TestSystemSummary(t *testing.T) {
	if got := SystemSummary(nil); got != "none" {
		t.Errorf("expected none, got %q", got)
	}
	got := SystemSummary([]atmos.PressureSystem{
		{Kind: atmos.Low, X: 4, Y: 2, Anomaly: -420},
		{Kind: atmos.High, X: 9, Y: 7, Anomaly: 300},
		{Kind: atmos.Low, X: 1, Y: 1, Anomaly: -210},
	})
	if want := "2L 1H, low -420 Pa at (4,2)"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
