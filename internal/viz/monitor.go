package viz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/terrasim/internal/atmos"
	"github.com/san-kum/terrasim/internal/grid"
	"github.com/san-kum/terrasim/internal/scale"
	"github.com/san-kum/terrasim/internal/sim"
)

const (
	fieldCols       = 64
	fieldRows       = 24
	historyCapacity = 600
	tickInterval    = time.Second / 20
)

// Field selects what the monitor shades.
type Field int

const (
	FieldElevation Field = iota
	FieldDepth
	FieldTemperature
	FieldPressure
	FieldWind
	FieldRain
	FieldHumidity
	FieldVorticity
	fieldCount
)

func (f Field) String() string {
	switch f {
	case FieldDepth:
		return "water depth"
	case FieldTemperature:
		return "temperature"
	case FieldPressure:
		return "pressure"
	case FieldWind:
		return "wind"
	case FieldRain:
		return "rain multiplier"
	case FieldHumidity:
		return "humidity"
	case FieldVorticity:
		return "vorticity"
	}
	return "elevation"
}

// Stepper is the part of a simulator the monitor drives.
type Stepper interface {
	Step() (sim.Frame, error)
	Rescale(domainKm float64) error
	Params() scale.Parameters
}

type TickMsg time.Time

// Monitor is a Bubble Tea model that steps a simulator and renders its
// frames. A tick limit of zero runs until quit.
type Monitor struct {
	sim      Stepper
	limit    int64
	running  bool
	field    Field
	theme    int
	frame    sim.Frame
	stepped  bool
	scores   []float64
	massErrs []float64
	err      error
	notice   string
}

func NewMonitor(s Stepper, ticks int) Monitor {
	return Monitor{
		sim:      s,
		limit:    int64(ticks),
		running:  true,
		scores:   make([]float64, 0, historyCapacity),
		massErrs: make([]float64, 0, historyCapacity),
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Monitor) Init() tea.Cmd { return tick() }

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			if !m.running {
				m.step()
			}
		case "f", "tab":
			m.field = (m.field + 1) % fieldCount
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		case "+", "=":
			m.rescale(2)
		case "-", "_":
			m.rescale(0.5)
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Monitor) done() bool {
	return m.err != nil || (m.limit > 0 && m.frame.Tick >= m.limit)
}

func (m *Monitor) step() {
	if m.done() {
		m.running = false
		return
	}
	frame, err := m.sim.Step()
	if err != nil && !errors.Is(err, scale.ErrConservation) {
		m.err = err
		m.running = false
		return
	}
	if err != nil {
		m.notice = err.Error()
	}
	m.frame = frame
	m.stepped = true
	m.scores = appendCapped(m.scores, frame.Report.Score)
	m.massErrs = appendCapped(m.massErrs, frame.Report.MassConservationError)
	if m.done() {
		m.running = false
	}
}

func (m *Monitor) rescale(factor float64) {
	km := m.sim.Params().Scale.DomainKm * factor
	if err := m.sim.Rescale(km); err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = fmt.Sprintf("rescaled to %.0f km", km)
}

// SystemSummary counts lows and highs and names the strongest.
func SystemSummary(systems []atmos.PressureSystem) string {
	if len(systems) == 0 {
		return "none"
	}
	lows := 0
	for _, p := range systems {
		if p.Kind == atmos.Low {
			lows++
		}
	}
	top := systems[0]
	return fmt.Sprintf("%dL %dH, %s %+.0f Pa at (%d,%d)",
		lows, len(systems)-lows, top.Kind, top.Anomaly, top.X, top.Y)
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

// fieldGrid returns the selected field of the latest frame.
func (m Monitor) fieldGrid() grid.Reader[float64] {
	f := m.frame
	switch m.field {
	case FieldDepth:
		return f.Hydro.Depth
	case FieldTemperature:
		return f.Atmos.Temperature
	case FieldPressure:
		return f.Atmos.SeaLevelPressure
	case FieldWind:
		return Speed(f.Atmos.WindU, f.Atmos.WindV)
	case FieldRain:
		return f.RainMultiplier
	case FieldHumidity:
		return f.Humidity
	case FieldVorticity:
		return f.Vorticity
	}
	return f.Elevation
}

func (m Monitor) View() string {
	t := Themes[m.theme]
	p := m.sim.Params()

	var field string
	if m.stepped {
		field = Heatmap(m.fieldGrid(), fieldCols, fieldRows, t)
		if m.field == FieldWind {
			field += "\n" + WindArrows(m.frame.Atmos.WindU, m.frame.Atmos.WindV, fieldCols/2, fieldRows/4)
		} else {
			field += "\n" + LandMask(m.frame.Elevation, fieldCols/2, fieldRows/4)
		}
	} else {
		field = "waiting for first tick\n"
	}
	fieldView := fieldStyle.Render(headerStyle.Render(strings.ToUpper(m.field.String())) + "\n" + field)

	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("TERRASIM %.0f km  %dx%d", p.Scale.DomainKm, p.Scale.Width, p.Scale.Height)) + "\n")
	s.WriteString(m.status() + "\n\n")

	r := m.frame.Report
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Tick", fmt.Sprintf("%d", m.frame.Tick))
	row("Sim time", (time.Duration(m.frame.SimTime) * time.Second).String())
	row("Score", ScoreBar(r.Score, 20, t)+fmt.Sprintf(" %.3f", r.Score))
	row("Mass error", fmt.Sprintf("%.2e", r.MassConservationError))
	row("Max CFL", fmt.Sprintf("%.3f", r.MaxCFL))
	row("Max wind", fmt.Sprintf("%.1f m/s", m.frame.Atmos.MaxWindSpeed()))
	row("Systems", SystemSummary(m.frame.Systems))
	row("Water", fmt.Sprintf("%.3g m³", m.frame.Result.MassAfter))
	row("Erosion", m.frame.Erosion.String())
	row("Realistic", fmt.Sprintf("%.1f%%", 100*r.RealisticFraction))

	if len(m.scores) > 1 {
		s.WriteString(graphStyle.Render(PlotSeries(m.scores, "score", 30, 4)) + "\n")
		s.WriteString(labelStyle.Render("Mass error") + Sparkline(m.massErrs, 30) + "\n")
	}

	if len(r.Warnings) > 0 {
		s.WriteString("\n")
		warn := lipgloss.NewStyle().Foreground(t.Warning)
		for _, w := range r.Warnings {
			s.WriteString(warn.Render("! "+w.String()) + "\n")
		}
	}
	if m.notice != "" {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(t.Muted).Render(m.notice) + "\n")
	}
	if m.err != nil {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(t.Error).Render(m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause N:Step F:Field\n+/-:Scale T:Theme Q:Quit"))
	return lipgloss.JoinHorizontal(lipgloss.Top, fieldView, statsStyle.Render(s.String()))
}

func (m Monitor) status() string {
	switch {
	case m.err != nil:
		return "FAILED"
	case m.running:
		return "RUNNING"
	case m.done():
		return "DONE"
	}
	return "PAUSED"
}
