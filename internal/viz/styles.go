package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	fieldStyle  = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(46)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// ScoreBar renders a quality score in [0, 1] as a coloured bar.
func ScoreBar(score float64, width int, t Theme) string {
	filled := max(0, min(width, int(score*float64(width))))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	c := t.Error
	switch {
	case score >= 0.9:
		c = t.Good
	case score >= 0.6:
		c = t.Warning
	}
	return lipgloss.NewStyle().Foreground(c).Render(bar)
}

// Sparkline compresses values into a single row of block glyphs.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	glyphs := []rune("▁▂▃▄▅▆▇█")

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	start := max(0, len(values)-width)
	var b strings.Builder
	for _, v := range values[start:] {
		idx := int((v - lo) / span * float64(len(glyphs)-1))
		b.WriteRune(glyphs[max(0, min(len(glyphs)-1, idx))])
	}
	return b.String()
}
