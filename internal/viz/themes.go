package viz

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a colour scheme for field shading and the report panel.
// Fields shade from Low through Mid to High.
type Theme struct {
	Name    string
	Low     lipgloss.Color
	Mid     lipgloss.Color
	High    lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Good    lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var (
	ThemeTerrain = Theme{
		Name:    "terrain",
		Low:     lipgloss.Color("#1b4f8a"),
		Mid:     lipgloss.Color("#5fa55a"),
		High:    lipgloss.Color("#f2e8cf"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888899"),
		Good:    lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffcc00"),
		Error:   lipgloss.Color("#ff4444"),
	}

	ThemeThermal = Theme{
		Name:    "thermal",
		Low:     lipgloss.Color("#2c7bb6"),
		Mid:     lipgloss.Color("#ffffbf"),
		High:    lipgloss.Color("#d7191c"),
		Text:    lipgloss.Color("#fff5f5"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Good:    lipgloss.Color("#5fd068"),
		Warning: lipgloss.Color("#ffc048"),
		Error:   lipgloss.Color("#ff4757"),
	}

	ThemeMono = Theme{
		Name:    "mono",
		Low:     lipgloss.Color("#222222"),
		Mid:     lipgloss.Color("#888888"),
		High:    lipgloss.Color("#ffffff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666666"),
		Good:    lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff0000"),
	}

	Themes = []Theme{ThemeTerrain, ThemeThermal, ThemeMono}
)

// GetTheme returns a theme by name, or the terrain theme.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeTerrain
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// Shade interpolates the theme ramp at v in [0, 1].
func (t Theme) Shade(v float64) lipgloss.Color {
	v = max(0, min(1, v))
	if v < 0.5 {
		return mix(t.Low, t.Mid, v*2)
	}
	return mix(t.Mid, t.High, (v-0.5)*2)
}

func mix(a, b lipgloss.Color, t float64) lipgloss.Color {
	ar, ag, ab := parseHex(string(a))
	br, bg, bb := parseHex(string(b))
	lerp := func(x, y int) int { return x + int(t*float64(y-x)) }
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", lerp(ar, br), lerp(ag, bg), lerp(ab, bb)))
}

func parseHex(hex string) (r, g, b int) {
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return 255, 255, 255
	}
	return r, g, b
}
