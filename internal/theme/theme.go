// Package theme maps the light and dark themes to terminal styles.
package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// Name identifies a theme.
type Name string

const (
	Light Name = "light"
	Dark  Name = "dark"
)

// Default is the theme of a new profile.
const Default = Light

// Parse validates a theme name. Empty yields Default.
func Parse(s string) (Name, error) {
	switch Name(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return Default, nil
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	default:
		return "", fmt.Errorf("unknown theme %q", s)
	}
}

// Palette is the set of hex colors of a theme.
type Palette struct {
	Primary   string
	Secondary string
	Accent    string
	Error     string
	Muted     string
	Text      string
	Border    string
}

var palettes = map[Name]Palette{
	Light: {
		Primary:   "#4A2F6C",
		Secondary: "#065F46",
		Accent:    "#0070F3",
		Error:     "#DC2626",
		Muted:     "#6B7280",
		Text:      "#2F1B41",
		Border:    "#E5E7EB",
	},
	Dark: {
		Primary:   "#D8A6FF",
		Secondary: "#7EE2B8",
		Accent:    "#79C0FF",
		Error:     "#FF6B6B",
		Muted:     "#9CA3AF",
		Text:      "#E5E7EB",
		Border:    "#374151",
	},
}

// PaletteFor returns the palette of a theme; unknown names get Default.
func PaletteFor(n Name) Palette {
	if p, ok := palettes[n]; ok {
		return p
	}
	return palettes[Default]
}

// Styles are the lipgloss styles of a theme.
type Styles struct {
	Title     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Label     lipgloss.Style
	Panel     lipgloss.Style
}

// NewStyles builds the styles of a theme.
func NewStyles(n Name) Styles {
	p := PaletteFor(n)
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Primary)).
			Bold(true),
		User: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Accent)).
			Bold(true),
		Assistant: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Primary)).
			Bold(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Error)).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Secondary)).
			Bold(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(p.Border)).
			Padding(0, 1),
	}
}
