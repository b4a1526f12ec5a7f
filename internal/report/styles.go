package report

import (
	catppuccin "github.com/catppuccin/go"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles renders summary elements in a catppuccin flavor.
type Styles struct {
	flavor   catppuccin.Flavor
	renderer *lipgloss.Renderer
}

// NewStyles binds a flavor to renderer. With noColor set every style
// renders plain text.
func NewStyles(themeName string, renderer *lipgloss.Renderer, noColor bool) *Styles {
	if noColor {
		renderer.SetColorProfile(termenv.Ascii)
	}
	return &Styles{flavor: flavorFromName(themeName), renderer: renderer}
}

func flavorFromName(name string) catppuccin.Flavor {
	switch name {
	case "latte":
		return catppuccin.Latte
	case "frappe":
		return catppuccin.Frappe
	case "macchiato":
		return catppuccin.Macchiato
	default:
		return catppuccin.Mocha
	}
}

func (s *Styles) color(c catppuccin.Color) lipgloss.Color {
	return lipgloss.Color(c.Hex)
}

func (s *Styles) TitleStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Bold(true).
		Foreground(s.color(s.flavor.Mauve()))
}

func (s *Styles) HeaderStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Bold(true).
		Foreground(s.color(s.flavor.Teal()))
}

func (s *Styles) MutedStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Overlay0()))
}

func (s *Styles) InfoStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Text()))
}

func (s *Styles) ErrorStyle() lipgloss.Style {
	return s.renderer.NewStyle().
		Foreground(s.color(s.flavor.Red())).
		Bold(true)
}

// badgeWidth fits the longest label, SKIPPED.
const badgeWidth = 7

// BadgeStyle colours a suite status label.
func (s *Styles) BadgeStyle(label string) lipgloss.Style {
	base := s.renderer.NewStyle().Bold(true).Width(badgeWidth)
	switch label {
	case "PASS":
		return base.Foreground(s.color(s.flavor.Green()))
	case "FAIL":
		return base.Foreground(s.color(s.flavor.Red()))
	case "ERROR":
		return base.Foreground(s.color(s.flavor.Peach()))
	default:
		return base.Foreground(s.color(s.flavor.Overlay1()))
	}
}
