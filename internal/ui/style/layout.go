package style

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var palette = DefaultPalette()

// Header styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Background(palette.Background).
			Foreground(palette.Primary).
			Bold(true).
			Padding(0, 2).
			Margin(0, 0, 1, 0)

	SubHeaderStyle = lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true)
)

// Panel styles
var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted).
			Padding(0, 1)

	ActivePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 1)
)

// Text styles
var (
	MutedStyle   = lipgloss.NewStyle().Foreground(palette.TextMuted)
	ErrorStyle   = lipgloss.NewStyle().Foreground(palette.Error).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(palette.Warning).Bold(true)
	InfoStyle    = lipgloss.NewStyle().Foreground(palette.Info)
	SuccessStyle = lipgloss.NewStyle().Foreground(palette.Success).Bold(true)
)

// TableStyles returns bubbles/table styles in the palette.
func TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(palette.TextMuted).
		BorderBottom(true).
		Foreground(palette.Primary).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(palette.Background).
		Background(palette.Primary).
		Bold(false)
	return s
}

// StatusStyle colors a position status label.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "OPEN":
		return lipgloss.NewStyle().Foreground(palette.Open)
	case "PARTIALLY_EXITED":
		return lipgloss.NewStyle().Foreground(palette.PartiallyExited)
	default:
		return lipgloss.NewStyle().Foreground(palette.Closed)
	}
}
