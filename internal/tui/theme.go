package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Catppuccin Mocha, the subset the console uses.
const (
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorLavender lipgloss.Color = "#b4befe"

	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay0 lipgloss.Color = "#6c7086"
	colorSurface1 lipgloss.Color = "#45475a"
	colorBase     lipgloss.Color = "#1e1e2e"
)

const (
	colorAccent  = colorMauve
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(colorSubtext0)
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(colorBase).Background(colorAccent)
	statusStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	staleStyle     = lipgloss.NewStyle().Foreground(colorWarning)
	hintStyle      = lipgloss.NewStyle().Foreground(colorOverlay0)
	labelStyle     = lipgloss.NewStyle().Foreground(colorSubtext0).Width(16)
	focusLabel     = labelStyle.Foreground(colorFocus).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(colorSurface1)

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2)
	// dialogs mid-animation are drawn with a muted border
	transitionStyle = dialogStyle.BorderForeground(colorOverlay0)
	panelStyle      = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(colorPeach).
			Padding(0, 1)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorSurface1).
		BorderBottom(true).
		Bold(true).
		Foreground(colorText)
	s.Selected = s.Selected.Foreground(colorBase).Background(colorFocus).Bold(false)
	s.Cell = s.Cell.Foreground(colorText)
	return s
}
