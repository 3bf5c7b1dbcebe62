package board

import "github.com/charmbracelet/lipgloss"

type styles struct {
	light     lipgloss.Style
	dark      lipgloss.Style
	highlight lipgloss.Style
	white     lipgloss.Style
	black     lipgloss.Style
	label     lipgloss.Style
	caption   lipgloss.Style
}

func newStyles() styles {
	return styles{
		light:     lipgloss.NewStyle().Background(lipgloss.Color("180")),
		dark:      lipgloss.NewStyle().Background(lipgloss.Color("94")),
		highlight: lipgloss.NewStyle().Background(lipgloss.Color("143")),
		white:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")),
		black:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("16")),
		label:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		caption:   lipgloss.NewStyle().Faint(true),
	}
}
