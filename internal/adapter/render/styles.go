package render

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	detail   lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	card     lipgloss.Style
	severity map[string]lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		value:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		detail:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(28),
		severity: map[string]lipgloss.Style{
			"success": lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
			"neutral": lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		},
	}
}

func (s styles) tone(severity string) lipgloss.Style {
	if st, ok := s.severity[severity]; ok {
		return st
	}
	return s.severity["neutral"]
}
