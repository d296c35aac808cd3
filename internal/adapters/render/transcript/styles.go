package transcript

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	answer     lipgloss.Style
	stderr     lipgloss.Style
	thinking   lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	tokens     lipgloss.Style
	failed     lipgloss.Style
	entry      lipgloss.Style
	modified   lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		answer:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		stderr:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		thinking:   lipgloss.NewStyle().Faint(true),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		tokens:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		failed:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		entry:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		modified:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
