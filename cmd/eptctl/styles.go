package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Color palette
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#04B575")
	warningColor = lipgloss.Color("#FFA500")
	errorColor   = lipgloss.Color("#FF4B4B")
	mutedColor   = lipgloss.Color("#666666")
	borderColor  = lipgloss.Color("#383838")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	fullStyle  = lipgloss.NewStyle().Foreground(successColor)
	halfStyle  = lipgloss.NewStyle().Foreground(warningColor)
	lowStyle   = lipgloss.NewStyle().Foreground(errorColor)
	emptyStyle = lipgloss.NewStyle().Foreground(mutedColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	outcomeStyles = map[string]lipgloss.Style{
		"success": lipgloss.NewStyle().Foreground(successColor).Bold(true),
		"aborted": lipgloss.NewStyle().Foreground(warningColor).Bold(true),
		"none":    lipgloss.NewStyle().Foreground(mutedColor),
	}
)

// styled renders s with style unless colors are disabled.
func styled(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}

// boxed frames s unless colors are disabled.
func boxed(s string) string {
	if noColor {
		return s
	}
	return boxStyle.Render(s)
}
