package ui

import "github.com/charmbracelet/lipgloss"

const (
	playSymbol  = "▶" // ▶
	pauseSymbol = "⏸" // ⏸
)

var (
	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	trackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	playingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252"))

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	barStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	progressFilledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39"))

	progressEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)
