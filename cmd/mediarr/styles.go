package main

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	accentColor = lipgloss.Color("#E5A00D")
	dimGray     = lipgloss.Color("#6B7280")
	green       = lipgloss.Color("#10B981")
	red         = lipgloss.Color("#EF4444")
)

// Text styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(dimGray)
	accentStyle  = lipgloss.NewStyle().Foreground(accentColor)
	errorStyle   = lipgloss.NewStyle().Foreground(red)
	successStyle = lipgloss.NewStyle().Foreground(green)
)

func success(msg string) string {
	return successStyle.Render("✓") + " " + msg
}

func failure(msg string) string {
	return errorStyle.Render("✗") + " " + msg
}
