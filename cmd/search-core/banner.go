package main

import "github.com/charmbracelet/lipgloss"

// bannerStyle returns the bordered, bold style used for the interactive
// startup banner. Only applied when stdout is a real terminal.
func bannerStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63"))
}
