package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33")). // Blue
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Gray
			MarginLeft(2)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("160")) // Red

	checkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")) // Green

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // Amber
			MarginLeft(2)

	dirStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(22)
)
