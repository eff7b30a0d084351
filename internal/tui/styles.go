package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle         = lipgloss.NewStyle().Bold(true)
	subtitleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	historyBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	hintStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	userLabelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)
