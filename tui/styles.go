package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("205")
	muted  = lipgloss.Color("241")

	DocStyle = lipgloss.NewStyle().Margin(1, 2)

	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)

	ActivePaneStyle = PaneStyle.
			BorderForeground(accent)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	HeadingStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	LinkStyle    = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("39"))
	CodeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	QuoteStyle   = lipgloss.NewStyle().Foreground(muted)
	BoldStyle    = lipgloss.NewStyle().Bold(true)
	ItalicStyle  = lipgloss.NewStyle().Italic(true)
	StrikeStyle  = lipgloss.NewStyle().Strikethrough(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(muted)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	SpinnerStyle = lipgloss.NewStyle().Foreground(accent)
)
