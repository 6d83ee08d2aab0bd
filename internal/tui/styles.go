package tui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Title  lipgloss.Style
	Card   lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Blank  lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
}

// NewStyles picks the palette matching the user's dark mode preference.
func NewStyles(dark bool) Styles {
	fg, muted, accent, border := lipgloss.Color("#101F38"), lipgloss.Color("#6b7280"), lipgloss.Color("#2563eb"), lipgloss.Color("#dce0e5")
	if dark {
		fg, muted, accent, border = lipgloss.Color("#f2f2f2"), lipgloss.Color("#9ca3af"), lipgloss.Color("#8BC34A"), lipgloss.Color("#2a3850")
	}
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(accent),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Foreground(fg).
			Padding(1, 3).
			Width(60),
		Label:  lipgloss.NewStyle().Foreground(muted),
		Value:  lipgloss.NewStyle().Foreground(fg),
		Blank:  lipgloss.NewStyle().Foreground(muted).Italic(true),
		Status: lipgloss.NewStyle().Foreground(muted),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")),
	}
}
