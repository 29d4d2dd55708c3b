package ui

import (
	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/grub-wiz/internal/wiz"
)

// Styles are the lipgloss styles of every screen.
type Styles struct {
	Header   lipgloss.Style
	Section  lipgloss.Style
	Selected lipgloss.Style
	Changed  lipgloss.Style
	Dim      lipgloss.Style
	Warn     lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Plain    lipgloss.Style
}

// NewStyles builds styles from a theme. With noColor every style only keeps
// its weight and reverse attributes.
func NewStyles(c wiz.ThemeColors, noColor bool) Styles {
	fg := func(s lipgloss.Style, color string) lipgloss.Style {
		if noColor || color == "" {
			return s
		}
		return s.Foreground(lipgloss.Color(color))
	}
	s := Styles{
		Header:   fg(lipgloss.NewStyle().Bold(true), c.Header),
		Section:  fg(lipgloss.NewStyle().Bold(true), c.Section),
		Selected: fg(lipgloss.NewStyle().Reverse(true), c.Selected),
		Changed:  fg(lipgloss.NewStyle(), c.Changed),
		Dim:      fg(lipgloss.NewStyle().Faint(true), c.Dim),
		Warn:     fg(lipgloss.NewStyle(), c.Warn),
		Status:   fg(lipgloss.NewStyle(), c.Status),
		Error:    fg(lipgloss.NewStyle().Bold(true), c.Warn),
		Plain:    lipgloss.NewStyle(),
	}
	if noColor {
		s.Dim = lipgloss.NewStyle()
	}
	return s
}
