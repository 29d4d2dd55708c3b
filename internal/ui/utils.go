package ui

import (
	"regexp"
	"strings"

	runewidth "github.com/mattn/go-runewidth"
)

var ansiRegexp = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiRegexp.ReplaceAllString(s, "")
}

// repeatToWidth repeats the fill string until reaching the requested display width.
func repeatToWidth(fill string, width int) string {
	if width <= 0 {
		return ""
	}
	if strings.TrimSpace(fill) == "" {
		fill = " "
	}
	var b strings.Builder
	for runewidth.StringWidth(b.String()) < width {
		b.WriteString(fill)
	}
	result := b.String()
	if w := runewidth.StringWidth(result); w > width {
		result = runewidth.Truncate(result, width, "")
	}
	return result
}

// wrapIndent wraps one line of plain text to width display cells. Leading
// blanks of the first line are kept; later lines start with indent, which
// counts against the width. A blank line yields nothing.
func wrapIndent(s string, width int, indent string) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	lead := s[:len(s)-len(strings.TrimLeft(s, " \t"))]
	if width <= runewidth.StringWidth(indent)+1 {
		return []string{strings.TrimRight(s, " \t")}
	}
	var out []string
	current := lead + words[0]
	for _, w := range words[1:] {
		if runewidth.StringWidth(current)+1+runewidth.StringWidth(w) <= width {
			current += " " + w
			continue
		}
		out = append(out, current)
		current = indent + w
	}
	return append(out, current)
}

// ansiVisibleWidth calculates the visible width of a string with ANSI escape sequences.
func ansiVisibleWidth(s string) int {
	return runewidth.StringWidth(stripANSI(s))
}

// padANSIToWidth pads s with spaces to targetWidth visible cells.
func padANSIToWidth(s string, targetWidth int) string {
	visible := ansiVisibleWidth(s)
	if visible >= targetWidth {
		return s
	}
	return s + strings.Repeat(" ", targetWidth-visible)
}

// truncate clips plain text to width cells with a trailing ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
