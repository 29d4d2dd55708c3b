package ui

import (
	"fmt"
	"strings"

	"github.com/oakwood-commons/grub-wiz/internal/review"
	"github.com/oakwood-commons/grub-wiz/internal/validate"
)

func (m *Model) reviewHeader(row review.Row) string {
	var b strings.Builder
	if row != nil {
		acts := row.Actions()
		if acts.Has(review.Cycle) {
			b.WriteString(" [c]ycle")
		}
		if acts.Has(review.Edit) {
			b.WriteString(" [e]dit")
		}
		if _, ok := row.(review.ParamRow); ok && m.opts.Expert {
			b.WriteString(" [E]xpert")
		}
		if acts.Has(review.Undo) {
			b.WriteString(" [u]ndo")
		}
		if acts.Has(review.Hide) {
			if w, ok := row.(review.WarningRow); ok && w.Hidden {
				b.WriteString(" [x]unhide")
			} else {
				b.WriteString(" [x]hide")
			}
		}
	}
	shown := "s"
	if m.showHidden {
		shown = "S"
	}
	fmt.Fprintf(&b, " [%s]how-hidden [w]rite ?:help ESC:back", shown)
	if n := m.w.State.ChangeCount(); n > 0 {
		fmt.Fprintf(&b, "   #chg=%d", n)
	}
	return b.String()
}

func (m *Model) reviewLine(row review.Row) string {
	switch r := row.(type) {
	case review.ParamRow:
		return m.paramLine(r.Name, r.Value)
	case review.OldValueRow:
		return strings.Repeat(" ", max(m.valueColumn()-5, 0)) + "was: " + r.Old
	case review.WarningRow:
		line := fmt.Sprintf("%s%4s Issue: %s", guideLead, validate.Stars(r.Severity), r.Message)
		if r.Hidden {
			line += "  (hidden)"
		}
		return line
	}
	return ""
}

func (m *Model) reviewBody(rows []review.Row, cursor int) []string {
	if len(rows) == 0 {
		return []string{m.st.Dim.Render("  nothing to review")}
	}
	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		line := truncate(m.reviewLine(row), m.width)
		switch r := row.(type) {
		case review.SeparatorRow:
			line = m.st.Dim.Render(repeatToWidth("─", min(m.width, 40)))
		case review.OldValueRow:
			line = m.st.Dim.Render(line)
		case review.WarningRow:
			if i != cursor {
				if r.Hidden {
					line = m.st.Dim.Render(line)
				} else {
					line = m.st.Warn.Render(line)
				}
			}
		case review.ParamRow:
			if i != cursor && m.w.State.Changed(r.Name) {
				line = m.st.Changed.Render(line)
			}
		}
		if i == cursor && row.Selectable() {
			line = m.st.Selected.Render(padANSIToWidth(line, m.width))
		}
		lines = append(lines, line)
	}
	return lines
}
