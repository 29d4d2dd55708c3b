package ui

import (
	"fmt"
	"strings"

	runewidth "github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/grub-wiz/internal/catalog"
)

// homeRow is one HOME row: a blank spacer, a section title or a parameter.
type homeRow struct {
	section string
	name    string
}

func (r homeRow) selectable() bool { return r.name != "" }

// homeRows lays out the catalog by section. Hidden parameters are left out
// unless showHidden; sections left empty are dropped.
func (m *Model) homeRows() []homeRow {
	var rows []homeRow
	for _, sec := range m.w.Catalog.Sections() {
		var params []homeRow
		for _, name := range sec.Params {
			if !m.showHidden && m.w.Hidden.IsHiddenParam(name) {
				continue
			}
			params = append(params, homeRow{name: name})
		}
		if len(params) == 0 {
			continue
		}
		if len(rows) > 0 {
			rows = append(rows, homeRow{section: " "})
		}
		rows = append(rows, homeRow{section: sec.Name})
		rows = append(rows, params...)
	}
	return rows
}

// paramLine renders "  SHORT ......  value" with the dots sized so values
// line up across the catalog.
func (m *Model) paramLine(name, value string) string {
	short := catalog.ShortName(name)
	dots := strings.Repeat(".", m.w.Catalog.NameWidth()-runewidth.StringWidth(short)+8)
	return fmt.Sprintf("  %s %s  %s", short, dots, value)
}

// valueColumn is where paramLine starts the value.
func (m *Model) valueColumn() int {
	return 2 + m.w.Catalog.NameWidth() + 8 + 3
}

const guideLead = "    "

// guidance expands the guidance of p for the HOME panel. A line holding
// only %ENUMS% lists the choices, starring the current one.
func guidance(p *catalog.Parameter, value string, width int) []string {
	wid := width - len(guideLead)
	var out []string
	for _, line := range strings.Split(p.Guidance, "\n") {
		if strings.TrimSpace(line) == "%ENUMS%" {
			out = append(out, guideLead+": Cycle values with [c]:")
			for _, ch := range p.Choices {
				star := "- "
				if ch.Value == value {
					star = "* "
				}
				for _, w := range wrapIndent(" "+star+ch.Value+": "+ch.Meaning, wid, "     ") {
					out = append(out, guideLead+w)
				}
			}
			continue
		}
		for _, w := range wrapIndent(line, wid, "     ") {
			out = append(out, guideLead+w)
		}
	}
	return out
}

// guidedBlock is the selected parameter line plus its guidance, cut to fit
// viewSize lines with a note saying how much was cut.
func guidedBlock(paramLine string, lines []string, viewSize int) []string {
	block := append([]string{paramLine}, lines...)
	if viewSize > 1 && len(block) > viewSize {
		hidden := 1 + len(block) - viewSize
		block = append(block[:viewSize-1], fmt.Sprintf("%s... beware: %d HIDDEN lines ...", guideLead, hidden))
	}
	return block
}

func (m *Model) homeHeader(name string) string {
	var b strings.Builder
	if name != "" {
		p := m.w.Catalog.MustGet(name)
		if p.HasEnums() {
			b.WriteString(" [c]ycle")
		}
		if p.HasPattern() {
			b.WriteString(" [e]dit")
		}
		if m.opts.Expert {
			b.WriteString(" [E]xpert")
		}
		if m.w.State.Changed(name) {
			b.WriteString(" [u]ndo")
		}
	}
	guide := "uide"
	if m.guide {
		guide = "UIDE"
	}
	fmt.Fprintf(&b, " [g]%s [w]rite [R]estore ?:help ESC:back [q]uit", guide)
	if n := m.w.State.ChangeCount(); n > 0 {
		fmt.Fprintf(&b, "   #chg=%d", n)
	}
	return b.String()
}

// homeBody renders the rows. It returns the lines and the index and length
// of the selected block so the caller can keep it in view.
func (m *Model) homeBody(rows []homeRow, cursor, viewSize int) (lines []string, blockLen int) {
	for i, r := range rows {
		switch {
		case r.section == " ":
			lines = append(lines, "")
			continue
		case r.section != "":
			lines = append(lines, m.st.Section.Render("["+r.section+"]"))
			continue
		}
		value := m.w.State.Get(r.name)
		line := m.paramLine(r.name, value)
		hidden := m.w.Hidden.IsHiddenParam(r.name)
		if hidden {
			line += "  (hidden)"
		}
		if i != cursor {
			lines = append(lines, m.styleParam(line, r.name, hidden))
			continue
		}
		selected := m.st.Selected.Render(padANSIToWidth(truncate(line, m.width), m.width))
		if !m.guide {
			lines = append(lines, selected)
			blockLen = 1
			continue
		}
		block := guidedBlock(selected, guidance(m.w.Catalog.MustGet(r.name), value, m.width), viewSize)
		lines = append(lines, block...)
		blockLen = len(block)
	}
	return lines, blockLen
}

func (m *Model) styleParam(line, name string, hidden bool) string {
	line = truncate(line, m.width)
	switch {
	case hidden:
		return m.st.Dim.Render(line)
	case m.w.State.Changed(name):
		return m.st.Changed.Render(line)
	}
	return line
}
