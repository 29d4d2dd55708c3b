// Package review builds the rows of the REVIEW screen: the parameters that
// need a look before writing, their old values and their warnings.
package review

import (
	"regexp"

	"github.com/oakwood-commons/grub-wiz/internal/catalog"
	"github.com/oakwood-commons/grub-wiz/internal/session"
	"github.com/oakwood-commons/grub-wiz/internal/validate"
)

// Action is a bit set of what the user may do on a row.
type Action uint8

const (
	Cycle Action = 1 << iota
	Edit
	Undo
	Hide
)

// Has reports whether a includes b.
func (a Action) Has(b Action) bool { return a&b != 0 }

// Row is one line of the REVIEW body. The set of implementations is closed.
type Row interface {
	// Selectable reports whether the cursor may rest on the row.
	Selectable() bool
	// Actions lists the row's affordances.
	Actions() Action
	row()
}

// ParamRow shows a parameter and its current value.
type ParamRow struct {
	Name    string
	Value   string
	actions Action
}

// OldValueRow shows the on-disk value under a changed parameter.
type OldValueRow struct {
	Name string
	Old  string
}

// WarningRow shows one warning of the parameter above it.
type WarningRow struct {
	Name     string
	Key      string
	Severity int
	Message  string
	Hidden   bool
}

// SeparatorRow divides parameter groups.
type SeparatorRow struct{}

func (ParamRow) Selectable() bool { return true }
func (OldValueRow) Selectable() bool { return false }
func (WarningRow) Selectable() bool { return true }
func (SeparatorRow) Selectable() bool { return false }

func (r ParamRow) Actions() Action { return r.actions }
func (OldValueRow) Actions() Action { return 0 }
func (WarningRow) Actions() Action { return Hide }
func (SeparatorRow) Actions() Action { return 0 }

func (ParamRow) row()     {}
func (OldValueRow) row()  {}
func (WarningRow) row()   {}
func (SeparatorRow) row() {}

// Visibility is the part of the visibility store the compiler reads.
type Visibility interface {
	IsHiddenWarn(key string) bool
}

// Compiler keeps the must-review list for the duration of one review
// session, so rows do not vanish when a change is undone mid-review.
type Compiler struct {
	cat        *catalog.Catalog
	mustReview []string
}

// New returns a compiler with no active review session.
func New(cat *catalog.Catalog) *Compiler {
	return &Compiler{cat: cat}
}

// Active reports whether a review session has started.
func (c *Compiler) Active() bool { return c.mustReview != nil }

// Reset ends the review session; the next Compile rebuilds the list.
func (c *Compiler) Reset() { c.mustReview = nil }

// MustReview returns the fixed parameter list of the current session.
func (c *Compiler) MustReview() []string { return append([]string(nil), c.mustReview...) }

var nameToken = regexp.MustCompile(`[A-Z][A-Z0-9_]*[A-Z0-9]`)

// references finds catalog parameters named in msg, either in full or
// without the GRUB_ prefix, bracketed or not.
func (c *Compiler) references(msg string) []string {
	var out []string
	for _, tok := range nameToken.FindAllString(msg, -1) {
		switch {
		case c.cat.Has(tok):
			out = append(out, tok)
		case c.cat.Has("GRUB_" + tok):
			out = append(out, "GRUB_"+tok)
		}
	}
	return out
}

func (c *Compiler) build(st *session.State, ws validate.Warnings) {
	include := map[string]bool{}
	for _, ch := range st.Diff() {
		include[ch.Name] = true
	}
	// One hop only: names found in warnings of referenced parameters are
	// not followed.
	direct := make([]string, 0, len(include))
	for name := range include {
		direct = append(direct, name)
	}
	for _, name := range direct {
		for _, w := range ws[name] {
			for _, ref := range c.references(w.Message) {
				include[ref] = true
			}
		}
	}
	c.mustReview = make([]string, 0, len(include))
	for _, name := range c.cat.Names() {
		if include[name] {
			c.mustReview = append(c.mustReview, name)
		}
	}
}

// Compile returns the rows for the current state. The first call of a
// review session fixes the must-review list.
func (c *Compiler) Compile(st *session.State, ws validate.Warnings, vis Visibility, showHidden bool) []Row {
	if !c.Active() {
		c.build(st, ws)
	}
	var rows []Row
	for i, name := range c.mustReview {
		if i > 0 {
			rows = append(rows, SeparatorRow{})
		}
		p := c.cat.MustGet(name)
		var acts Action
		if p.HasEnums() {
			acts |= Cycle
		}
		if p.HasPattern() {
			acts |= Edit
		}
		if st.Changed(name) {
			acts |= Undo
		}
		rows = append(rows, ParamRow{Name: name, Value: st.Get(name), actions: acts})
		if st.Changed(name) {
			rows = append(rows, OldValueRow{Name: name, Old: st.Original(name)})
		}
		for _, w := range ws[name] {
			hidden := vis != nil && vis.IsHiddenWarn(w.Key())
			if hidden && !showHidden {
				continue
			}
			rows = append(rows, WarningRow{Name: name, Key: w.Key(), Severity: w.Severity, Message: w.Message, Hidden: hidden})
		}
	}
	return rows
}
