// Package session holds the current and original value of every catalog
// parameter during one interactive session, and the operations that mutate
// the current values.
package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oakwood-commons/grub-wiz/internal/catalog"
)

// InputError is returned by Edit and ExpertEdit when the user's input is
// rejected. The caller reprompts with Hint.
type InputError struct {
	Param string
	Input string
	Hint  string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: invalid value %q: %s", catalog.ShortName(e.Param), e.Input, e.Hint)
}

// Change is one entry of Diff.
type Change struct {
	Name string
	Old  string
	New  string
}

// State is the value store of a session. Keys of current and original are
// always the same set.
type State struct {
	cat      *catalog.Catalog
	names    []string
	current  map[string]string
	original map[string]string
}

// New builds a state from the values read off disk. Parameters the file does
// not set take the catalog default as both original and current value, so
// they never show up in Diff until edited.
func New(cat *catalog.Catalog, onDisk map[string]string) *State {
	s := &State{
		cat:      cat,
		names:    cat.Names(),
		current:  make(map[string]string),
		original: make(map[string]string),
	}
	for _, name := range s.names {
		v, ok := onDisk[name]
		if !ok {
			v = cat.MustGet(name).Default
		}
		s.current[name] = v
		s.original[name] = v
	}
	return s
}

// Names returns parameter names in catalog order.
func (s *State) Names() []string { return append([]string(nil), s.names...) }

// Get returns the current value.
func (s *State) Get(name string) string { return s.current[name] }

// Original returns the on-disk value.
func (s *State) Original(name string) string { return s.original[name] }

// Set assigns a raw value without any checks.
func (s *State) Set(name, value string) {
	s.mustKnow(name)
	s.current[name] = value
}

// Values returns a copy of the current values.
func (s *State) Values() map[string]string {
	out := make(map[string]string, len(s.current))
	for k, v := range s.current {
		out[k] = v
	}
	return out
}

// Changed reports whether the current value differs from the original.
func (s *State) Changed(name string) bool {
	return s.current[name] != s.original[name]
}

// ChangeCount is the number of changed parameters.
func (s *State) ChangeCount() int {
	n := 0
	for _, name := range s.names {
		if s.Changed(name) {
			n++
		}
	}
	return n
}

// Diff lists changed parameters in catalog order.
func (s *State) Diff() []Change {
	var out []Change
	for _, name := range s.names {
		if s.Changed(name) {
			out = append(out, Change{Name: name, Old: s.original[name], New: s.current[name]})
		}
	}
	return out
}

// Undo restores the original value.
func (s *State) Undo(name string) {
	s.mustKnow(name)
	s.current[name] = s.original[name]
}

// CycleNext moves to the next enum choice. A value not among the choices is
// treated as sitting before the first one.
func (s *State) CycleNext(name string) string { return s.cycle(name, 1) }

// CyclePrev moves to the previous enum choice. A value not among the choices
// is treated as sitting before the first one, so this lands on the last.
func (s *State) CyclePrev(name string) string { return s.cycle(name, -1) }

func (s *State) cycle(name string, step int) string {
	p := s.cat.MustGet(name)
	values := p.ChoiceValues()
	if len(values) == 0 {
		return s.current[name]
	}
	idx := -1
	for i, v := range values {
		if v == s.current[name] {
			idx = i
			break
		}
	}
	n := len(values)
	switch {
	case idx < 0 && step < 0:
		idx = n - 1
	default:
		idx = ((idx+step)%n + n) % n
	}
	s.current[name] = values[idx]
	return values[idx]
}

// Edit assigns input after applying the parameter's checks in declaration
// order. An unknown check key panics: it means the catalog is broken.
func (s *State) Edit(name, input string) error {
	p := s.cat.MustGet(name)
	for _, c := range p.Checks {
		if hint := applyCheck(p, c, input); hint != "" {
			return &InputError{Param: name, Input: input, Hint: hint}
		}
	}
	s.current[name] = input
	return nil
}

func applyCheck(p *catalog.Parameter, c catalog.Check, input string) string {
	switch c.Key {
	case catalog.CheckRegex:
		if !p.MatchPattern(input) {
			return "must match: " + c.Value
		}
	case catalog.CheckMin, catalog.CheckMax:
		limit, err := strconv.Atoi(c.Value)
		if err != nil {
			panic(fmt.Sprintf("session: %s check %s=%q is not an int", p.Name, c.Key, c.Value))
		}
		v, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil {
			return "must be int"
		}
		if c.Key == catalog.CheckMin && v < limit {
			return fmt.Sprintf("must be >= %d", limit)
		}
		if c.Key == catalog.CheckMax && v > limit {
			return fmt.Sprintf("must be <= %d", limit)
		}
	default:
		panic(fmt.Sprintf("session: %s has unknown check key %q", p.Name, c.Key))
	}
	return ""
}

// ExpertEdit assigns input without the catalog checks, subject only to
// ValidShellToken.
func (s *State) ExpertEdit(name, input string) error {
	s.mustKnow(name)
	if !ValidShellToken(input) {
		return &InputError{Param: name, Input: input,
			Hint: "quote the whole value or avoid spaces and ;&|<>(){}[]$`\\!"}
	}
	s.current[name] = input
	return nil
}

const shellMeta = ";&|<>(){}[]$`\\!"

// ValidShellToken reports whether v can sit to the right of KEY= without
// changing the meaning of the file: empty, fully quoted, or a bare word free
// of whitespace and shell metacharacters.
func ValidShellToken(v string) bool {
	if v == "" {
		return true
	}
	if len(v) >= 2 {
		switch q := v[0]; {
		case q == '\'' && v[len(v)-1] == '\'':
			return !strings.ContainsRune(v[1:len(v)-1], '\'')
		case q == '"' && v[len(v)-1] == '"':
			return balancedDouble(v[1 : len(v)-1])
		}
	}
	return !strings.ContainsAny(v, " \t\n\r'\""+shellMeta)
}

// balancedDouble reports whether inner has no unescaped double quote, no
// command substitution and does not end in a backslash that would escape the
// closing quote.
func balancedDouble(inner string) bool {
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '`':
			return false
		case '$':
			if i+1 < len(inner) && inner[i+1] == '(' {
				return false
			}
		case '\\':
			if i == len(inner)-1 {
				return false
			}
			i++
		case '"':
			return false
		}
	}
	return true
}

func (s *State) mustKnow(name string) {
	if _, ok := s.current[name]; !ok {
		panic(fmt.Sprintf("session: unknown parameter %s", name))
	}
}
