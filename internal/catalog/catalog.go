// Package catalog holds the typed, read-only schema of every parameter
// grub-wiz knows how to edit: sections, defaults, enum choices, edit checks
// and guidance text.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed canned_config.yaml
var embeddedCatalog []byte

// Check keys understood by edit validation. Anything else in a catalog is a
// schema bug.
const (
	CheckRegex = "regex"
	CheckMin   = "min"
	CheckMax   = "max"
)

// SpecialMenuEntries marks the one parameter whose enum set may grow with
// discovered boot menu titles.
const SpecialMenuEntries = "get_menu_entries"

// ErrNotAugmentable is returned by AugmentEnum for parameters that do not
// carry the get_menu_entries special.
var ErrNotAugmentable = errors.New("parameter does not accept discovered entries")

var catalogValidate = validator.New()

// Choice is one enum value and what it means.
type Choice struct {
	Value   string
	Meaning string
}

// Check is one edit constraint, kept in declaration order.
type Check struct {
	Key   string
	Value string
}

// Parameter describes one KEY of the target file.
type Parameter struct {
	Name     string `validate:"required,startswith=GRUB_"`
	Section  string `validate:"required"`
	Default  string
	Guidance string `validate:"required"`
	Choices  []Choice
	Checks   []Check
	Specials []string

	pattern *regexp.Regexp
}

// HasEnums reports whether the parameter can be cycled.
func (p *Parameter) HasEnums() bool { return len(p.Choices) > 0 }

// HasPattern reports whether the parameter declares a free-form regex and can
// therefore be edited by hand.
func (p *Parameter) HasPattern() bool { return p.pattern != nil }

// Pattern returns the raw regex text, or "".
func (p *Parameter) Pattern() string {
	for _, c := range p.Checks {
		if c.Key == CheckRegex {
			return c.Value
		}
	}
	return ""
}

// MatchPattern applies the edit regex anchored at the start of input.
// Parameters without a pattern accept anything.
func (p *Parameter) MatchPattern(input string) bool {
	if p.pattern == nil {
		return true
	}
	return p.pattern.MatchString(input)
}

// ChoiceValues returns enum values in cycle order.
func (p *Parameter) ChoiceValues() []string {
	out := make([]string, len(p.Choices))
	for i, c := range p.Choices {
		out[i] = c.Value
	}
	return out
}

// HasSpecial reports whether the parameter carries the named special marker.
func (p *Parameter) HasSpecial(name string) bool {
	for _, s := range p.Specials {
		if s == name {
			return true
		}
	}
	return false
}

// ShortName drops the GRUB_ prefix for display.
func (p *Parameter) ShortName() string {
	return ShortName(p.Name)
}

// ShortName drops the GRUB_ prefix for display.
func ShortName(name string) string {
	return strings.TrimPrefix(name, "GRUB_")
}

// Section groups parameters for the HOME screen.
type Section struct {
	Name   string
	Params []string
}

// Catalog is built once per process. The only mutation allowed afterwards is
// AugmentEnum on the parameter marked get_menu_entries.
type Catalog struct {
	params   []*Parameter
	byName   map[string]*Parameter
	sections []Section
}

// Overrides let the user config trim or adjust the embedded catalog.
type Overrides struct {
	Delete   []string                 `yaml:"delete"`
	Override map[string]ParamOverride `yaml:"override"`
}

// ParamOverride replaces selected fields of one parameter.
type ParamOverride struct {
	Default  *string `yaml:"default"`
	Guidance *string `yaml:"guidance"`
}

// Default builds the catalog from the embedded schema.
func Default() (*Catalog, error) {
	return Build(embeddedCatalog, Overrides{})
}

// EmbeddedYAML returns a copy of the embedded schema document.
func EmbeddedYAML() []byte {
	return append([]byte(nil), embeddedCatalog...)
}

// Build parses a schema document, applies overrides and validates every entry.
func Build(data []byte, ov Overrides) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode catalog: top level must be a mapping of sections")
	}

	deleted := make(map[string]bool, len(ov.Delete))
	for _, name := range ov.Delete {
		deleted[name] = true
	}

	c := &Catalog{byName: make(map[string]*Parameter)}
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		sectionName := root.Content[i].Value
		body := root.Content[i+1]
		if body.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("section %q: expected mapping", sectionName)
		}
		section := Section{Name: sectionName}
		for j := 0; j+1 < len(body.Content); j += 2 {
			p, err := decodeParameter(sectionName, body.Content[j].Value, body.Content[j+1])
			if err != nil {
				return nil, err
			}
			if deleted[p.Name] {
				continue
			}
			if o, ok := ov.Override[p.Name]; ok {
				if o.Default != nil {
					p.Default = *o.Default
				}
				if o.Guidance != nil {
					p.Guidance = *o.Guidance
				}
			}
			if _, dup := c.byName[p.Name]; dup {
				return nil, fmt.Errorf("parameter %s declared twice", p.Name)
			}
			c.params = append(c.params, p)
			c.byName[p.Name] = p
			section.Params = append(section.Params, p.Name)
		}
		if len(section.Params) > 0 {
			c.sections = append(c.sections, section)
		}
	}
	if len(c.params) == 0 {
		return nil, fmt.Errorf("catalog declares no parameters")
	}
	return c, nil
}

type rawParameter struct {
	Default  string    `yaml:"default"`
	Guidance string    `yaml:"guidance"`
	Enums    yaml.Node `yaml:"enums"`
	Checks   yaml.Node `yaml:"checks"`
	Specials []string  `yaml:"specials"`
}

func decodeParameter(section, name string, node *yaml.Node) (*Parameter, error) {
	var raw rawParameter
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parameter %s: %w", name, err)
	}
	p := &Parameter{
		Name:     name,
		Section:  section,
		Default:  raw.Default,
		Guidance: raw.Guidance,
		Specials: raw.Specials,
	}
	for _, kv := range orderedPairs(&raw.Enums) {
		p.Choices = append(p.Choices, Choice{Value: kv[0], Meaning: kv[1]})
	}
	for _, kv := range orderedPairs(&raw.Checks) {
		p.Checks = append(p.Checks, Check{Key: kv[0], Value: kv[1]})
	}
	if pat := p.Pattern(); pat != "" {
		re, err := regexp.Compile(`^(?:` + pat + `)`)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: bad regex: %w", name, err)
		}
		p.pattern = re
	}
	if err := catalogValidate.Struct(p); err != nil {
		return nil, fmt.Errorf("parameter %s: %w", name, err)
	}
	return p, nil
}

// orderedPairs flattens a mapping node into key/value strings, preserving
// document order. Non-mapping nodes (absent, [] or null) yield nothing.
func orderedPairs(n *yaml.Node) [][2]string {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([][2]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, [2]string{n.Content[i].Value, n.Content[i+1].Value})
	}
	return out
}

// Names returns parameter names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.params))
	for i, p := range c.params {
		out[i] = p.Name
	}
	return out
}

// Get looks a parameter up by full name.
func (c *Catalog) Get(name string) (*Parameter, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// MustGet is Get for names known to come from the catalog itself.
func (c *Catalog) MustGet(name string) *Parameter {
	p, ok := c.byName[name]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown parameter %s", name))
	}
	return p
}

// Has reports whether name is a catalog parameter.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Sections returns the section layout in catalog order.
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.sections))
	for i, s := range c.sections {
		out[i] = Section{Name: s.Name, Params: append([]string(nil), s.Params...)}
	}
	return out
}

// Defaults returns name -> default value for every parameter.
func (c *Catalog) Defaults() map[string]string {
	out := make(map[string]string, len(c.params))
	for _, p := range c.params {
		out[p.Name] = p.Default
	}
	return out
}

// NameWidth is the widest short name, used to align the HOME screen.
func (c *Catalog) NameWidth() int {
	w := 0
	for _, p := range c.params {
		if n := len(p.ShortName()); n > w {
			w = n
		}
	}
	return w
}

// AugmentEnum appends discovered entries to the enum set of a parameter
// marked get_menu_entries. Entries already present are skipped; titles are
// stored double-quoted so they survive being written back verbatim.
func (c *Catalog) AugmentEnum(name string, entries []string) (int, error) {
	p, ok := c.byName[name]
	if !ok {
		return 0, fmt.Errorf("augment %s: unknown parameter", name)
	}
	if !p.HasSpecial(SpecialMenuEntries) {
		return 0, fmt.Errorf("augment %s: %w", name, ErrNotAugmentable)
	}
	seen := make(map[string]bool, len(p.Choices))
	for _, ch := range p.Choices {
		seen[ch.Value] = true
	}
	added := 0
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		v := strconv.Quote(e)
		if seen[v] {
			continue
		}
		seen[v] = true
		p.Choices = append(p.Choices, Choice{Value: v, Meaning: "discovered boot menu entry"})
		added++
	}
	return added, nil
}
