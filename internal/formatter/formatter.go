// Package formatter renders the parameter catalog for `grub-wiz catalog`.
package formatter

import (
	"fmt"
	"strings"

	"github.com/oakwood-commons/grub-wiz/internal/catalog"
)

// Format names an output of the catalog command.
type Format string

const (
	FormatTree     Format = "tree"
	FormatYAML     Format = "yaml"
	FormatTOML     Format = "toml"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// Formats lists every format in help order.
var Formats = []Format{FormatTree, FormatYAML, FormatTOML, FormatMarkdown, FormatHTML}

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", s, FormatList())
}

// FormatList joins the format names with "|".
func FormatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, "|")
}

// Choice is one enum value and what it means.
type Choice struct {
	Value   string `yaml:"value" toml:"value"`
	Meaning string `yaml:"meaning" toml:"meaning"`
}

// Check is one edit constraint.
type Check struct {
	Key   string `yaml:"key" toml:"key"`
	Value string `yaml:"value" toml:"value"`
}

// Entry is one parameter as published.
type Entry struct {
	Name     string   `yaml:"name" toml:"name"`
	Default  string   `yaml:"default" toml:"default"`
	Choices  []Choice `yaml:"choices,omitempty" toml:"choices,omitempty"`
	Checks   []Check  `yaml:"checks,omitempty" toml:"checks,omitempty"`
	Guidance string   `yaml:"guidance" toml:"guidance"`
}

// Section groups entries as the HOME screen does.
type Section struct {
	Name   string  `yaml:"name" toml:"name"`
	Params []Entry `yaml:"params" toml:"params"`
}

// Document is the whole catalog in display order.
type Document struct {
	Sections []Section `yaml:"sections" toml:"sections"`
}

// FromCatalog snapshots cat into a Document.
func FromCatalog(cat *catalog.Catalog) Document {
	var doc Document
	for _, sec := range cat.Sections() {
		out := Section{Name: sec.Name}
		for _, name := range sec.Params {
			p := cat.MustGet(name)
			e := Entry{Name: p.Name, Default: p.Default, Guidance: p.Guidance}
			for _, c := range p.Choices {
				e.Choices = append(e.Choices, Choice{Value: c.Value, Meaning: c.Meaning})
			}
			for _, c := range p.Checks {
				e.Checks = append(e.Checks, Check{Key: c.Key, Value: c.Value})
			}
			out.Params = append(out.Params, e)
		}
		doc.Sections = append(doc.Sections, out)
	}
	return doc
}

// Render writes doc in format f.
func Render(doc Document, f Format) (string, error) {
	switch f {
	case FormatTree:
		return FormatAsTree(doc), nil
	case FormatYAML:
		return FormatAsYAML(doc)
	case FormatTOML:
		return FormatAsTOML(doc)
	case FormatMarkdown:
		return FormatAsMarkdown(doc), nil
	case FormatHTML:
		return FormatAsHTML(doc), nil
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", f, FormatList())
}
