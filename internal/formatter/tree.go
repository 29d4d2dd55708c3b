package formatter

import (
	"strings"

	"github.com/xlab/treeprint"

	"github.com/oakwood-commons/grub-wiz/internal/catalog"
)

// FormatAsTree draws sections as branches and parameters as leaves labeled
// NAME=default, with their choices beneath.
func FormatAsTree(doc Document) string {
	tree := treeprint.New()
	for _, sec := range doc.Sections {
		branch := tree.AddBranch(sec.Name)
		for _, e := range sec.Params {
			label := e.Name + "=" + e.Default
			if len(e.Choices) == 0 {
				if pat := patternOf(e); pat != "" {
					branch.AddMetaNode("pattern "+pat, label)
				} else {
					branch.AddNode(label)
				}
				continue
			}
			leaf := branch.AddBranch(label)
			for _, c := range e.Choices {
				leaf.AddNode(c.Value + ": " + firstLine(c.Meaning))
			}
		}
	}
	return tree.String()
}

func patternOf(e Entry) string {
	for _, c := range e.Checks {
		if c.Key == catalog.CheckRegex {
			return c.Value
		}
	}
	return ""
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
