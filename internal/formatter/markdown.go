package formatter

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// FormatAsMarkdown writes one heading per section and a subsection per
// parameter with its default, choices table, checks and guidance.
func FormatAsMarkdown(doc Document) string {
	var b strings.Builder
	b.WriteString("# GRUB parameters\n\n")
	for _, sec := range doc.Sections {
		fmt.Fprintf(&b, "## %s\n\n", sec.Name)
		for _, e := range sec.Params {
			fmt.Fprintf(&b, "### %s\n\n", e.Name)
			fmt.Fprintf(&b, "Default: `%s`\n\n", e.Default)
			if len(e.Choices) > 0 {
				b.WriteString("| Value | Meaning |\n|---|---|\n")
				for _, c := range e.Choices {
					fmt.Fprintf(&b, "| `%s` | %s |\n", c.Value, tableCell(c.Meaning))
				}
				b.WriteString("\n")
			}
			for _, c := range e.Checks {
				fmt.Fprintf(&b, "- %s: `%s`\n", c.Key, c.Value)
			}
			if len(e.Checks) > 0 {
				b.WriteString("\n")
			}
			b.WriteString("```\n")
			b.WriteString(strings.TrimRight(e.Guidance, "\n"))
			b.WriteString("\n```\n\n")
		}
	}
	return b.String()
}

func tableCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

// FormatAsHTML renders the markdown form as a standalone page.
func FormatAsHTML(doc Document) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	ast := p.Parse([]byte(FormatAsMarkdown(doc)))

	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
		Title: "grub-wiz parameters",
	}
	return string(markdown.Render(ast, html.NewRenderer(opts)))
}
