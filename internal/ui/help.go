package ui

import (
	"regexp"
	"strings"

	"charm.land/bubbles/v2/viewport"
)

var (
	mdBoldRe = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdCodeRe = regexp.MustCompile("`([^`]+)`")
)

// applyInlineHelpMarkdown renders **bold** and `code` spans.
func applyInlineHelpMarkdown(s string, st Styles) string {
	s = mdBoldRe.ReplaceAllStringFunc(s, func(m string) string {
		return st.Header.Render(mdBoldRe.FindStringSubmatch(m)[1])
	})
	return mdCodeRe.ReplaceAllStringFunc(s, func(m string) string {
		return st.Status.Render(mdCodeRe.FindStringSubmatch(m)[1])
	})
}

// renderHelpMarkdown renders headings, bullets and paragraphs, wrapped to
// width.
func renderHelpMarkdown(help string, width int, st Styles) []string {
	if width < 1 {
		width = 1
	}
	var out []string
	for _, raw := range strings.Split(strings.ReplaceAll(help, "\r\n", "\n"), "\n") {
		trim := strings.TrimSpace(raw)
		switch {
		case trim == "":
			out = append(out, "")
		case strings.HasPrefix(trim, "#"):
			trim = strings.TrimSpace(strings.TrimLeft(trim, "#"))
			for _, w := range wrapIndent(trim, width, "") {
				out = append(out, st.Section.Render(w))
			}
		case strings.HasPrefix(trim, "- "):
			for i, w := range wrapIndent(strings.TrimPrefix(trim, "- "), width-2, "  ") {
				prefix := "• "
				if i > 0 {
					prefix = "  "
				}
				out = append(out, prefix+applyInlineHelpMarkdown(w, st))
			}
		default:
			for _, w := range wrapIndent(trim, width, "") {
				out = append(out, applyInlineHelpMarkdown(w, st))
			}
		}
	}
	return out
}

// helpScreen is the scrollable key reference.
type helpScreen struct {
	vp     viewport.Model
	expert bool
}

func newHelpScreen(expert bool) helpScreen {
	return helpScreen{vp: viewport.New(viewport.WithWidth(80), viewport.WithHeight(20)), expert: expert}
}

func (h *helpScreen) layout(width, height int, st Styles) {
	h.vp.SetWidth(width)
	h.vp.SetHeight(height)
	h.vp.SetContent(strings.Join(renderHelpMarkdown(helpMarkdown(h.expert), width-1, st), "\n"))
}

func (h *helpScreen) scroll(a Action) {
	switch a {
	case ActionUp:
		h.vp.ScrollUp(1)
	case ActionDown:
		h.vp.ScrollDown(1)
	case ActionPageUp:
		h.vp.PageUp()
	case ActionPageDown:
		h.vp.PageDown()
	case ActionTop:
		h.vp.GotoTop()
	case ActionBottom:
		h.vp.GotoBottom()
	}
}

func (h *helpScreen) view() string { return h.vp.View() }
