package ui

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// submitFunc handles an answer. It returns done=false with a hint to ask
// again; the hint replaces the bracketed part of the label.
type submitFunc func(answer string) (hint string, done bool)

// prompt is a one-line question under the body. ESC abandons it without
// calling submit.
type prompt struct {
	question string
	hint     string
	input    textinput.Model
	submit   submitFunc
}

func newPrompt(question, hint, seed string, submit submitFunc) *prompt {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 1024
	ti.SetWidth(60)
	ti.SetValue(seed)
	ti.CursorEnd()
	ti.Focus()
	return &prompt{question: question, hint: hint, input: ti, submit: submit}
}

func (p *prompt) label() string {
	if p.hint == "" {
		return p.question + ": "
	}
	return p.question + " [" + p.hint + "]: "
}

// update feeds one message to the prompt. It reports whether the prompt is
// finished, either answered or abandoned.
func (p *prompt) update(msg tea.Msg) (finished bool, cmd tea.Cmd) {
	if key, ok := msg.(tea.KeyPressMsg); ok {
		switch key.String() {
		case "esc", "ctrl+c":
			return true, nil
		case "enter":
			hint, done := p.submit(p.input.Value())
			if !done {
				p.hint = hint
			}
			return done, nil
		}
	}
	p.input, cmd = p.input.Update(msg)
	return false, cmd
}

func (p *prompt) resize(width int) {
	p.input.SetWidth(max(width-ansiVisibleWidth(p.label())-1, 10))
}

func (p *prompt) view() string {
	return p.label() + p.input.View()
}

// yes reads a confirmation answer.
func yes(answer string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y")
}
