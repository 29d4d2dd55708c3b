package ui

import (
	"context"
	"errors"
	"os"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"

	"github.com/oakwood-commons/grub-wiz/internal/wiz"
)

// Run drives the session until the user quits. Hidden-item changes are
// flushed on every exit, including ctrl+c and program errors.
func Run(ctx context.Context, w *wiz.Wiz, opts Options, teaOpts ...tea.ProgramOption) error {
	m := New(ctx, w, opts)

	width, height := 80, 24
	if cw, ch, err := term.GetSize(int(os.Stdout.Fd())); err == nil && cw > 0 && ch > 0 {
		width, height = cw, ch
	}
	m.width, m.height = width, height
	m.help.layout(m.width, m.bodyHeight(), m.st)
	m.sync()
	teaOpts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithWindowSize(width, height)}, teaOpts...)

	prog := tea.NewProgram(m, teaOpts...)
	_, err := prog.Run()
	return errors.Join(err, w.Close())
}
