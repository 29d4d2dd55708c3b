// Package ui is the terminal surface of grub-wiz: a bubbletea program with
// the HOME, REVIEW, RESTORE and HELP screens over one wiz.Wiz session.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/grub-wiz/internal/backup"
	"github.com/oakwood-commons/grub-wiz/internal/catalog"
	"github.com/oakwood-commons/grub-wiz/internal/nav"
	"github.com/oakwood-commons/grub-wiz/internal/review"
	"github.com/oakwood-commons/grub-wiz/internal/session"
	"github.com/oakwood-commons/grub-wiz/internal/wiz"
)

// Options tune the model.
type Options struct {
	NoColor bool
	// Expert enables the E key.
	Expert bool
	Log    logr.Logger
	// Now is swapped in tests.
	Now func() time.Time
}

type tickMsg time.Time

// Model is the bubbletea model.
type Model struct {
	ctx  context.Context
	w    *wiz.Wiz
	st   Styles
	opts Options

	guide      bool
	showHidden bool
	tick       time.Duration
	width      int
	height     int

	prompt   *prompt
	flash    string
	flashErr bool
	flashAt  time.Time

	help    helpScreen
	backups []backup.Record
	home    []homeRow
	rows    []review.Row

	// rendered by sync
	header string
	body   []string
	done   bool
}

// New builds the model and runs the startup backup check, which may leave
// a tag prompt open.
func New(ctx context.Context, w *wiz.Wiz, opts Options) *Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log.GetSink() == nil {
		opts.Log = logr.Discard()
	}
	m := &Model{
		ctx:    ctx,
		w:      w,
		st:     NewStyles(w.Config.ThemeColors(), opts.NoColor),
		opts:   opts,
		guide:  w.Config.UI.Guide,
		tick:   time.Duration(w.Config.UI.TickSeconds) * time.Second,
		width:  80,
		height: 24,
		help:   newHelpScreen(opts.Expert),
	}
	if m.tick <= 0 {
		m.tick = 3 * time.Second
	}
	m.help.layout(m.width, m.bodyHeight(), m.st)
	m.startupBackup()
	m.sync()
	return m
}

// Done reports whether the user asked to leave.
func (m *Model) Done() bool { return m.done }

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the redraw tick.
func (m *Model) Init() tea.Cmd {
	return m.tickCmd()
}

// Update handles one message. Every mutation of the session happens here.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	defer m.sync()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.layout(m.width, m.bodyHeight(), m.st)
		return m, nil

	case tickMsg:
		if m.flash != "" && m.opts.Now().Sub(m.flashAt) >= m.tick {
			m.flash = ""
		}
		return m, m.tickCmd()

	case tea.KeyPressMsg:
		var cmd tea.Cmd
		if m.prompt != nil {
			cmd = m.updatePrompt(msg)
		} else {
			cmd = m.handle(ActionFor(msg.String()))
		}
		if m.done {
			return m, tea.Quit
		}
		return m, cmd
	}

	if m.prompt != nil {
		return m, m.updatePrompt(msg)
	}
	return m, nil
}

func (m *Model) updatePrompt(msg tea.Msg) tea.Cmd {
	p := m.prompt
	finished, cmd := p.update(msg)
	if finished && m.prompt == p {
		m.prompt = nil
	}
	return cmd
}

func (m *Model) handle(a Action) tea.Cmd {
	if a == ActionTerminate {
		m.done = true
		return tea.Quit
	}
	nv := m.w.Nav
	switch {
	case a == ActionHelp && !nv.IsCurrent(nav.Help):
		nv.Push(nav.Help)
		m.help.vp.GotoTop()
		return nil
	case a == ActionBack:
		nv.Pop()
		return nil
	case a == ActionQuit:
		return m.quit()
	}

	switch nv.Current().Screen {
	case nav.Home:
		m.handleHome(a)
	case nav.Review:
		m.handleReview(a)
	case nav.Restore:
		m.handleRestore(a)
	case nav.Help:
		m.help.scroll(a)
	}
	return nil
}

func (m *Model) quit() tea.Cmd {
	if !m.w.Nav.IsCurrent(nav.Home) {
		m.w.Nav.Quit()
		return nil
	}
	n := m.w.State.ChangeCount()
	if n == 0 {
		m.done = true
		return tea.Quit
	}
	m.confirm(fmt.Sprintf("quit and discard %d change(s)", n), func() { m.done = true })
	return nil
}

// move applies a cursor action to the current frame.
func (m *Model) move(a Action, n int, selectable func(int) bool) bool {
	cur := m.w.Nav.Current().Cursor
	page := max(m.bodyHeight()-1, 1)
	var req int
	switch a {
	case ActionUp:
		req = cur - 1
	case ActionDown:
		req = cur + 1
	case ActionPageUp:
		req = cur - page
	case ActionPageDown:
		req = cur + page
	case ActionTop:
		req = 0
	case ActionBottom:
		req = n - 1
	default:
		return false
	}
	m.w.Nav.Move(req, n, selectable)
	return true
}

func (m *Model) homeSelected() string {
	cur := m.w.Nav.Current().Cursor
	if cur < 0 || cur >= len(m.home) {
		return ""
	}
	return m.home[cur].name
}

func (m *Model) handleHome(a Action) {
	if m.move(a, len(m.home), func(i int) bool { return m.home[i].selectable() }) {
		return
	}
	name := m.homeSelected()
	switch a {
	case ActionGuide:
		m.guide = !m.guide
	case ActionShowHidden:
		m.showHidden = !m.showHidden
	case ActionHide:
		if name != "" {
			m.w.Hidden.ToggleParam(name)
		}
	case ActionWrite:
		if m.w.NeedsReview() {
			m.w.Review.Reset()
			m.w.Nav.Push(nav.Review)
			return
		}
		m.confirmWrite()
	case ActionRestoreScreen:
		m.w.Nav.Push(nav.Restore)
		m.startupBackup()
		m.refreshBackups()
	default:
		if name != "" {
			m.paramAction(a, name)
		}
	}
}

// paramAction runs the value actions shared by HOME and REVIEW.
func (m *Model) paramAction(a Action, name string) {
	p := m.w.Catalog.MustGet(name)
	switch a {
	case ActionCycle:
		if p.HasEnums() {
			m.w.State.CycleNext(name)
		}
	case ActionCyclePrev:
		if p.HasEnums() {
			m.w.State.CyclePrev(name)
		}
	case ActionEdit:
		if p.HasPattern() {
			m.editPrompt(p)
		}
	case ActionExpertEdit:
		if m.opts.Expert {
			m.expertPrompt(p)
		}
	case ActionUndo:
		m.w.State.Undo(name)
	}
}

func checkHint(p *catalog.Parameter) string {
	var parts []string
	for _, c := range p.Checks {
		if c.Key == catalog.CheckRegex {
			parts = append(parts, "pat="+c.Value)
			continue
		}
		parts = append(parts, c.Key+"="+c.Value)
	}
	return strings.Join(parts, "  ")
}

func (m *Model) editPrompt(p *catalog.Parameter) {
	name := p.Name
	m.prompt = newPrompt("Edit "+name, checkHint(p), m.w.State.Get(name), func(answer string) (string, bool) {
		if err := m.w.State.Edit(name, answer); err != nil {
			var ie *session.InputError
			if errors.As(err, &ie) {
				return ie.Hint, false
			}
			return err.Error(), false
		}
		return "", true
	})
}

func (m *Model) expertPrompt(p *catalog.Parameter) {
	name := p.Name
	m.prompt = newPrompt("Expert edit "+name, "one shell word or one quoted string", m.w.State.Get(name), func(answer string) (string, bool) {
		if err := m.w.State.ExpertEdit(name, answer); err != nil {
			var ie *session.InputError
			if errors.As(err, &ie) {
				return ie.Hint, false
			}
			return err.Error(), false
		}
		return "", true
	})
}

// confirm asks "Enter 'yes' to <act>" and runs then on a yes.
func (m *Model) confirm(act string, then func()) {
	m.prompt = newPrompt("Enter 'yes' to "+act, "", "y", func(answer string) (string, bool) {
		if yes(answer) {
			then()
		}
		return "", true
	})
}

func (m *Model) reviewSelected() review.Row {
	cur := m.w.Nav.Current().Cursor
	if cur < 0 || cur >= len(m.rows) {
		return nil
	}
	return m.rows[cur]
}

func (m *Model) handleReview(a Action) {
	if m.move(a, len(m.rows), func(i int) bool { return m.rows[i].Selectable() }) {
		return
	}
	switch a {
	case ActionShowHidden:
		m.showHidden = !m.showHidden
		return
	case ActionWrite:
		m.confirmWrite()
		return
	}
	switch r := m.reviewSelected().(type) {
	case review.ParamRow:
		m.paramAction(a, r.Name)
	case review.WarningRow:
		if a == ActionHide {
			m.w.Hidden.ToggleWarn(r.Key)
		}
	}
}

func (m *Model) confirmWrite() {
	m.confirm("commit changes and update GRUB", func() {
		res, err := m.w.Commit(m.ctx)
		if err != nil {
			m.opts.Log.Error(err, "commit failed", "target", m.w.Target)
			m.w.Review.Reset()
			m.w.Nav.Reset()
			m.setError(fmt.Errorf("write failed, nothing changed: %w", err))
			return
		}
		m.opts.Log.Info("committed", "target", m.w.Target, "output", res.Output)
		m.setFlash(doneMessage("wrote "+m.w.Target, res))
		m.startupBackup()
	})
}

func (m *Model) handleRestore(a Action) {
	if m.move(a, len(m.backups), func(int) bool { return true }) {
		return
	}
	rec, ok := m.selectedBackup()
	if !ok {
		return
	}
	switch a {
	case ActionRestore:
		m.confirm(fmt.Sprintf("restore %q and update GRUB", rec.Name()), func() {
			res, err := m.w.Restore(m.ctx, rec)
			if err != nil {
				m.opts.Log.Error(err, "restore failed", "backup", rec.Name())
				m.setError(err)
				return
			}
			m.setFlash(doneMessage("restored "+rec.Name(), res))
			m.startupBackup()
		})
	case ActionDelete:
		m.confirm(fmt.Sprintf("remove %q", rec.Name()), func() {
			if err := m.w.DeleteBackup(rec); err != nil {
				m.setError(err)
			} else {
				m.setFlash("deleted " + rec.Name())
			}
			m.refreshBackups()
		})
	}
}

func doneMessage(what string, res wiz.Outcome) string {
	msg := what
	if res.HasSaved {
		msg += "; saved previous as " + res.Saved.Name()
	}
	if last := lastLine(res.Output); last != "" {
		msg += "; " + last
	}
	return msg
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// startupBackup backs up a first-seen target as orig, or asks for a tag
// when the current content is in no backup. ESC skips the backup.
func (m *Model) startupBackup() {
	need, err := m.w.StartupBackup()
	if err != nil {
		m.setError(err)
		return
	}
	if !need {
		return
	}
	m.prompt = newPrompt("Enter a tag to back up "+m.w.Target, "regex=^[-_A-Za-z0-9]+$", "custom", func(answer string) (string, bool) {
		tag := strings.TrimSpace(answer)
		if !backup.ValidTag(tag) {
			return "regex=^[-_A-Za-z0-9]+$", false
		}
		rec, _, err := m.w.BackupCurrent(tag)
		if err != nil {
			m.setError(err)
			return "", true
		}
		m.setFlash("backed up as " + rec.Name())
		if m.w.Nav.IsCurrent(nav.Restore) {
			m.refreshBackups()
		}
		return "", true
	})
}

func (m *Model) setFlash(s string) {
	m.flash, m.flashErr, m.flashAt = s, false, m.opts.Now()
}

func (m *Model) setError(err error) {
	m.flash, m.flashErr, m.flashAt = err.Error(), true, m.opts.Now()
}

// bodyHeight is what is left after the header and status lines and an open
// prompt.
func (m *Model) bodyHeight() int {
	h := m.height - 2
	if m.prompt != nil {
		h--
	}
	return max(h, 1)
}

func (m *Model) selectableAt(i int) bool {
	switch m.w.Nav.Current().Screen {
	case nav.Home:
		return m.home[i].selectable()
	case nav.Review:
		return m.rows[i].Selectable()
	}
	return true
}

// sync rebuilds the rows of the current screen, settles the cursor on a
// selectable row and scrolls it into view. View only reads what sync left.
func (m *Model) sync() {
	f := m.w.Nav.Current()
	m.home = m.homeRows()
	var n int
	switch f.Screen {
	case nav.Home:
		n = len(m.home)
	case nav.Review:
		m.rows = m.w.ReviewRows(m.ctx, m.showHidden)
		n = len(m.rows)
	case nav.Restore:
		n = len(m.backups)
	}
	if n > 0 {
		f.Cursor = nav.Skip(n, m.selectableAt, f.Cursor, f.Cursor)
	} else {
		f.Cursor = 0
	}

	view := m.bodyHeight()
	var lines []string
	blockLen := 1
	switch f.Screen {
	case nav.Home:
		lines, blockLen = m.homeBody(m.home, f.Cursor, view)
		m.header = m.homeHeader(m.homeSelected())
	case nav.Review:
		lines = m.reviewBody(m.rows, f.Cursor)
		m.header = m.reviewHeader(m.reviewSelected())
	case nav.Restore:
		lines = m.restoreBody(m.backups, f.Cursor)
		m.header = restoreHeader
	case nav.Help:
		m.header = " ESC:back [q]uit   ↑/↓ PgUp/PgDn scroll"
		m.body = nil
		if m.prompt != nil {
			m.prompt.resize(m.width)
		}
		return
	}
	if m.prompt != nil {
		m.prompt.resize(m.width)
	}
	f.Scroll = nav.ClampScroll(f.Scroll, f.Cursor, view, len(lines))
	if over := f.Cursor - f.Scroll + blockLen - view; over > 0 {
		f.Scroll += over
	}
	end := min(f.Scroll+view, len(lines))
	m.body = lines[min(f.Scroll, end):end]
}

// View renders the frame sync prepared.
func (m *Model) View() tea.View {
	var b strings.Builder
	b.WriteString(m.st.Header.Render(truncate(m.header, m.width)))
	b.WriteString("\n")
	var body []string
	if m.w.Nav.IsCurrent(nav.Help) {
		body = strings.Split(m.help.view(), "\n")
	} else {
		body = m.body
	}
	for i := 0; i < m.bodyHeight(); i++ {
		if i < len(body) {
			b.WriteString(body[i])
		}
		b.WriteString("\n")
	}
	if m.prompt != nil {
		b.WriteString(m.prompt.view())
		b.WriteString("\n")
	}
	b.WriteString(m.statusLine())

	v := tea.NewView(b.String())
	v.AltScreen = true
	return v
}

func (m *Model) statusLine() string {
	if m.flash != "" {
		if m.flashErr {
			return m.st.Error.Render(truncate(m.flash, m.width))
		}
		return m.st.Status.Render(truncate(m.flash, m.width))
	}
	info := m.w.Nav.Current().Screen.String() + "  " + m.w.Target
	if n := len(m.w.Hidden.Params()); n > 0 && !m.showHidden {
		info += fmt.Sprintf("  (%d hidden, s:show)", n)
	}
	return m.st.Dim.Render(truncate(info, m.width))
}
