package ui

import "github.com/oakwood-commons/grub-wiz/internal/backup"

const restoreHeader = " [d]elete [r]estore ?:help ESC:back [q]uit"

func (m *Model) restoreBody(recs []backup.Record, cursor int) []string {
	if len(recs) == 0 {
		return []string{m.st.Dim.Render("  no backups in " + m.w.Backups.Dir)}
	}
	lines := make([]string, 0, len(recs))
	for i, r := range recs {
		line := truncate("  "+r.Name(), m.width)
		if i == cursor {
			line = m.st.Selected.Render(padANSIToWidth(line, m.width))
		}
		lines = append(lines, line)
	}
	return lines
}

func (m *Model) refreshBackups() {
	recs, err := m.w.ListBackups()
	if err != nil {
		m.setError(err)
	}
	m.backups = recs
}

func (m *Model) selectedBackup() (backup.Record, bool) {
	cur := m.w.Nav.Current().Cursor
	if cur < 0 || cur >= len(m.backups) {
		return backup.Record{}, false
	}
	return m.backups[cur], true
}
