// Package visibility persists the parameters and warnings the user chose to
// hide from view.
package visibility

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/grub-wiz/internal/grubfile"
	"github.com/oakwood-commons/grub-wiz/internal/privilege"
)

// FileName is the store's file inside the per-user config directory.
const FileName = "hidden-items.yaml"

// WarnKey builds the composite id of a warning.
func WarnKey(param, message string) string {
	return param + " " + message
}

type document struct {
	Params []string `yaml:"params"`
	Warns  []string `yaml:"warns"`
}

// Store is the in-memory hide state plus a dirty counter of mutations not
// yet written.
type Store struct {
	path     string
	uid, gid int
	defaults []string
	log      logr.Logger

	params map[string]bool
	warns  map[string]bool
	dirty  int
}

// Options configures Open.
type Options struct {
	// UID and GID own the written file when running as root.
	UID, GID int
	// Defaults are hidden on first run, before any file exists.
	Defaults []string
	Log      logr.Logger
}

// Open loads the store at path. A missing or malformed file yields empty
// sets; a missing file additionally seeds opts.Defaults.
func Open(path string, opts Options) *Store {
	s := &Store{
		path:     path,
		uid:      opts.UID,
		gid:      opts.GID,
		defaults: opts.Defaults,
		log:      opts.Log,
	}
	s.Refresh()
	return s
}

// Refresh discards in-memory state and reloads from disk.
func (s *Store) Refresh() {
	s.params = map[string]bool{}
	s.warns = map[string]bool{}
	s.dirty = 0

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		for _, p := range s.defaults {
			s.HideParam(p)
		}
		return
	}
	if err != nil {
		s.log.Info("cannot read hidden items, starting empty", "path", s.path, "error", err.Error())
		return
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		s.log.Info("malformed hidden items, starting empty", "path", s.path, "error", err.Error())
		return
	}
	for _, p := range doc.Params {
		s.params[p] = true
	}
	for _, w := range doc.Warns {
		s.warns[w] = true
	}
}

// HideParam hides a parameter. It returns false when nothing changed.
func (s *Store) HideParam(name string) bool { return s.set(s.params, name, true) }

// UnhideParam shows a parameter again.
func (s *Store) UnhideParam(name string) bool { return s.set(s.params, name, false) }

// HideWarn hides a warning by composite id.
func (s *Store) HideWarn(key string) bool { return s.set(s.warns, key, true) }

// UnhideWarn shows a warning again.
func (s *Store) UnhideWarn(key string) bool { return s.set(s.warns, key, false) }

// ToggleParam flips the hidden state of a parameter.
func (s *Store) ToggleParam(name string) {
	if s.params[name] {
		s.UnhideParam(name)
		return
	}
	s.HideParam(name)
}

// ToggleWarn flips the hidden state of a warning.
func (s *Store) ToggleWarn(key string) {
	if s.warns[key] {
		s.UnhideWarn(key)
		return
	}
	s.HideWarn(key)
}

func (s *Store) set(m map[string]bool, key string, hidden bool) bool {
	if m[key] == hidden {
		return false
	}
	if hidden {
		m[key] = true
	} else {
		delete(m, key)
	}
	s.dirty++
	return true
}

// IsHiddenParam reports whether the parameter is hidden.
func (s *Store) IsHiddenParam(name string) bool { return s.params[name] }

// IsHiddenWarn reports whether the warning is hidden.
func (s *Store) IsHiddenWarn(key string) bool { return s.warns[key] }

// DirtyCount is the number of state changes since the last write.
func (s *Store) DirtyCount() int { return s.dirty }

// Params returns hidden parameter names, sorted.
func (s *Store) Params() []string { return sortedKeys(s.params) }

// Warns returns hidden warning ids, sorted.
func (s *Store) Warns() []string { return sortedKeys(s.warns) }

// PurgeOrphanKeys drops hidden warning ids not in current, the set of ids
// the validator can produce now. It returns how many were dropped.
func (s *Store) PurgeOrphanKeys(current map[string]bool) int {
	n := 0
	for key := range s.warns {
		if !current[key] {
			delete(s.warns, key)
			s.dirty++
			n++
		}
	}
	return n
}

// WriteIfDirty persists the store when it has unsaved changes.
func (s *Store) WriteIfDirty() error {
	if s.dirty == 0 {
		return nil
	}
	data, err := yaml.Marshal(document{Params: s.Params(), Warns: s.Warns()})
	if err != nil {
		return fmt.Errorf("encode hidden items: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(s.path), err)
	}
	if err := grubfile.WriteAtomic(s.path, data, 0o600); err != nil {
		return err
	}
	if err := privilege.HandOver(s.path, s.uid, s.gid); err != nil {
		s.log.Info("cannot hand hidden items to user", "path", s.path, "error", err.Error())
	}
	s.dirty = 0
	return nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
