package visibility

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func openIn(t *testing.T, defaults ...string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grub-wiz", FileName)
	return Open(path, Options{UID: -1, GID: -1, Defaults: defaults, Log: logr.Discard()}), path
}

func TestHideUnhideIdempotent(t *testing.T) {
	s, _ := openIn(t)

	assert.True(t, s.HideParam("GRUB_BADRAM"))
	assert.False(t, s.HideParam("GRUB_BADRAM"))
	assert.Equal(t, 1, s.DirtyCount())
	assert.True(t, s.IsHiddenParam("GRUB_BADRAM"))

	assert.True(t, s.UnhideParam("GRUB_BADRAM"))
	assert.False(t, s.UnhideParam("GRUB_BADRAM"))
	assert.False(t, s.IsHiddenParam("GRUB_BADRAM"))
	assert.Equal(t, 2, s.DirtyCount())

	require.NoError(t, s.WriteIfDirty())
	assert.Zero(t, s.DirtyCount())
}

func TestWriteIfDirtyPersistsSortedOwnerOnly(t *testing.T) {
	s, path := openIn(t)
	s.HideWarn(WarnKey("GRUB_TIMEOUT", "over 60s seems ill advised"))
	s.HideParam("GRUB_THEME")
	s.HideParam("GRUB_BADRAM")

	require.NoError(t, s.WriteIfDirty())

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc document
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, []string{"GRUB_BADRAM", "GRUB_THEME"}, doc.Params)
	assert.Equal(t, []string{"GRUB_TIMEOUT over 60s seems ill advised"}, doc.Warns)

	again := Open(path, Options{Log: logr.Discard()})
	assert.True(t, again.IsHiddenParam("GRUB_THEME"))
	assert.Zero(t, again.DirtyCount())
}

func TestWriteIfCleanDoesNothing(t *testing.T) {
	s, path := openIn(t)
	require.NoError(t, s.WriteIfDirty())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestMalformedFileFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("params: [unterminated\n"), 0o600))

	s := Open(path, Options{Defaults: []string{"GRUB_BADRAM"}, Log: logr.Discard()})
	assert.Empty(t, s.Params())
	assert.Empty(t, s.Warns())
	assert.False(t, s.IsHiddenParam("GRUB_BADRAM"), "defaults only seed a missing file")
}

func TestFirstRunSeedsDefaults(t *testing.T) {
	s, _ := openIn(t, "GRUB_BADRAM", "GRUB_INIT_TUNE")
	assert.Equal(t, []string{"GRUB_BADRAM", "GRUB_INIT_TUNE"}, s.Params())
	assert.Equal(t, 2, s.DirtyCount(), "seeded defaults get written on the next flush")
}

func TestPurgeOrphanKeys(t *testing.T) {
	s, path := openIn(t)
	live := WarnKey("GRUB_TIMEOUT", "over 60s seems ill advised")
	stale := WarnKey("GRUB_GONE", "no longer produced")
	s.HideWarn(live)
	s.HideWarn(stale)
	require.NoError(t, s.WriteIfDirty())

	n := s.PurgeOrphanKeys(map[string]bool{live: true})
	assert.Equal(t, 1, n)
	assert.False(t, s.IsHiddenWarn(stale))
	require.NoError(t, s.WriteIfDirty())

	reread := Open(path, Options{Log: logr.Discard()})
	assert.Equal(t, []string{live}, reread.Warns())
}

func TestToggle(t *testing.T) {
	s, _ := openIn(t)
	s.ToggleParam("GRUB_THEME")
	assert.True(t, s.IsHiddenParam("GRUB_THEME"))
	s.ToggleParam("GRUB_THEME")
	assert.False(t, s.IsHiddenParam("GRUB_THEME"))

	key := WarnKey("GRUB_THEME", "path does not seem to exist")
	s.ToggleWarn(key)
	assert.True(t, s.IsHiddenWarn(key))
}
