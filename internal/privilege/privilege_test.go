//go:build !windows

package privilege

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func withIdentity(t *testing.T, euid int, deny map[string]bool) {
	t.Helper()
	origEuid, origAccess := geteuid, access
	t.Cleanup(func() { geteuid, access = origEuid, origAccess })
	geteuid = func() int { return euid }
	access = func(path string, mode uint32) error {
		if deny[path] {
			return unix.EACCES
		}
		return nil
	}
}

func TestCheckWritable(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "grub")
	require.NoError(t, os.WriteFile(target, []byte("GRUB_TIMEOUT=5\n"), 0o644))

	t.Run("root always allowed", func(t *testing.T) {
		withIdentity(t, 0, map[string]bool{target: true, dir: true})
		assert.NoError(t, CheckWritable(target))
	})
	t.Run("user with access", func(t *testing.T) {
		withIdentity(t, 1000, nil)
		assert.NoError(t, CheckWritable(target))
	})
	t.Run("user denied on file", func(t *testing.T) {
		withIdentity(t, 1000, map[string]bool{target: true})
		err := CheckWritable(target)
		assert.True(t, errors.Is(err, ErrNotPrivileged))
	})
	t.Run("user denied on directory", func(t *testing.T) {
		withIdentity(t, 1000, map[string]bool{dir: true})
		err := CheckWritable(target)
		assert.True(t, errors.Is(err, ErrNotPrivileged))
	})
	t.Run("missing file probes directory", func(t *testing.T) {
		withIdentity(t, 1000, map[string]bool{filepath.Join(dir, "absent"): true})
		assert.NoError(t, CheckWritable(filepath.Join(dir, "absent")))
	})
}

func TestHandOverNoopWhenNotRoot(t *testing.T) {
	withIdentity(t, 1000, nil)
	assert.NoError(t, HandOver(filepath.Join(t.TempDir(), "missing"), 1000, 1000))
}
