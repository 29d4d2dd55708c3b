//go:build !windows

// Package privilege answers "may this process overwrite that file?" for the
// commit and restore paths.
package privilege

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrNotPrivileged is wrapped by every refusal from CheckWritable.
var ErrNotPrivileged = errors.New("root privileges required")

// geteuid and access are replaced in tests.
var (
	geteuid = unix.Geteuid
	access  = unix.Access
)

// IsRoot reports whether the effective uid is 0.
func IsRoot() bool {
	return geteuid() == 0
}

// CheckWritable returns nil when path (or, if it does not exist yet, its
// directory) can be replaced by this process.
func CheckWritable(path string) error {
	if IsRoot() {
		return nil
	}
	probe := path
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		probe = filepath.Dir(path)
	}
	if err := access(probe, unix.W_OK); err != nil {
		return fmt.Errorf("write %s: %w", path, ErrNotPrivileged)
	}
	// Replacing via rename also needs the directory.
	if err := access(filepath.Dir(path), unix.W_OK); err != nil {
		return fmt.Errorf("write %s: %w", path, ErrNotPrivileged)
	}
	return nil
}

// HandOver chowns path to uid/gid when running as root, so files created in
// a user's config directory stay owned by that user. It is a no-op otherwise.
func HandOver(path string, uid, gid int) error {
	if !IsRoot() || uid < 0 || uid == 0 {
		return nil
	}
	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	return nil
}
