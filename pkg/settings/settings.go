// Package settings provides build metadata, runtime configuration, and
// context helpers used across the grub-wiz CLI and its internal packages.
package settings

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "grub-wiz"

// DefaultTargetPath is the settings file grub-wiz edits unless told otherwise.
const DefaultTargetPath = "/etc/default/grub"

// VersionInformation is populated at build time via ldflags and holds the
// commit hash, semantic version, and build timestamp of the running binary.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build, including the commit hash,
// build version, and build timestamp.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// RealUser identifies the human behind the session. When grub-wiz runs under
// sudo the files it creates in the config directory are handed back to this
// user so they remain manageable without root.
type RealUser struct {
	Name      string
	UID       int
	GID       int
	Home      string
	ConfigDir string
}

// Run holds configuration settings for a single execution of the application.
type Run struct {
	MinLogLevel int8
	TargetPath  string
	ConfigFile  string
	Discovery   string
	Expert      bool
	NoColor     bool
	User        RealUser
}

// NewCliParams initializes and returns a pointer to a Run struct with default CLI parameters.
func NewCliParams() *Run {
	return &Run{
		MinLogLevel: 0,
		TargetPath:  DefaultTargetPath,
		User:        LookupRealUser(),
	}
}

// lookupUser and currentUser are swapped out in tests.
var (
	lookupUser  = user.Lookup
	currentUser = user.Current
	getenv      = os.Getenv
)

// LookupRealUser resolves the invoking user. SUDO_USER wins over the
// effective user so that `sudo grub-wiz` keeps backups under the caller's home.
func LookupRealUser() RealUser {
	if name := getenv("SUDO_USER"); name != "" && name != "root" {
		if u, err := lookupUser(name); err == nil {
			if ru, ok := fromUser(u); ok {
				return ru
			}
		}
	}
	if u, err := currentUser(); err == nil {
		if ru, ok := fromUser(u); ok {
			return ru
		}
	}
	home, _ := os.UserHomeDir()
	return RealUser{
		UID:       os.Geteuid(),
		GID:       os.Getegid(),
		Home:      home,
		ConfigDir: filepath.Join(home, ".config", CliBinaryName),
	}
}

func fromUser(u *user.User) (RealUser, bool) {
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return RealUser{}, false
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return RealUser{}, false
	}
	return RealUser{
		Name:      u.Username,
		UID:       uid,
		GID:       gid,
		Home:      u.HomeDir,
		ConfigDir: filepath.Join(u.HomeDir, ".config", CliBinaryName),
	}, true
}
