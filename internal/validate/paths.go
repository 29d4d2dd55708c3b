package validate

import (
	"os"
	"path/filepath"
	"strings"
)

// SearchBases are tried in order for relative asset paths.
var SearchBases = []string{"/boot/grub", "/boot/grub2", "/usr/share/grub", "/"}

// PathResolver finds background and theme files.
type PathResolver struct {
	Bases  []string
	Exists func(path string) bool
}

// DefaultResolver checks the real filesystem.
func DefaultResolver() PathResolver {
	return PathResolver{Bases: SearchBases, Exists: fileExists}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Resolve returns whether the asset exists and the path it resolved to.
// Quotes are stripped and a leading $prefix becomes the first base. An
// absolute path is checked as is; a relative one against each base in turn.
func (r PathResolver) Resolve(value string) (bool, string) {
	if value == "" {
		return false, ""
	}
	p := strings.Trim(strings.Trim(strings.TrimSpace(value), `"`), `'`)
	if strings.HasPrefix(p, "$prefix") {
		p = strings.Replace(p, "$prefix", r.Bases[0], 1)
	}
	if filepath.IsAbs(p) {
		return r.Exists(p), p
	}
	for _, base := range r.Bases {
		full := filepath.Join(base, p)
		if r.Exists(full) {
			return true, full
		}
	}
	return false, filepath.Join(r.Bases[0], p)
}
