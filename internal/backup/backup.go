// Package backup keeps content-addressed copies of the target file in the
// user's config directory. At most one backup exists per checksum.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/grub-wiz/internal/grubfile"
	"github.com/oakwood-commons/grub-wiz/internal/privilege"
)

const stampLayout = "20060102-150405"

var (
	// ErrInvalidTag is returned for tags outside [-_A-Za-z0-9].
	ErrInvalidTag = errors.New("tag may only contain letters, digits, '-' and '_'")
	// ErrNotPrivileged is returned when restore cannot write the target.
	ErrNotPrivileged = privilege.ErrNotPrivileged

	nameRE = regexp.MustCompile(`(\d{8}-\d{6})-([0-9a-fA-F]{8})\.([a-zA-Z0-9_-]+)\.bak$`)
	tagRE  = regexp.MustCompile(`^[-_A-Za-z0-9]+$`)
)

// Record describes one stored backup.
type Record struct {
	Path      string
	Timestamp time.Time
	Checksum  string
	Tag       string
}

// Name is the backup's file name.
func (r Record) Name() string { return filepath.Base(r.Path) }

// Checksum is the first 8 hex digits of the SHA-256 of content, uppercase.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

// ValidTag reports whether tag may appear in a backup name.
func ValidTag(tag string) bool { return tagRE.MatchString(tag) }

// Store manages the backups of one target file.
type Store struct {
	Target   string
	Dir      string
	UID, GID int
	Log      logr.Logger

	now func() time.Time
}

// Open prepares the backup directory, creating it owner-only and handing it
// to uid/gid when running as root.
func Open(target, dir string, uid, gid int, log logr.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create backup dir %s: %w", dir, err)
	}
	if err := privilege.HandOver(dir, uid, gid); err != nil {
		log.Info("cannot hand backup dir to user", "dir", dir, "error", err.Error())
	}
	return &Store{Target: target, Dir: dir, UID: uid, GID: gid, Log: log, now: time.Now}, nil
}

// CurrentChecksum hashes the target as it is on disk now.
func (s *Store) CurrentChecksum() (string, error) {
	data, err := os.ReadFile(s.Target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("read %s: %w", s.Target, grubfile.ErrTargetMissing)
		}
		return "", fmt.Errorf("read %s: %w", s.Target, err)
	}
	return Checksum(data), nil
}

// List returns every backup, newest first.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.Dir, err)
	}
	var out []Record
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := nameRE.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		ts, err := time.ParseInLocation(stampLayout, m[1], time.Local)
		if err != nil {
			continue
		}
		out = append(out, Record{
			Path:      filepath.Join(s.Dir, e.Name()),
			Timestamp: ts,
			Checksum:  strings.ToUpper(m[2]),
			Tag:       m[3],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() > out[j].Name() })
	return out, nil
}

// Find returns the backup holding content with the given checksum.
func (s *Store) Find(checksum string) (Record, bool, error) {
	recs, err := s.List()
	if err != nil {
		return Record{}, false, err
	}
	for _, r := range recs {
		if r.Checksum == checksum {
			return r, true, nil
		}
	}
	return Record{}, false, nil
}

// Create backs up the target under tag. If identical content is already
// stored, that record is returned and created is false.
func (s *Store) Create(tag string) (rec Record, created bool, err error) {
	data, err := os.ReadFile(s.Target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, false, fmt.Errorf("backup %s: %w", s.Target, grubfile.ErrTargetMissing)
		}
		return Record{}, false, fmt.Errorf("backup %s: %w", s.Target, err)
	}
	return s.CreateFrom(data, tag)
}

// CreateFrom stores content under tag, deduplicating by checksum.
func (s *Store) CreateFrom(content []byte, tag string) (Record, bool, error) {
	if !ValidTag(tag) {
		return Record{}, false, fmt.Errorf("backup tag %q: %w", tag, ErrInvalidTag)
	}
	sum := Checksum(content)
	if existing, ok, err := s.Find(sum); err != nil {
		return Record{}, false, err
	} else if ok {
		s.Log.V(1).Info("content already backed up", "backup", existing.Name())
		return existing, false, nil
	}

	now := s.now().Truncate(time.Second)
	name := fmt.Sprintf("%s-%s.%s.bak", now.Format(stampLayout), sum, tag)
	path := filepath.Join(s.Dir, name)
	if err := grubfile.WriteAtomic(path, content, 0o600); err != nil {
		return Record{}, false, fmt.Errorf("create backup %s: %w", name, err)
	}
	if err := privilege.HandOver(path, s.UID, s.GID); err != nil {
		s.Log.Info("cannot hand backup to user", "backup", name, "error", err.Error())
	}
	s.Log.Info("created backup", "backup", name)
	return Record{Path: path, Timestamp: now, Checksum: sum, Tag: tag}, true, nil
}

// Restore copies the backup over the target. Nothing is written unless the
// process may replace the target.
func (s *Store) Restore(rec Record) error {
	if err := privilege.CheckWritable(s.Target); err != nil {
		return fmt.Errorf("restore %s: %w", rec.Name(), err)
	}
	data, err := os.ReadFile(rec.Path)
	if err != nil {
		return fmt.Errorf("restore %s: %w", rec.Name(), err)
	}
	if err := grubfile.WriteAtomic(s.Target, data, 0o644); err != nil {
		return fmt.Errorf("restore %s: %w", rec.Name(), err)
	}
	s.Log.Info("restored backup", "backup", rec.Name())
	return nil
}

// Delete removes a backup file. Callers confirm with the user first.
func (s *Store) Delete(rec Record) error {
	if filepath.Dir(rec.Path) != filepath.Clean(s.Dir) {
		return fmt.Errorf("delete %s: not in %s", rec.Path, s.Dir)
	}
	if err := os.Remove(rec.Path); err != nil {
		return fmt.Errorf("delete %s: %w", rec.Name(), err)
	}
	s.Log.Info("deleted backup", "backup", rec.Name())
	return nil
}
