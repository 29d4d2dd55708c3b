// Package grubfile reads and writes the KEY=value settings file and runs the
// command that regenerates the boot menu from it.
package grubfile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/oakwood-commons/grub-wiz/internal/privilege"
)

// ErrTargetMissing is returned when the settings file does not exist.
var ErrTargetMissing = errors.New("target file does not exist")

// ErrNotPrivileged mirrors privilege.ErrNotPrivileged for callers that only
// import grubfile.
var ErrNotPrivileged = privilege.ErrNotPrivileged

// BannerPrefix starts every comment line grub-wiz writes itself. Such lines
// are dropped on read so banners never accumulate.
const BannerPrefix = "#--#"

const (
	managedBanner = BannerPrefix + " NOTE: this file was built with 'grub-wiz'\n" +
		BannerPrefix + "     - We suggest updating the following params with 'grub-wiz'\n" +
		BannerPrefix + "       although not required\n"
	otherBanner = BannerPrefix + " NOTE: following are params NOT handled by 'grub-wiz'\n" +
		BannerPrefix + "     - update these manually.\n"
)

var assignRE = regexp.MustCompile(`^\s*(?:export\s+)?([A-Z][A-Z0-9_]*)=(.*)$`)

// File is a parsed settings file.
type File struct {
	// Vals holds the raw right-hand side (quotes kept) of recognized keys.
	Vals map[string]string
	// Other holds every line that is not a recognized assignment, verbatim,
	// each ending in "\n".
	Other []string
}

// Parse splits content into recognized assignments and everything else.
// When a key is assigned twice the last assignment wins, as in the shell.
func Parse(content []byte, known func(name string) bool) *File {
	f := &File{Vals: map[string]string{}}
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), BannerPrefix) {
			continue
		}
		if m := assignRE.FindStringSubmatch(line); m != nil && known(m[1]) {
			f.Vals[m[1]] = strings.TrimRightFunc(m[2], isSpace)
			continue
		}
		f.Other = append(f.Other, line+"\n")
	}
	return f
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\r' }

// Read loads and parses path.
func Read(path string, known func(name string) bool) (*File, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("read %s: %w", path, ErrTargetMissing)
		}
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data, known), data, nil
}

// Render produces the file text: banner, names in the given order, second
// banner, then the unrecognized lines verbatim.
func Render(names []string, vals map[string]string, other []string) []byte {
	var b bytes.Buffer
	b.WriteString(managedBanner)
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%s\n", name, vals[name])
	}
	b.WriteString(otherBanner)
	for _, line := range other {
		b.WriteString(line)
	}
	return b.Bytes()
}

// Writer commits new content to the target and regenerates the boot menu.
type Writer struct {
	Target string
	// Regen overrides the regeneration command; empty picks one from PATH.
	Regen   []string
	Timeout time.Duration
	// Run executes the regeneration command and returns its combined output.
	Run func(ctx context.Context, name string, args ...string) ([]byte, error)

	lookPath func(string) (string, error)
}

// NewWriter returns a Writer for target with the default runner.
func NewWriter(target string) *Writer {
	return &Writer{
		Target:   target,
		Timeout:  2 * time.Minute,
		Run:      runCombined,
		lookPath: exec.LookPath,
	}
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Commit replaces the target with content atomically: a temp file in the
// same directory is written, synced and renamed over the target. On any
// failure the target is left untouched.
func (w *Writer) Commit(content []byte) error {
	if err := privilege.CheckWritable(w.Target); err != nil {
		return err
	}
	return WriteAtomic(w.Target, content, 0o644)
}

// WriteAtomic writes data to path via temp file and rename.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// RegenCommand resolves the boot menu regeneration command.
func (w *Writer) RegenCommand() ([]string, error) {
	if len(w.Regen) > 0 {
		return w.Regen, nil
	}
	lookPath := w.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("update-grub"); err == nil {
		return []string{"update-grub"}, nil
	}
	if _, err := lookPath("grub-mkconfig"); err == nil {
		return []string{"grub-mkconfig", "-o", "/boot/grub/grub.cfg"}, nil
	}
	if _, err := lookPath("grub2-mkconfig"); err == nil {
		return []string{"grub2-mkconfig", "-o", "/boot/grub2/grub.cfg"}, nil
	}
	return nil, fmt.Errorf("no update-grub, grub-mkconfig or grub2-mkconfig on PATH")
}

// Regenerate runs the regeneration command and returns its combined output.
func (w *Writer) Regenerate(ctx context.Context) (string, error) {
	argv, err := w.RegenCommand()
	if err != nil {
		return "", err
	}
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	run := w.Run
	if run == nil {
		run = runCombined
	}
	out, err := run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return string(out), fmt.Errorf("%s: %w", strings.Join(argv, " "), err)
	}
	return string(out), nil
}
