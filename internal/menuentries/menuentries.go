// Package menuentries supplies boot menu titles, either from an external
// command printing one title per line or from the generated grub.cfg.
package menuentries

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNoCommand is returned when discovery is enabled without a source.
var ErrNoCommand = errors.New("no discovery source configured")

// Mode controls discovery.
type Mode string

const (
	ModeEnable  Mode = "enable"
	ModeDisable Mode = "disable"
	// ModeShow prints the discovered titles and exits.
	ModeShow Mode = "show"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeEnable, ModeDisable, ModeShow:
		return m, nil
	}
	return "", fmt.Errorf("invalid discovery mode %q (want enable, disable or show)", s)
}

// Source lists boot menu titles.
type Source interface {
	Entries(ctx context.Context) ([]string, error)
}

// Runner executes argv and returns stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandSource runs Argv with a timeout.
type CommandSource struct {
	Argv    []string
	Timeout time.Duration
	Run     Runner
}

// NewCommandSource returns a source running argv for real.
func NewCommandSource(argv []string, timeout time.Duration) *CommandSource {
	return &CommandSource{
		Argv:    argv,
		Timeout: timeout,
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// Entries implements Source. Blank lines are dropped, order is kept and
// duplicates are removed.
func (c *CommandSource) Entries(ctx context.Context) ([]string, error) {
	if len(c.Argv) == 0 || c.Argv[0] == "" {
		return nil, ErrNoCommand
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	out, err := c.Run(ctx, c.Argv[0], c.Argv[1:]...)
	if err != nil {
		return nil, fmt.Errorf("discover menu entries with %s: %w", c.Argv[0], err)
	}
	return splitLines(out), nil
}

func splitLines(out []byte) []string {
	var entries []string
	seen := map[string]bool{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		entries = append(entries, line)
	}
	return entries
}
