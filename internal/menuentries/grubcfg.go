package menuentries

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// CfgSource reads top-level menuentry and submenu titles from a generated
// grub.cfg. Entries nested in a submenu are skipped.
type CfgSource struct {
	Path string
}

// Entries implements Source.
func (c CfgSource) Entries(context.Context) ([]string, error) {
	if c.Path == "" {
		return nil, ErrNoCommand
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("discover menu entries: %w", err)
	}
	defer f.Close()

	var entries []string
	seen := map[string]bool{}
	depth := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if depth == 0 && (strings.HasPrefix(line, "menuentry ") || strings.HasPrefix(line, "submenu ")) {
			if title, ok := firstQuoted(line); ok && !seen[title] {
				seen[title] = true
				entries = append(entries, title)
			}
		}
		depth += braceDelta(line)
		if depth < 0 {
			depth = 0
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("discover menu entries: %w", err)
	}
	return entries, nil
}

// firstQuoted returns the first single- or double-quoted word of line.
func firstQuoted(line string) (string, bool) {
	i := strings.IndexAny(line, `'"`)
	if i < 0 {
		return "", false
	}
	q := line[i]
	j := strings.IndexByte(line[i+1:], q)
	if j < 0 {
		return "", false
	}
	return line[i+1 : i+1+j], true
}

// braceDelta counts block braces outside quotes.
func braceDelta(line string) int {
	d := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '{':
			d++
		case ch == '}':
			d--
		}
	}
	return d
}
