package grubfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownSet(names ...string) func(string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(n string) bool { return set[n] }
}

const sample = `# If you change this file, run 'update-grub' afterwards.
GRUB_DEFAULT=0
GRUB_TIMEOUT=5
#GRUB_GFXMODE=640x480
GRUB_CMDLINE_LINUX_DEFAULT="quiet splash"
GRUB_UNKNOWN=kept
export GRUB_TIMEOUT=10
#--# NOTE: this file was built with 'grub-wiz'
`

func TestParse(t *testing.T) {
	f := Parse([]byte(sample), knownSet("GRUB_DEFAULT", "GRUB_TIMEOUT", "GRUB_CMDLINE_LINUX_DEFAULT", "GRUB_GFXMODE"))

	assert.Equal(t, map[string]string{
		"GRUB_DEFAULT":               "0",
		"GRUB_TIMEOUT":               "10",
		"GRUB_CMDLINE_LINUX_DEFAULT": `"quiet splash"`,
	}, f.Vals)
	assert.Equal(t, []string{
		"# If you change this file, run 'update-grub' afterwards.\n",
		"#GRUB_GFXMODE=640x480\n",
		"GRUB_UNKNOWN=kept\n",
	}, f.Other)
}

func TestRenderRoundTripKeepsOtherLines(t *testing.T) {
	names := []string{"GRUB_TIMEOUT", "GRUB_DEFAULT"}
	out := Render(names, map[string]string{"GRUB_TIMEOUT": "3", "GRUB_DEFAULT": "saved"}, []string{"GRUB_UNKNOWN=kept\n"})

	text := string(out)
	assert.True(t, strings.HasPrefix(text, BannerPrefix))
	assert.Less(t, strings.Index(text, "GRUB_TIMEOUT=3"), strings.Index(text, "GRUB_DEFAULT=saved"))
	assert.True(t, strings.HasSuffix(text, "GRUB_UNKNOWN=kept\n"))

	again := Parse(out, knownSet(names...))
	assert.Equal(t, map[string]string{"GRUB_TIMEOUT": "3", "GRUB_DEFAULT": "saved"}, again.Vals)
	assert.Equal(t, []string{"GRUB_UNKNOWN=kept\n"}, again.Other, "banners are not carried over")
}

func TestReadMissing(t *testing.T) {
	_, _, err := Read(filepath.Join(t.TempDir(), "nope"), knownSet())
	assert.True(t, errors.Is(err, ErrTargetMissing))
}

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grub")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o600))

	require.NoError(t, WriteAtomic(path, []byte("new\n"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), st.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not linger")
}

func TestWriteAtomicMissingDirLeavesNothing(t *testing.T) {
	err := WriteAtomic(filepath.Join(t.TempDir(), "no", "such", "grub"), []byte("x"), 0o644)
	assert.Error(t, err)
}

func TestRegenCommandSelection(t *testing.T) {
	tests := []struct {
		name      string
		available map[string]bool
		want      []string
		wantErr   bool
	}{
		{name: "debian", available: map[string]bool{"update-grub": true, "grub-mkconfig": true}, want: []string{"update-grub"}},
		{name: "plain grub", available: map[string]bool{"grub-mkconfig": true}, want: []string{"grub-mkconfig", "-o", "/boot/grub/grub.cfg"}},
		{name: "fedora", available: map[string]bool{"grub2-mkconfig": true}, want: []string{"grub2-mkconfig", "-o", "/boot/grub2/grub.cfg"}},
		{name: "none", available: map[string]bool{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter("/etc/default/grub")
			w.lookPath = func(name string) (string, error) {
				if tt.available[name] {
					return "/usr/sbin/" + name, nil
				}
				return "", errors.New("not found")
			}
			got, err := w.RegenCommand()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegenerateReportsFailureWithOutput(t *testing.T) {
	w := NewWriter("/etc/default/grub")
	w.Regen = []string{"update-grub"}
	var gotName string
	w.Run = func(_ context.Context, name string, _ ...string) ([]byte, error) {
		gotName = name
		return []byte("syntax error on line 3"), errors.New("exit status 1")
	}

	out, err := w.Regenerate(context.Background())
	require.Error(t, err)
	assert.Equal(t, "update-grub", gotName)
	assert.Contains(t, out, "syntax error")
}
