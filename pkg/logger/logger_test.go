package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m), "%s", line)
		out = append(out, m)
	}
	return out
}

func TestNewWritesJSONWithCommandAndBuildFields(t *testing.T) {
	var buf bytes.Buffer
	base := zapr.NewLogger(New(0, &buf))
	l := WithValues(&base, RootCommandKey, "grub-wiz", SubCommandKey, "catalog")
	l.Info("rendered", TargetKey, "/etc/default/grub")

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	got := lines[0]
	assert.Equal(t, "rendered", got[MessageKey])
	assert.Equal(t, "grub-wiz", got[RootCommandKey])
	assert.Equal(t, "catalog", got[SubCommandKey])
	assert.Equal(t, "/etc/default/grub", got[TargetKey])
	assert.NotEmpty(t, got[GoVersionKey])
	assert.Contains(t, got, VersionKey)
	assert.Contains(t, got, TimeStampKey)
}

func TestNewDebugLevel(t *testing.T) {
	tests := []struct {
		name  string
		level int8
		want  int
	}{
		{"info drops V(1)", 0, 1},
		{"debug keeps V(1)", -1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := zapr.NewLogger(New(tt.level, &buf))
			l.Info("always")
			l.V(1).Info("probe details", "fstype", "crypto_LUKS")
			assert.Len(t, decodeLines(t, buf.Bytes()), tt.want)
		})
	}
}

func TestSetupFollowsRedirect(t *testing.T) {
	lgr := Setup(0, io.Discard)
	require.NotNil(t, lgr)
	assert.Same(t, lgr, Setup(0, os.Stderr), "Setup only runs once")

	var session bytes.Buffer
	prev := Redirect(&session)
	t.Cleanup(func() { Redirect(prev) })

	lgr.Info("session started")
	Sync()
	assert.Contains(t, session.String(), `"session started"`)

	Redirect(io.Discard)
	lgr.Info("after the session")
	assert.NotContains(t, session.String(), "after the session")
}

func TestContextCarriesLogger(t *testing.T) {
	base := logr.Discard()
	l := WithValues(&base, ScreenKey, "HOME")

	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Equal(t, ctx, WithLogger(ctx, l), "same logger keeps the context")

	assert.NotNil(t, FromContext(context.Background()))
	assert.NotSame(t, &base, WithValues(&base), "WithValues returns a copy")
}

func TestOpenFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	f, err := OpenFileSink(dir)
	require.NoError(t, err)

	l := zapr.NewLogger(New(0, f))
	l.Info("written to file", BackupKey, "20260101-120000-ABCD.orig.bak")
	require.NoError(t, f.Close())

	path := filepath.Join(dir, LogFileName)
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := decodeLines(t, data)
	require.Len(t, lines, 1)
	assert.Equal(t, "20260101-120000-ABCD.orig.bak", lines[0][BackupKey])

	f, err = OpenFileSink(dir)
	require.NoError(t, err)
	zapr.NewLogger(New(0, f)).Info("appended")
	require.NoError(t, f.Close())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, decodeLines(t, data), 2, "the log is appended to")
}

func TestIsIgnorableSyncError(t *testing.T) {
	assert.True(t, isIgnorableSyncError(fmt.Errorf("sync /dev/stderr: %w", syscall.ENOTTY)))
	assert.True(t, isIgnorableSyncError(fmt.Errorf("sync: %w", syscall.EINVAL)))
	assert.False(t, isIgnorableSyncError(fmt.Errorf("boom")))
}
