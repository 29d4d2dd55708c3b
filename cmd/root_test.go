package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/grub-wiz/internal/formatter"
	"github.com/oakwood-commons/grub-wiz/internal/ui"
	"github.com/oakwood-commons/grub-wiz/internal/wiz"
	"github.com/oakwood-commons/grub-wiz/pkg/settings"
)

type cliEnv struct {
	dir       string
	configDir string
	sinkOpens int
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{dir: dir, configDir: filepath.Join(dir, ".config", "grub-wiz")}
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("NO_COLOR", "")

	origUser, origSink, origTerm, origTUI := realUser, openLogSink, isTerminal, runTUI
	t.Cleanup(func() {
		realUser, openLogSink, isTerminal, runTUI = origUser, origSink, origTerm, origTUI
	})
	realUser = func() settings.RealUser {
		return settings.RealUser{Name: "tester", UID: -1, GID: -1, Home: dir, ConfigDir: env.configDir}
	}
	openLogSink = func(string) (*os.File, error) {
		env.sinkOpens++
		return nil, errors.New("no session log in tests")
	}
	isTerminal = func() bool { return false }
	runTUI = func(context.Context, *wiz.Wiz, ui.Options, ...tea.ProgramOption) error {
		t.Fatal("TUI must not start")
		return nil
	}
	return env
}

func (e *cliEnv) write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func resetFlags() {
	targetPath = settings.DefaultTargetPath
	configFile = ""
	discovery = discoveryFlag{}
	validatorDemo = false
	debug = false
	noColor = false
	expert = false
	catalogFormat = string(formatter.FormatTree)
	catalogHTML = false
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	newCLIEnv(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "grub-wiz "), out)
	assert.Contains(t, out, settings.VersionInformation.BuildVersion)
}

func TestRootFlagVersion(t *testing.T) {
	newCLIEnv(t)
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, cliVersionString()+"\n", out)
}

func TestValidatorDemo(t *testing.T) {
	newCLIEnv(t)
	out, err := execute(t, "--validator-demo")
	require.NoError(t, err)
	assert.Contains(t, out, "DEFAULT=saved without SAVEDEFAULT=true")
	assert.Contains(t, out, "Clean config - no issues")
	assert.Contains(t, out, "****")
}

func TestDiscoveryShow(t *testing.T) {
	env := newCLIEnv(t)
	grubCfg := env.write(t, "grub.cfg", `menuentry 'Ubuntu' --class ubuntu {
	linux /vmlinuz
}
submenu 'Advanced options for Ubuntu' {
	menuentry 'Ubuntu, recovery' {
	}
}
`)
	cfg := env.write(t, "config.yaml", "discovery:\n  grub_cfg: "+grubCfg+"\n")

	out, err := execute(t, "--config-file", cfg, "--discovery", "show")
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu\nAdvanced options for Ubuntu\n", out)
	assert.Zero(t, env.sinkOpens, "non-interactive runs log to stderr")
}

func TestDiscoveryShowFromConfig(t *testing.T) {
	env := newCLIEnv(t)
	isTerminal = func() bool { return true }
	grubCfg := env.write(t, "grub.cfg", "menuentry 'Fedora' {\n}\n")
	cfg := env.write(t, "config.yaml", "discovery:\n  mode: show\n  grub_cfg: "+grubCfg+"\n")

	out, err := execute(t, "--config-file", cfg)
	require.NoError(t, err)
	assert.Equal(t, "Fedora\n", out)
	assert.Zero(t, env.sinkOpens, "show mode from the config logs to stderr")

	cfg = env.write(t, "missing.yaml", "discovery:\n  mode: show\n  grub_cfg: "+filepath.Join(env.dir, "missing.cfg")+"\n")
	_, err = execute(t, "--config-file", cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDiscoveryFlagRejectsUnknownMode(t *testing.T) {
	newCLIEnv(t)
	_, err := execute(t, "--discovery", "sometimes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid discovery mode")
}

func TestRootNeedsTerminal(t *testing.T) {
	env := newCLIEnv(t)
	target := env.write(t, "grub", "GRUB_TIMEOUT=7\n")

	_, err := execute(t, "--target", target, "--discovery", "disable")
	assert.ErrorIs(t, err, errNotTerminal)
}

func TestRootStartsSession(t *testing.T) {
	env := newCLIEnv(t)
	target := env.write(t, "grub", "GRUB_TIMEOUT=7\n")
	isTerminal = func() bool { return true }

	var got *wiz.Wiz
	var gotOpts ui.Options
	runTUI = func(_ context.Context, w *wiz.Wiz, opts ui.Options, _ ...tea.ProgramOption) error {
		got, gotOpts = w, opts
		return nil
	}

	_, err := execute(t, "--target", target, "--discovery", "disable", "--expert", "--no-color")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, target, got.Target)
	assert.Equal(t, "7", got.State.Get("GRUB_TIMEOUT"))
	assert.True(t, strings.HasPrefix(got.Backups.Dir, env.configDir), got.Backups.Dir)
	assert.True(t, gotOpts.Expert)
	assert.True(t, gotOpts.NoColor)
	assert.Equal(t, 1, env.sinkOpens, "the session asks for its log file")
}

func TestRootMissingTarget(t *testing.T) {
	env := newCLIEnv(t)
	isTerminal = func() bool { return true }

	_, err := execute(t, "--target", filepath.Join(env.dir, "nope"), "--discovery", "disable")
	require.Error(t, err)
}

func TestRootRejectsBadConfig(t *testing.T) {
	env := newCLIEnv(t)
	cfg := env.write(t, "config.yaml", "ui:\n  tick_seconds: 0\n")

	_, err := execute(t, "--config-file", cfg, "--validator-demo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestCatalogCommand(t *testing.T) {
	newCLIEnv(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"catalog"}, "GRUB_TIMEOUT="},
		{[]string{"catalog", "--format", "yaml"}, "sections:"},
		{[]string{"catalog", "-f", "toml"}, "[[sections]]"},
		{[]string{"catalog", "--format", "md"}, "### GRUB_TIMEOUT"},
		{[]string{"catalog", "--html"}, "<html"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}

	_, err := execute(t, "catalog", "--format", "json")
	require.Error(t, err)
}

func TestCatalogAppliesOverrides(t *testing.T) {
	env := newCLIEnv(t)
	cfg := env.write(t, "config.yaml", "catalog:\n  delete: [GRUB_BADRAM]\n  override:\n    GRUB_TIMEOUT:\n      default: \"15\"\n")

	out, err := execute(t, "--config-file", cfg, "catalog")
	require.NoError(t, err)
	assert.NotContains(t, out, "GRUB_BADRAM")
	assert.Contains(t, out, "GRUB_TIMEOUT=15")
}

func TestConfigCommands(t *testing.T) {
	env := newCLIEnv(t)

	out, err := execute(t, "config", "default")
	require.NoError(t, err)
	assert.Equal(t, string(wiz.DefaultConfigYAML()), out)

	out, err = execute(t, "config", "path")
	require.NoError(t, err)
	assert.Empty(t, out)

	cfg := env.write(t, "config.yaml", "ui:\n  theme: light\n")
	out, err = execute(t, "config", "path", "--config-file", cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg+"\n", out)

	out, err = execute(t, "config", "get", "--config-file", cfg)
	require.NoError(t, err)
	var merged wiz.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &merged))
	assert.Equal(t, "light", merged.UI.Theme)
	assert.Equal(t, 3, merged.UI.TickSeconds)
}
