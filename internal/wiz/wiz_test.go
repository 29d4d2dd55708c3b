package wiz

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/grub-wiz/internal/backup"
	"github.com/oakwood-commons/grub-wiz/internal/catalog"
	"github.com/oakwood-commons/grub-wiz/internal/grubfile"
	"github.com/oakwood-commons/grub-wiz/internal/menuentries"
	"github.com/oakwood-commons/grub-wiz/internal/nav"
	"github.com/oakwood-commons/grub-wiz/internal/validate"
	"github.com/oakwood-commons/grub-wiz/internal/visibility"
)

const sampleTarget = `# If you change this file, run 'update-grub' afterwards.
GRUB_DEFAULT=0
GRUB_TIMEOUT=10
GRUB_TIMEOUT_STYLE=menu
GRUB_CMDLINE_LINUX=""
GRUB_CUSTOM_THING=yes
`

type fixedEntries []string

func (f fixedEntries) Entries(context.Context) ([]string, error) { return f, nil }

type failingEntries struct{}

func (failingEntries) Entries(context.Context) ([]string, error) {
	return nil, errors.New("exit status 1")
}

type fixture struct {
	target    string
	configDir string
	regen     []string
	regenErr  error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		target:    filepath.Join(dir, "grub"),
		configDir: filepath.Join(dir, "config"),
	}
	require.NoError(t, os.WriteFile(f.target, []byte(sampleTarget), 0o644))
	return f
}

func (f *fixture) open(t *testing.T, mutate ...func(*Options)) *Wiz {
	t.Helper()
	writer := grubfile.NewWriter(f.target)
	writer.Regen = []string{"update-grub"}
	writer.Run = func(_ context.Context, name string, _ ...string) ([]byte, error) {
		f.regen = append(f.regen, name)
		if f.regenErr != nil {
			return []byte("grub-mkconfig: syntax error"), f.regenErr
		}
		return []byte("done"), nil
	}
	noFiles := validate.PathResolver{Bases: validate.SearchBases, Exists: func(string) bool { return false }}
	opts := Options{
		Target:    f.target,
		ConfigDir: f.configDir,
		UID:       -1,
		GID:       -1,
		Discovery: menuentries.ModeDisable,
		Prober:    validate.StaticProber{},
		Resolver:  &noFiles,
		Writer:    writer,
	}
	for _, m := range mutate {
		m(&opts)
	}
	w, err := New(context.Background(), opts)
	require.NoError(t, err)
	return w
}

func (f *fixture) read(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.target)
	require.NoError(t, err)
	return string(data)
}

func TestNewLoadsTarget(t *testing.T) {
	f := newFixture(t)
	w := f.open(t)

	assert.Equal(t, "10", w.State.Get("GRUB_TIMEOUT"))
	assert.Equal(t, `""`, w.State.Get("GRUB_CMDLINE_LINUX"))
	assert.Equal(t, w.Catalog.MustGet("GRUB_GFXMODE").Default, w.State.Get("GRUB_GFXMODE"), "unset params take their default")
	assert.Zero(t, w.State.ChangeCount())
	assert.True(t, w.Nav.IsCurrent(nav.Home))
	assert.True(t, w.Hidden.IsHiddenParam("GRUB_BADRAM"), "first run seeds default hidden params")
}

func TestNewMissingTarget(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.target))
	_, err := New(context.Background(), Options{
		Target:    f.target,
		ConfigDir: f.configDir,
		Discovery: menuentries.ModeDisable,
		Prober:    validate.StaticProber{},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, grubfile.ErrTargetMissing))
	_, statErr := os.Stat(f.target)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "target must not be created")
}

func TestDiscoveryAugmentsDefault(t *testing.T) {
	f := newFixture(t)
	w := f.open(t, func(o *Options) {
		o.Discovery = menuentries.ModeEnable
		o.Source = fixedEntries{"Ubuntu", "Windows Boot Manager"}
	})
	choices := w.Catalog.MustGet("GRUB_DEFAULT").ChoiceValues()
	assert.Contains(t, choices, `"Ubuntu"`)
	assert.Contains(t, choices, `"Windows Boot Manager"`)
	assert.NotContains(t, w.Catalog.MustGet("GRUB_TIMEOUT").ChoiceValues(), `"Ubuntu"`)

	// a failing supplier only costs the extra choices
	g := newFixture(t)
	w = g.open(t, func(o *Options) {
		o.Discovery = menuentries.ModeEnable
		o.Source = failingEntries{}
	})
	assert.NotContains(t, w.Catalog.MustGet("GRUB_DEFAULT").ChoiceValues(), `"Ubuntu"`)
}

func TestConfigOverridesShapeCatalog(t *testing.T) {
	f := newFixture(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	def := "hidden"
	cfg.Catalog.Delete = []string{"GRUB_BADRAM"}
	cfg.Catalog.Override = map[string]catalog.ParamOverride{"GRUB_TIMEOUT_STYLE": {Default: &def}}

	w := f.open(t, func(o *Options) { o.Config = cfg })
	assert.False(t, w.Catalog.Has("GRUB_BADRAM"))
	assert.Equal(t, "hidden", w.Catalog.MustGet("GRUB_TIMEOUT_STYLE").Default)
}

func TestStartupBackup(t *testing.T) {
	f := newFixture(t)
	w := f.open(t)

	need, err := w.StartupBackup()
	require.NoError(t, err)
	assert.False(t, need)
	recs, err := w.ListBackups()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, TagOrig, recs[0].Tag)

	need, err = w.StartupBackup()
	require.NoError(t, err)
	assert.False(t, need, "unchanged content is already backed up")

	require.NoError(t, os.WriteFile(f.target, []byte(sampleTarget+"GRUB_GFXMODE=auto\n"), 0o644))
	need, err = w.StartupBackup()
	require.NoError(t, err)
	assert.True(t, need)

	rec, created, err := w.BackupCurrent("custom")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "custom", rec.Tag)

	need, err = w.StartupBackup()
	require.NoError(t, err)
	assert.False(t, need)
}

func TestCommit(t *testing.T) {
	f := newFixture(t)
	w := f.open(t)
	w.State.Set("GRUB_TIMEOUT", "2")
	require.Equal(t, 1, w.State.ChangeCount())

	res, err := w.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", res.Output)
	assert.Equal(t, []string{"update-grub"}, f.regen)

	got := f.read(t)
	assert.True(t, strings.HasPrefix(got, grubfile.BannerPrefix))
	assert.Contains(t, got, "GRUB_TIMEOUT=2\n")
	assert.Contains(t, got, "GRUB_CUSTOM_THING=yes\n")
	assert.Contains(t, got, "# If you change this file")

	require.True(t, res.HasSaved, "replaced content was not backed up before")
	assert.Equal(t, TagPreWrite, res.Saved.Tag)
	assert.Equal(t, backup.Checksum([]byte(sampleTarget)), res.Saved.Checksum)

	assert.Zero(t, w.State.ChangeCount(), "session is reloaded from disk")
	assert.Equal(t, "2", w.State.Get("GRUB_TIMEOUT"))
}

func TestCommitSkipsBackupOfBackedUpContent(t *testing.T) {
	f := newFixture(t)
	w := f.open(t)
	_, err := w.StartupBackup()
	require.NoError(t, err)

	w.State.Set("GRUB_TIMEOUT", "3")
	res, err := w.Commit(context.Background())
	require.NoError(t, err)
	assert.False(t, res.HasSaved)
	recs, err := w.ListBackups()
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestCommitRegenerationFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.regenErr = errors.New("exit status 1")
	w := f.open(t)
	w.State.Set("GRUB_TIMEOUT", "2")

	res, err := w.Commit(context.Background())
	require.Error(t, err)
	assert.Contains(t, res.Output, "syntax error")
	assert.Equal(t, sampleTarget, f.read(t), "target is put back")

	recs, err := w.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, recs, "no backup is created by a failed commit")
	assert.Equal(t, "2", w.State.Get("GRUB_TIMEOUT"), "session keeps the edit")
	assert.Equal(t, 1, w.State.ChangeCount())
}

func TestCommitRefusesWhenBackupFails(t *testing.T) {
	f := newFixture(t)
	changed := strings.Replace(sampleTarget, "GRUB_TIMEOUT=10", "GRUB_TIMEOUT=33", 1)
	require.NoError(t, os.WriteFile(f.target, []byte(changed), 0o644))
	w := f.open(t)

	notADir := filepath.Join(t.TempDir(), "backups")
	require.NoError(t, os.WriteFile(notADir, nil, 0o600))
	w.Backups.Dir = notADir

	w.State.Set("GRUB_TIMEOUT", "2")
	res, err := w.Commit(context.Background())
	require.Error(t, err)
	assert.False(t, res.HasSaved)
	assert.Equal(t, changed, f.read(t), "target is untouched")
	assert.Empty(t, f.regen, "no regeneration without a backup")
	assert.Equal(t, "2", w.State.Get("GRUB_TIMEOUT"), "session keeps the edit")
}

func TestRestoreRegenerationFailureRemovesNewBackup(t *testing.T) {
	f := newFixture(t)
	w := f.open(t)
	_, err := w.StartupBackup()
	require.NoError(t, err)
	recs, err := w.ListBackups()
	require.NoError(t, err)
	orig := recs[0]

	w.State.Set("GRUB_TIMEOUT", "2")
	_, err = w.Commit(context.Background())
	require.NoError(t, err)
	committed := f.read(t)
	before, err := w.ListBackups()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(f.target, []byte(committed+"GRUB_EXTRA=1\n"), 0o644))
	f.regenErr = errors.New("exit status 1")
	_, err = w.Restore(context.Background(), orig)
	require.Error(t, err)
	assert.Equal(t, committed+"GRUB_EXTRA=1\n", f.read(t))

	after, err := w.ListBackups()
	require.NoError(t, err)
	assert.Equal(t, before, after, "backups remain as before")
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	w := f.open(t)
	_, err := w.StartupBackup()
	require.NoError(t, err)
	recs, err := w.ListBackups()
	require.NoError(t, err)
	orig := recs[0]

	w.State.Set("GRUB_TIMEOUT", "2")
	_, err = w.Commit(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, sampleTarget, f.read(t))

	w.State.Set("GRUB_TIMEOUT", "7")
	res, err := w.Restore(context.Background(), orig)
	require.NoError(t, err)
	assert.Equal(t, sampleTarget, f.read(t))
	assert.True(t, res.HasSaved)
	assert.Equal(t, TagPreRestore, res.Saved.Tag)
	assert.Equal(t, "10", w.State.Get("GRUB_TIMEOUT"))
	assert.Zero(t, w.State.ChangeCount())
}

func TestDeleteBackup(t *testing.T) {
	f := newFixture(t)
	w := f.open(t)
	_, err := w.StartupBackup()
	require.NoError(t, err)
	recs, err := w.ListBackups()
	require.NoError(t, err)

	require.NoError(t, w.DeleteBackup(recs[0]))
	recs, err = w.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestNeedsReviewAndRows(t *testing.T) {
	f := newFixture(t)
	w := f.open(t)
	ctx := context.Background()
	assert.False(t, w.NeedsReview(), "warnings alone have no review rows")

	w.State.Set("GRUB_TIMEOUT", "0")
	w.State.Set("GRUB_TIMEOUT_STYLE", "hidden")
	assert.True(t, w.NeedsReview())
	rows := w.ReviewRows(ctx, false)
	assert.NotEmpty(t, rows)
	assert.True(t, w.Review.Active())

	require.NoError(t, w.Reinit(ctx))
	assert.False(t, w.Review.Active(), "reinit ends the review session")
}

func TestPurgeAndClose(t *testing.T) {
	f := newFixture(t)
	w := f.open(t)
	stale := visibility.WarnKey("GRUB_TIMEOUT", "no longer produced")
	w.Hidden.HideWarn(stale)

	assert.Equal(t, 1, w.PurgeHidden(context.Background()))
	assert.False(t, w.Hidden.IsHiddenWarn(stale))

	require.NoError(t, w.Close())
	assert.Zero(t, w.Hidden.DirtyCount())
	data, err := os.ReadFile(filepath.Join(f.configDir, visibility.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "GRUB_BADRAM")
	assert.NotContains(t, string(data), "no longer produced")
}
