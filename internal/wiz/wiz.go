// Package wiz holds one interactive session: the catalog, the values being
// edited, the validation engine, the review compiler, the screen stack and
// the backup and visibility stores. The UI drives it; nothing here touches
// the terminal.
package wiz

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/grub-wiz/internal/backup"
	"github.com/oakwood-commons/grub-wiz/internal/catalog"
	"github.com/oakwood-commons/grub-wiz/internal/cel"
	"github.com/oakwood-commons/grub-wiz/internal/grubfile"
	"github.com/oakwood-commons/grub-wiz/internal/menuentries"
	"github.com/oakwood-commons/grub-wiz/internal/nav"
	"github.com/oakwood-commons/grub-wiz/internal/privilege"
	"github.com/oakwood-commons/grub-wiz/internal/review"
	"github.com/oakwood-commons/grub-wiz/internal/session"
	"github.com/oakwood-commons/grub-wiz/internal/validate"
	"github.com/oakwood-commons/grub-wiz/internal/visibility"
)

// Backup tags used by automatic backups.
const (
	TagOrig       = "orig"
	TagPreWrite   = "pre-write"
	TagPreRestore = "pre-restore"
)

// Options configures New.
type Options struct {
	// Target is the settings file, normally /etc/default/grub.
	Target string
	// ConfigDir holds backups and hidden-items.yaml.
	ConfigDir string
	// UID and GID of the real user; files under ConfigDir are handed to them.
	UID, GID int
	Config   *Config
	// Discovery overrides Config.Discovery.Mode when set.
	Discovery menuentries.Mode
	// Source overrides the configured discovery command.
	Source menuentries.Source
	// Prober and Resolver override disk and path inspection.
	Prober   validate.Prober
	Resolver *validate.PathResolver
	// Writer overrides the target writer.
	Writer *grubfile.Writer
	Log    logr.Logger
}

// Wiz is the session context.
type Wiz struct {
	Target  string
	Config  *Config
	Catalog *catalog.Catalog
	State   *session.State
	Engine  *validate.Engine
	Hidden  *visibility.Store
	Backups *backup.Store
	Nav     *nav.Controller
	Review  *review.Compiler

	other    []string
	writer   *grubfile.Writer
	rules    *cel.Evaluator
	prober   validate.Prober
	resolver *validate.PathResolver
	log      logr.Logger
}

// New loads the catalog and the target and opens the stores. A missing
// target is an error; nothing is created.
func New(ctx context.Context, opts Options) (*Wiz, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = LoadConfig(""); err != nil {
			return nil, err
		}
	}
	cat, err := catalog.Build(catalog.EmbeddedYAML(), cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	w := &Wiz{
		Target:   opts.Target,
		Config:   cfg,
		Catalog:  cat,
		Nav:      nav.New(),
		Review:   review.New(cat),
		writer:   opts.Writer,
		prober:   opts.Prober,
		resolver: opts.Resolver,
		log:      opts.Log,
	}
	if w.log.GetSink() == nil {
		w.log = logr.Discard()
	}
	if w.writer == nil {
		w.writer = grubfile.NewWriter(opts.Target)
	}
	if len(cfg.Rules) > 0 {
		if w.rules, err = cel.NewEvaluator(cfg.Rules); err != nil {
			return nil, fmt.Errorf("custom rules: %w", err)
		}
	}

	mode := opts.Discovery
	if mode == "" {
		if mode, err = menuentries.ParseMode(cfg.Discovery.Mode); err != nil {
			return nil, err
		}
	}
	if mode != menuentries.ModeDisable {
		src := opts.Source
		if src == nil {
			src = cfg.Discovery.Source()
		}
		w.discover(ctx, src)
	}

	if w.Backups, err = backup.Open(opts.Target, opts.ConfigDir, opts.UID, opts.GID, w.log); err != nil {
		return nil, err
	}
	w.Hidden = visibility.Open(filepath.Join(opts.ConfigDir, visibility.FileName), visibility.Options{
		UID:      opts.UID,
		GID:      opts.GID,
		Defaults: cfg.Hidden.Params,
		Log:      w.log,
	})
	if err := w.Reinit(ctx); err != nil {
		return nil, err
	}
	if n := w.PurgeHidden(ctx); n > 0 {
		w.log.V(1).Info("purged stale hidden warnings", "count", n)
	}
	return w, nil
}

func (w *Wiz) discover(ctx context.Context, src menuentries.Source) {
	entries, err := src.Entries(ctx)
	if err != nil {
		if errors.Is(err, menuentries.ErrNoCommand) {
			w.log.V(1).Info("menu entry discovery skipped", "reason", err.Error())
		} else {
			w.log.Info("menu entry discovery failed", "error", err.Error())
		}
		return
	}
	for _, name := range w.Catalog.Names() {
		if !w.Catalog.MustGet(name).HasSpecial(catalog.SpecialMenuEntries) {
			continue
		}
		n, err := w.Catalog.AugmentEnum(name, entries)
		if err != nil {
			w.log.Info("cannot add menu entries", "param", name, "error", err.Error())
			continue
		}
		w.log.V(1).Info("added menu entries", "param", name, "count", n)
	}
}

// Reinit rereads the target and starts over: new values, a fresh engine
// that probes the disks again, no review session and only HOME on the stack.
func (w *Wiz) Reinit(ctx context.Context) error {
	f, _, err := grubfile.Read(w.Target, w.Catalog.Has)
	if err != nil {
		return err
	}
	w.State = session.New(w.Catalog, f.Vals)
	w.other = f.Other
	w.Engine = w.newEngine()
	w.Review.Reset()
	w.Nav.Reset()
	w.log.V(1).Info("session loaded", "target", w.Target, "params", len(f.Vals), "other_lines", len(f.Other))
	return nil
}

func (w *Wiz) newEngine() *validate.Engine {
	opts := []validate.Option{validate.WithLogger(w.log)}
	if w.prober != nil {
		opts = append(opts, validate.WithProber(w.prober))
	}
	if w.resolver != nil {
		opts = append(opts, validate.WithResolver(*w.resolver))
	}
	if w.rules != nil {
		opts = append(opts, validate.WithCustomRules(w.rules))
	}
	return validate.New(w.Catalog, opts...)
}

// Warnings validates the current values.
func (w *Wiz) Warnings(ctx context.Context) validate.Warnings {
	return w.Engine.Warnings(ctx, w.State.Values())
}

// ReviewRows compiles the REVIEW body, starting a review session if none is
// active.
func (w *Wiz) ReviewRows(ctx context.Context, showHidden bool) []review.Row {
	return w.Review.Compile(w.State, w.Warnings(ctx), w.Hidden, showHidden)
}

// NeedsReview reports whether writing should go through REVIEW first. The
// must-review list is built from changes, so without any there is nothing
// to show.
func (w *Wiz) NeedsReview() bool {
	return w.State.ChangeCount() > 0
}

// Render builds the new target content from the current values.
func (w *Wiz) Render() []byte {
	return grubfile.Render(w.Catalog.Names(), w.State.Values(), w.other)
}

// StartupBackup makes sure the target is backed up. With no backups at all
// it stores one tagged orig. It returns true when the current content differs
// from every stored backup and the caller should ask the user for a tag.
func (w *Wiz) StartupBackup() (needTag bool, err error) {
	recs, err := w.Backups.List()
	if err != nil {
		return false, err
	}
	if len(recs) == 0 {
		if _, _, err := w.Backups.Create(TagOrig); err != nil {
			return false, err
		}
		return false, nil
	}
	sum, err := w.Backups.CurrentChecksum()
	if err != nil {
		return false, err
	}
	_, found, err := w.Backups.Find(sum)
	if err != nil {
		return false, err
	}
	return !found, nil
}

// BackupCurrent stores the target under tag; identical content already
// stored is returned with created false.
func (w *Wiz) BackupCurrent(tag string) (backup.Record, bool, error) {
	return w.Backups.Create(tag)
}

// Outcome reports what a commit or restore did.
type Outcome struct {
	// Output is the regeneration command's combined output.
	Output string
	// Saved is the backup of the replaced content, when one was created.
	Saved    backup.Record
	HasSaved bool
}

// Commit writes the current values to the target and regenerates the boot
// menu. The replaced content is backed up first, unless an identical backup
// exists, and nothing is written when that backup cannot be made. When the
// write or regeneration fails the previous content is put back and a backup
// created for this commit is removed, so a failed commit leaves the target,
// the backups and the session as they were. On success the session is
// reinitialised from disk.
func (w *Wiz) Commit(ctx context.Context) (Outcome, error) {
	if err := privilege.CheckWritable(w.Target); err != nil {
		return Outcome{}, err
	}
	return w.replace(ctx, TagPreWrite, func() error {
		return w.writer.Commit(w.Render())
	})
}

// Restore copies rec over the target and regenerates the boot menu, with the
// same backup and rollback rules as Commit.
func (w *Wiz) Restore(ctx context.Context, rec backup.Record) (Outcome, error) {
	if err := privilege.CheckWritable(w.Target); err != nil {
		return Outcome{}, fmt.Errorf("restore %s: %w", rec.Name(), err)
	}
	return w.replace(ctx, TagPreRestore, func() error {
		return w.Backups.Restore(rec)
	})
}

func (w *Wiz) readTarget() ([]byte, error) {
	data, err := os.ReadFile(w.Target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", w.Target, grubfile.ErrTargetMissing)
		}
		return nil, fmt.Errorf("read %s: %w", w.Target, err)
	}
	return data, nil
}

// replace backs up the target under tag, runs write and regenerates. Any
// failure after the backup undoes both.
func (w *Wiz) replace(ctx context.Context, tag string, write func() error) (Outcome, error) {
	prev, err := w.readTarget()
	if err != nil {
		return Outcome{}, err
	}
	rec, created, err := w.Backups.CreateFrom(prev, tag)
	if err != nil {
		return Outcome{}, fmt.Errorf("back up %s before replacing it: %w", w.Target, err)
	}
	var res Outcome
	if created {
		res.Saved, res.HasSaved = rec, true
	}
	undo := func(out string, cause error) (Outcome, error) {
		if created {
			if err := w.Backups.Delete(rec); err != nil {
				w.log.Error(err, "cannot remove backup of failed commit", "backup", rec.Name())
			}
		}
		if rbErr := grubfile.WriteAtomic(w.Target, prev, 0o644); rbErr != nil {
			w.log.Error(rbErr, "rollback failed", "target", w.Target)
			return Outcome{Output: out}, errors.Join(cause, fmt.Errorf("rollback %s: %w", w.Target, rbErr))
		}
		w.log.Info("previous content restored", "target", w.Target, "error", cause.Error())
		return Outcome{Output: out}, cause
	}

	if err := write(); err != nil {
		return undo("", err)
	}
	out, err := w.writer.Regenerate(ctx)
	if err != nil {
		return undo(out, err)
	}
	res.Output = out
	if err := w.Reinit(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// ListBackups returns backups newest first.
func (w *Wiz) ListBackups() ([]backup.Record, error) {
	return w.Backups.List()
}

// DeleteBackup removes one backup. The caller has already confirmed.
func (w *Wiz) DeleteBackup(rec backup.Record) error {
	return w.Backups.Delete(rec)
}

// PurgeHidden forgets hidden warnings the engine no longer produces.
func (w *Wiz) PurgeHidden(ctx context.Context) int {
	return w.Hidden.PurgeOrphanKeys(w.Engine.AllKeys(ctx, w.State.Values()))
}

// Close flushes the visibility store.
func (w *Wiz) Close() error {
	return w.Hidden.WriteIfDirty()
}
