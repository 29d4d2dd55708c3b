// Package cmd is the grub-wiz command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oakwood-commons/grub-wiz/internal/catalog"
	"github.com/oakwood-commons/grub-wiz/internal/cel"
	"github.com/oakwood-commons/grub-wiz/internal/menuentries"
	"github.com/oakwood-commons/grub-wiz/internal/privilege"
	"github.com/oakwood-commons/grub-wiz/internal/ui"
	"github.com/oakwood-commons/grub-wiz/internal/validate"
	"github.com/oakwood-commons/grub-wiz/internal/wiz"
	"github.com/oakwood-commons/grub-wiz/pkg/logger"
	"github.com/oakwood-commons/grub-wiz/pkg/settings"
)

// errNotTerminal is returned when the interactive session has no terminal.
var errNotTerminal = errors.New("grub-wiz needs an interactive terminal (try --validator-demo or the catalog command)")

var (
	targetPath    string
	configFile    string
	discovery     discoveryFlag
	validatorDemo bool
	debug         bool
	noColor       bool
	expert        bool

	// logCloser is the session log file, closed by Execute.
	logCloser io.Closer
)

// Swapped in tests.
var (
	isTerminal = func() bool {
		return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	}
	runTUI      = ui.Run
	realUser    = settings.LookupRealUser
	openLogSink = logger.OpenFileSink
)

var rootCmd = &cobra.Command{
	Use:   settings.CliBinaryName,
	Short: "grub-wiz - review and edit /etc/default/grub safely",
	Long: `grub-wiz edits the GRUB settings file one parameter at a time: cycle known
values, edit free-form ones against their pattern, review warnings before
writing, and restore earlier versions from its own backups.

Backups, hidden items and the session log live in ~/.config/grub-wiz of the
invoking user, also under sudo. Writing and restoring need root.`,
	Example:       "\n  sudo grub-wiz\n  grub-wiz --target ./grub.sample\n  grub-wiz --validator-demo\n  grub-wiz --discovery show\n  grub-wiz catalog --format md\n",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		run := &settings.Run{
			TargetPath: targetPath,
			ConfigFile: configFile,
			Discovery:  discovery.String(),
			Expert:     expert,
			NoColor:    noColor || os.Getenv("NO_COLOR") != "",
			User:       realUser(),
		}
		if debug {
			run.MinLogLevel = -1
		}

		lgr := logger.Setup(run.MinLogLevel, os.Stderr)
		l := logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = logger.WithLogger(ctx, l)
		cmd.SetContext(settings.IntoContext(ctx, run))
		return nil
	},
	RunE: runRoot,
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	run := settings.FromContextOrDefault(ctx)
	lgr := *logger.FromContext(ctx)

	cfg, err := wiz.LoadConfig(wiz.ResolveConfigPath(run.ConfigFile, run.User.ConfigDir))
	if err != nil {
		return err
	}
	mode := discovery.mode
	if mode == "" {
		if mode, err = menuentries.ParseMode(cfg.Discovery.Mode); err != nil {
			return err
		}
	}

	switch {
	case validatorDemo:
		return runValidatorDemo(ctx, cmd.OutOrStdout(), cfg, lgr)
	case mode == menuentries.ModeShow:
		return runDiscoveryShow(ctx, cmd.OutOrStdout(), cfg)
	}

	if !isTerminal() {
		return errNotTerminal
	}
	// The session owns the terminal from here on, so logs go to a file.
	if f, err := openLogSink(run.User.ConfigDir); err == nil {
		_ = privilege.HandOver(f.Name(), run.User.UID, run.User.GID)
		logger.Redirect(f)
		logCloser = f
	} else {
		lgr.Info("session log unavailable, logging to stderr", "error", err.Error())
	}
	if !privilege.IsRoot() {
		lgr.Info("running unprivileged; write and restore will be refused", logger.TargetKey, run.TargetPath)
	}
	w, err := wiz.New(ctx, wiz.Options{
		Target:    run.TargetPath,
		ConfigDir: run.User.ConfigDir,
		UID:       run.User.UID,
		GID:       run.User.GID,
		Config:    cfg,
		Discovery: mode,
		Log:       lgr,
	})
	if err != nil {
		return err
	}
	return runTUI(ctx, w, ui.Options{NoColor: run.NoColor, Expert: run.Expert, Log: lgr})
}

// runValidatorDemo prints the warnings of each canned scenario, applied
// over the catalog defaults.
func runValidatorDemo(ctx context.Context, out io.Writer, cfg *wiz.Config, lgr logr.Logger) error {
	cat, err := catalog.Build(catalog.EmbeddedYAML(), cfg.Catalog)
	if err != nil {
		return fmt.Errorf("build catalog: %w", err)
	}
	opts := []validate.Option{
		validate.WithLogger(lgr),
		validate.WithProber(validate.StaticProber{}),
	}
	if len(cfg.Rules) > 0 {
		ev, err := cel.NewEvaluator(cfg.Rules)
		if err != nil {
			return fmt.Errorf("custom rules: %w", err)
		}
		opts = append(opts, validate.WithCustomRules(ev))
	}
	return validate.New(cat, opts...).Demo(ctx, out, cat.Defaults())
}

// runDiscoveryShow prints the boot menu titles discovery would offer.
func runDiscoveryShow(ctx context.Context, out io.Writer, cfg *wiz.Config) error {
	entries, err := cfg.Discovery.Source().Entries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintln(out, e); err != nil {
			return err
		}
	}
	return nil
}

// cliVersionString is the version line of both `version` and --version.
func cliVersionString() string {
	v := settings.VersionInformation
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime, runtime.Version())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print grub-wiz version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), cliVersionString())
		return err
	},
}

func init() { //nolint:gochecknoinits
	rootCmd.Flags().StringVar(&targetPath, "target", settings.DefaultTargetPath, "GRUB settings file to edit")
	rootCmd.PersistentFlags().StringVar(&configFile, "config-file", "", "path to a YAML config file (default ~/.config/grub-wiz/config.yaml)")
	rootCmd.Flags().Var(&discovery, "discovery", "boot menu discovery: enable, disable, or show (print titles and exit); default from config")
	rootCmd.Flags().BoolVar(&validatorDemo, "validator-demo", false, "print the warnings of canned scenarios and exit")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable color output")
	rootCmd.Flags().BoolVar(&expert, "expert", false, "enable [E]xpert edit (any single shell word)")
	rootCmd.Version = cliVersionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the command line.
func Execute() error {
	err := rootCmd.Execute()
	logger.Sync()
	if logCloser != nil {
		logger.Redirect(os.Stderr)
		_ = logCloser.Close()
		logCloser = nil
	}
	return err
}
