package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/grub-wiz/internal/catalog"
	"github.com/oakwood-commons/grub-wiz/internal/formatter"
	"github.com/oakwood-commons/grub-wiz/internal/wiz"
	"github.com/oakwood-commons/grub-wiz/pkg/settings"
)

var (
	catalogFormat string
	catalogHTML   bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the known GRUB parameters",
	Long: `Print every parameter grub-wiz knows, with its default, choices, edit
checks and guidance. Catalog overrides from the config file are applied.`,
	Example: "\n  grub-wiz catalog\n  grub-wiz catalog --format toml\n  grub-wiz catalog --html > grub-params.html\n",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := formatter.ParseFormat(catalogFormat)
		if err != nil {
			return err
		}
		if catalogHTML {
			f = formatter.FormatHTML
		}
		run := settings.FromContextOrDefault(cmd.Context())
		cfg, err := wiz.LoadConfig(wiz.ResolveConfigPath(run.ConfigFile, run.User.ConfigDir))
		if err != nil {
			return err
		}
		cat, err := catalog.Build(catalog.EmbeddedYAML(), cfg.Catalog)
		if err != nil {
			return fmt.Errorf("build catalog: %w", err)
		}
		out, err := formatter.Render(formatter.FromCatalog(cat), f)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

func init() { //nolint:gochecknoinits
	catalogCmd.Flags().StringVarP(&catalogFormat, "format", "f", string(formatter.FormatTree), "output format: "+formatter.FormatList())
	catalogCmd.Flags().BoolVar(&catalogHTML, "html", false, "shorthand for --format html")
}
