package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/grub-wiz/internal/wiz"
	"github.com/oakwood-commons/grub-wiz/pkg/settings"
)

// configCmd groups configuration-related subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect grub-wiz configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the merged configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		run := settings.FromContextOrDefault(cmd.Context())
		cfg, err := wiz.LoadConfig(wiz.ResolveConfigPath(run.ConfigFile, run.User.ConfigDir))
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var configDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the built-in configuration, a starting point for config.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := cmd.OutOrStdout().Write(wiz.DefaultConfigYAML())
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in effect, or nothing when only defaults apply",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		run := settings.FromContextOrDefault(cmd.Context())
		if p := wiz.ResolveConfigPath(run.ConfigFile, run.User.ConfigDir); p != "" {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits
	configCmd.AddCommand(configGetCmd, configDefaultCmd, configPathCmd)
}
