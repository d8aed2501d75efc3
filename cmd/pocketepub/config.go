package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/kerbaras/pocketepub/pkg/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigValidateCmd(ctx))
	return configCmd
}

func newConfigInitCmd() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCmd(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and print the effective values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source = "defaults (no file at " + path + ")"
			}
			fmt.Fprintf(out, "Configuration valid: %s\n", source)
			fmt.Fprintf(out, "  destination:  %s\n", cfg.Paths.Destination)
			fmt.Fprintf(out, "  history:      %s\n", valueOr(cfg.Paths.HistoryDB, "disabled"))
			fmt.Fprintf(out, "  workers:      %d\n", cfg.Download.Workers)
			fmt.Fprintf(out, "  cover policy: %s\n", cfg.Download.CoverPolicy)
			fmt.Fprintf(out, "  archive:      %s (%s, rtl=%t)\n", cfg.Archive.Filename, cfg.Archive.Language, cfg.Archive.RightToLeft)
			return nil
		},
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
