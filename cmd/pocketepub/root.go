package cmd

import (
	"fmt"
	"os"

	"github.com/kerbaras/pocketepub/pkg/app"
	"github.com/kerbaras/pocketepub/pkg/config"
	"github.com/kerbaras/pocketepub/pkg/logging"
	"github.com/spf13/cobra"
)

// commandContext carries values shared by every command.
type commandContext struct {
	configPath string
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	cfg, _, _, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:   "pocketepub",
		Short: "Turn scrambled web chapters into EPUBs",
		Long:  "Download a chapter, reverse its tile scramble and package the pages into a right-to-left EPUB",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Launch TUI by default
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			logger, closer, err := logging.NewFileFromConfig(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			return app.NewApp(cfg, logger).Run()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file (default ~/.config/pocketepub/config.toml)")

	rootCmd.AddCommand(newDownloadCmd(ctx))
	rootCmd.AddCommand(newListCmd(ctx))
	rootCmd.AddCommand(newConfigCmd(ctx))
	return rootCmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
