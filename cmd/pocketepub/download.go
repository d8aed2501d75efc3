package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/kerbaras/pocketepub/pkg/config"
	"github.com/kerbaras/pocketepub/pkg/errs"
	"github.com/kerbaras/pocketepub/pkg/logging"
	"github.com/kerbaras/pocketepub/pkg/services"
	"github.com/spf13/cobra"
)

type downloadFlags struct {
	destination string
	processOnly bool
	convertOnly bool
	workers     int
	coverPolicy string
	noHistory   bool
}

func newDownloadCmd(ctx *commandContext) *cobra.Command {
	var flags downloadFlags

	cmd := &cobra.Command{
		Use:   "download <chapter-url>",
		Short: "Download a chapter and build its EPUB",
		Long: `Download every page of a chapter, descramble it and package the result.

The chapter is stored in <dest>/<last segment of the URL>. Pages already on
disk are not downloaded again, so a failed run can simply be repeated.

Examples:
  pocketepub download https://pocket.shonenmagazine.com/episode/13932016480029113131
  pocketepub download <url> --dest ~/manga --workers 8
  pocketepub download <url> --process-only --convert-only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			controller, err := services.NewChapterController(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			done := make(chan struct{})
			go func() {
				defer close(done)
				printProgress(out, controller.GetProgressChannel())
			}()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := controller.Download(runCtx, services.Options{
				Source:      args[0],
				Destination: cfg.Paths.Destination,
				ProcessOnly: flags.processOnly,
				ConvertOnly: flags.convertOnly,
			})
			// Closing ends the progress stream.
			controller.Close()
			<-done

			if err != nil {
				return fmt.Errorf("%s failed: %w", describeMode(flags), err)
			}

			switch {
			case result.ArchivePath != "":
				fmt.Fprintf(out, "📖 EPUB created: %s (%d pages", result.ArchivePath, result.Pages)
				if result.Skipped > 0 {
					fmt.Fprintf(out, ", %d already on disk", result.Skipped)
				}
				fmt.Fprintln(out, ")")
			default:
				fmt.Fprintf(out, "✅ Descrambled %d pages in %s\n", result.Pages, result.Dir)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.destination, "dest", "d", "", "Parent directory for the chapter (default from config)")
	cmd.Flags().BoolVar(&flags.processOnly, "process-only", false, "Only descramble images already in the chapter directory")
	cmd.Flags().BoolVar(&flags.convertOnly, "convert-only", false, "Only package images already in the chapter directory")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Pages downloaded in parallel (default from config)")
	cmd.Flags().StringVar(&flags.coverPolicy, "cover-policy", "", "Descramble the cover: always, never or follow")
	cmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "Do not record the chapter in the history database")
	return cmd
}

func (f downloadFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if f.destination != "" {
		dest, err := config.ExpandPath(f.destination)
		if err != nil {
			return err
		}
		cfg.Paths.Destination = dest
	}
	if cmd.Flags().Changed("workers") {
		cfg.Download.Workers = f.workers
	}
	if f.coverPolicy != "" {
		cfg.Download.CoverPolicy = config.CoverPolicy(f.coverPolicy)
	}
	if f.noHistory {
		cfg.Paths.HistoryDB = ""
	}
	return cfg.Validate()
}

func describeMode(f downloadFlags) string {
	switch {
	case f.processOnly && f.convertOnly:
		return "process and convert"
	case f.processOnly:
		return "process"
	case f.convertOnly:
		return "convert"
	default:
		return "download"
	}
}

func printProgress(out io.Writer, progress <-chan services.Progress) {
	for p := range progress {
		switch p.Stage {
		case services.StageResolve:
			fmt.Fprintln(out, "🔍 Reading chapter metadata")
		case services.StageCover:
			fmt.Fprintln(out, "🖼  Fetching cover")
		case services.StagePages, services.StageDescramble:
			if p.Current > 0 {
				fmt.Fprintf(out, "  %s: %d/%d\n", p.Stage, p.Current, p.Total)
			}
		case services.StagePackage:
			fmt.Fprintf(out, "📦 Packaging %d pages\n", p.Total)
		case services.StageError:
			fmt.Fprintf(out, "❌ %s\n", errorLabel(p.Err))
		}
	}
}

func errorLabel(err error) string {
	if kind := errs.KindOf(err); kind != nil {
		return kind.Error()
	}
	return "error"
}
