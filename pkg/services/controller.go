package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kerbaras/pocketepub/pkg/config"
	"github.com/kerbaras/pocketepub/pkg/data"
	"github.com/kerbaras/pocketepub/pkg/integrations"
	"github.com/kerbaras/pocketepub/pkg/sources"
	"github.com/kerbaras/pocketepub/pkg/utils"
)

// ChapterController wires the pipeline from configuration and owns the
// history database.
type ChapterController struct {
	cfg        *config.Config
	repo       *data.Repository
	downloader *Downloader
}

// NewChapterController builds the production pipeline for cfg. The history
// database is opened when cfg.Paths.HistoryDB is set.
func NewChapterController(cfg *config.Config, logger *slog.Logger) (*ChapterController, error) {
	api := utils.NewAPI(cfg.Download.UserAgent, time.Duration(cfg.Download.TimeoutSeconds)*time.Second)

	var repo *data.Repository
	var history Repository
	if cfg.Paths.HistoryDB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Paths.HistoryDB), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
		var err error
		repo, err = data.NewDuckDBRepository(cfg.Paths.HistoryDB)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		history = repo
	}

	downloader := NewDownloader(
		cfg,
		sources.NewEpisode(api),
		integrations.NewFetcher(api),
		integrations.NewDescrambler(cfg.Download.JPEGQuality),
		integrations.NewEPubBuilder(),
		history,
		logger,
	)
	return &ChapterController{cfg: cfg, repo: repo, downloader: downloader}, nil
}

// Download runs the pipeline. An empty destination uses the configured one.
func (c *ChapterController) Download(ctx context.Context, opts Options) (*Result, error) {
	if opts.Destination == "" {
		opts.Destination = c.cfg.Paths.Destination
	}
	return c.downloader.Run(ctx, opts)
}

// History lists recorded chapters, most recent first.
func (c *ChapterController) History() ([]*data.Chapter, error) {
	if c.repo == nil {
		return nil, nil
	}
	return c.repo.ListChapters()
}

func (c *ChapterController) GetProgressChannel() <-chan Progress {
	return c.downloader.GetProgressChannel()
}

func (c *ChapterController) Close() error {
	c.downloader.Close()
	if c.repo != nil {
		return c.repo.Close()
	}
	return nil
}
