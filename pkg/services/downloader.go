package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/kerbaras/pocketepub/pkg/config"
	"github.com/kerbaras/pocketepub/pkg/data"
	"github.com/kerbaras/pocketepub/pkg/errs"
	"github.com/kerbaras/pocketepub/pkg/integrations"
	"github.com/kerbaras/pocketepub/pkg/sources"
	"golang.org/x/sync/errgroup"
)

const (
	lockFileName   = ".pocketepub.lock"
	stagingDirName = ".staging"
)

// Stage names a step of a chapter run.
type Stage string

const (
	StageResolve    Stage = "resolve"
	StageCover      Stage = "cover"
	StagePages      Stage = "pages"
	StageDescramble Stage = "descramble"
	StageSequence   Stage = "sequence"
	StagePackage    Stage = "package"
	StageDone       Stage = "done"
	StageError      Stage = "error"
)

// Progress represents the progress of a chapter run.
type Progress struct {
	ChapterID string
	Stage     Stage
	Current   int
	Total     int
	Err       error
}

// Options selects what a run does. With neither flag set the chapter is
// resolved, fetched, descrambled and packaged.
type Options struct {
	Source      string // chapter URL; its last path segment names the directory
	Destination string // parent of the chapter directory
	ProcessOnly bool   // descramble images already in the directory
	ConvertOnly bool   // package images already in the directory
}

// Result describes a finished run.
type Result struct {
	ChapterID   string
	Dir         string
	ArchivePath string // empty when nothing was packaged
	Pages       int
	Fetched     int
	Skipped     int
}

// Fetcher downloads a single resource to target.
type Fetcher interface {
	Fetch(ctx context.Context, url, target string) error
}

// Packager writes ordered pages into an archive.
type Packager interface {
	Package(pages []data.PageFile, meta integrations.Metadata, outputPath string) error
}

// Repository interface needed by downloader
type Repository interface {
	SaveChapter(chapter *data.Chapter) error
	GetChapter(id string) (*data.Chapter, error)
	UpdateChapterStatus(id, status, archivePath string) error
}

// Downloader runs the chapter pipeline: resolve, fetch cover and pages,
// descramble, sequence and package.
type Downloader struct {
	cfg          *config.Config
	resolver     sources.Resolver
	fetcher      Fetcher
	processor    integrations.Processor
	packager     Packager
	repo         Repository
	logger       *slog.Logger
	progressChan chan Progress
	progressMu   sync.RWMutex
	closed       bool
}

// NewDownloader creates a new Downloader. repo may be nil, in which case no
// history is kept.
func NewDownloader(cfg *config.Config, resolver sources.Resolver, fetcher Fetcher, processor integrations.Processor, packager Packager, repo Repository, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Downloader{
		cfg:          cfg,
		resolver:     resolver,
		fetcher:      fetcher,
		processor:    processor,
		packager:     packager,
		repo:         repo,
		logger:       logger,
		progressChan: make(chan Progress, 100),
	}
}

// GetProgressChannel returns the channel for receiving progress updates.
func (d *Downloader) GetProgressChannel() <-chan Progress {
	return d.progressChan
}

// ChapterDirName derives the chapter directory name from a source URL: its
// last non-empty path segment.
func ChapterDirName(source string) (string, error) {
	p := source
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		p = u.Path
	}
	name := path.Base(strings.TrimRight(p, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", errs.Wrap(errs.ErrResolution, fmt.Sprintf("derive chapter directory from %q", source), nil)
	}
	return name, nil
}

// Run executes one chapter run. It either completes every step of the
// selected mode or stops at the first error; no archive is written unless
// every page was fetched and processed.
func (d *Downloader) Run(ctx context.Context, opts Options) (*Result, error) {
	name, err := ChapterDirName(opts.Source)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Destination) == "" {
		return nil, errs.Wrap(errs.ErrFilesystem, "destination is required", nil)
	}

	dir := filepath.Join(opts.Destination, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrFilesystem, "create "+dir, err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errs.Wrap(errs.ErrFilesystem, "acquire lock", err)
	}
	if !locked {
		return nil, errs.Wrap(errs.ErrFilesystem, dir+" is in use by another run", nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			d.logger.Warn("release lock", "dir", dir, "error", err)
		}
	}()

	logger := d.logger.With("chapter", name)
	logger.Info("run started", "dir", dir, "process_only", opts.ProcessOnly, "convert_only", opts.ConvertOnly)

	result := &Result{ChapterID: name, Dir: dir}
	run := &chapterRun{Downloader: d, logger: logger, opts: opts, result: result}

	if err := run.execute(ctx); err != nil {
		logger.Error("run failed", "error", err)
		d.sendProgress(Progress{ChapterID: name, Stage: StageError, Err: err})
		return nil, err
	}

	logger.Info("run finished", "archive", result.ArchivePath, "pages", result.Pages, "fetched", result.Fetched, "skipped", result.Skipped)
	d.sendProgress(Progress{ChapterID: name, Stage: StageDone, Current: result.Pages, Total: result.Pages})
	return result, nil
}

// chapterRun holds the state of a single Run call.
type chapterRun struct {
	*Downloader
	logger *slog.Logger
	opts   Options
	result *Result
}

func (r *chapterRun) execute(ctx context.Context) error {
	if r.opts.ProcessOnly {
		if err := r.processExisting(ctx); err != nil {
			return err
		}
		if !r.opts.ConvertOnly {
			return nil
		}
	}
	if r.opts.ConvertOnly {
		return r.convertExisting()
	}
	return r.download(ctx)
}

func (r *chapterRun) coverPath() string {
	return filepath.Join(r.result.Dir, r.cfg.Download.CoverFilename)
}

func (r *chapterRun) archivePath() string {
	return filepath.Join(r.result.Dir, r.cfg.Archive.Filename)
}

func (r *chapterRun) download(ctx context.Context) (err error) {
	id := r.result.ChapterID

	r.sendProgress(Progress{ChapterID: id, Stage: StageResolve})
	desc, err := r.resolver.Resolve(ctx, r.opts.Source)
	if err != nil {
		if errs.KindOf(err) == nil {
			err = errs.Wrap(errs.ErrResolution, "resolve "+r.opts.Source, err)
		}
		return err
	}
	if desc == nil {
		return errs.Wrap(errs.ErrResolution, "resolver returned no chapter", nil)
	}

	refs := desc.MainPages()
	if len(refs) == 0 {
		return errs.Wrap(errs.ErrResolution, "chapter has no downloadable pages", nil)
	}
	scrambled := desc.Scrambled(r.cfg.Download.UnscrambledSentinel)
	r.logger.Info("chapter resolved", "title", desc.Title, "pages", len(refs), "scrambled", scrambled)

	r.record(&data.Chapter{
		ID:          id,
		Source:      r.opts.Source,
		Title:       desc.Title,
		PublishedAt: desc.PublishedAt,
		Directory:   r.result.Dir,
		Pages:       len(refs),
		Status:      "downloading",
	})
	defer func() {
		if err != nil {
			r.updateStatus(id, "error", "")
		}
	}()

	staging := filepath.Join(r.result.Dir, stagingDirName)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return errs.Wrap(errs.ErrFilesystem, "create "+staging, err)
	}
	defer os.RemoveAll(staging)

	coverPath := ""
	if desc.CoverURL != "" {
		r.sendProgress(Progress{ChapterID: id, Stage: StageCover})
		coverPath = r.coverPath()
		if err := r.fetchUnit(ctx, staging, desc.CoverURL, coverPath, r.cfg.DescrambleCover(scrambled)); err != nil {
			return fmt.Errorf("cover: %w", err)
		}
	} else {
		r.logger.Warn("chapter has no cover")
	}

	if err := r.fetchPages(ctx, staging, refs, scrambled); err != nil {
		return err
	}

	r.sendProgress(Progress{ChapterID: id, Stage: StageSequence, Total: len(refs)})
	pages, err := r.sequence(refs)
	if err != nil {
		return err
	}

	title := desc.Title
	if title == "" {
		title = id
	}
	if err := r.pack(pages, title, desc.PublishedAt, coverPath); err != nil {
		return err
	}

	r.record(&data.Chapter{
		ID:          id,
		Source:      r.opts.Source,
		Title:       desc.Title,
		PublishedAt: desc.PublishedAt,
		Directory:   r.result.Dir,
		ArchivePath: r.result.ArchivePath,
		Pages:       len(pages),
		Status:      "completed",
	})
	return nil
}

func (r *chapterRun) fetchPages(ctx context.Context, staging string, refs []data.PageRef, scrambled bool) error {
	id := r.result.ChapterID
	total := len(refs)
	var done, fetched, skipped atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Download.Workers)

	r.sendProgress(Progress{ChapterID: id, Stage: StagePages, Total: total})
	for _, ref := range refs {
		target := filepath.Join(r.result.Dir, PageFileName(ref.Index, r.cfg.Download.PageExtension))

		if _, err := os.Stat(target); err == nil {
			skipped.Add(1)
			r.logger.Debug("page exists, skipping", "index", ref.Index)
			r.sendProgress(Progress{ChapterID: id, Stage: StagePages, Current: int(done.Add(1)), Total: total})
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			statErr := errs.Wrap(errs.ErrFilesystem, "stat "+target, err)
			g.Go(func() error { return statErr })
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := r.fetchUnit(gctx, staging, ref.URL, target, scrambled); err != nil {
				return fmt.Errorf("page %d: %w", ref.Index, err)
			}
			fetched.Add(1)
			r.logger.Debug("page stored", "index", ref.Index)
			r.sendProgress(Progress{ChapterID: id, Stage: StagePages, Current: int(done.Add(1)), Total: total})
			return nil
		})
	}

	err := g.Wait()
	r.result.Fetched = int(fetched.Load())
	r.result.Skipped = int(skipped.Load())
	return err
}

// fetchUnit downloads src into the staging directory, descrambles it when
// asked and moves it to target. target only ever appears fully processed.
func (r *chapterRun) fetchUnit(ctx context.Context, staging, src, target string, descramble bool) error {
	tmp := filepath.Join(staging, filepath.Base(target))
	defer os.Remove(tmp)

	if err := r.fetcher.Fetch(ctx, src, tmp); err != nil {
		return err
	}
	if descramble {
		if err := r.processor.Process(tmp); err != nil {
			return err
		}
	}
	if err := os.Rename(tmp, target); err != nil {
		return errs.Wrap(errs.ErrFilesystem, "move "+filepath.Base(target), err)
	}
	return nil
}

// processExisting descrambles every page image already in the directory.
// The cover is left alone.
func (r *chapterRun) processExisting(ctx context.Context) error {
	id := r.result.ChapterID
	pages, err := ScanPages(r.result.Dir, r.cfg.Download.CoverFilename, r.cfg.Archive.Filename)
	if err != nil {
		return err
	}

	total := len(pages)
	var done atomic.Int32
	r.sendProgress(Progress{ChapterID: id, Stage: StageDescramble, Total: total})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Download.Workers)
	for _, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := r.processor.Process(page.Path); err != nil {
				return err
			}
			r.sendProgress(Progress{ChapterID: id, Stage: StageDescramble, Current: int(done.Add(1)), Total: total})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.result.Pages = total
	r.logger.Info("descrambled existing pages", "pages", total)
	return nil
}

// convertExisting packages the images already in the directory.
func (r *chapterRun) convertExisting() error {
	id := r.result.ChapterID

	r.sendProgress(Progress{ChapterID: id, Stage: StageSequence})
	pages, err := r.sequence(nil)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return errs.Wrap(errs.ErrSequencing, "no page images in "+r.result.Dir, nil)
	}

	title, publishedAt := id, ""
	if prev := r.lookup(id); prev != nil {
		if prev.Title != "" {
			title = prev.Title
		}
		publishedAt = prev.PublishedAt
	}

	coverPath := r.coverPath()
	if _, err := os.Stat(coverPath); err != nil {
		coverPath = ""
	}

	if err := r.pack(pages, title, publishedAt, coverPath); err != nil {
		return err
	}

	r.record(&data.Chapter{
		ID:          id,
		Source:      r.opts.Source,
		Title:       title,
		PublishedAt: publishedAt,
		Directory:   r.result.Dir,
		ArchivePath: r.result.ArchivePath,
		Pages:       len(pages),
		Status:      "completed",
	})
	return nil
}

// sequence orders the page images on disk. With expected refs, only those
// pages are kept and each one must be present.
func (r *chapterRun) sequence(expected []data.PageRef) ([]data.PageFile, error) {
	files, err := ScanPages(r.result.Dir, r.cfg.Download.CoverFilename, r.cfg.Archive.Filename)
	if err != nil {
		return nil, err
	}
	ordered, err := Sequence(files)
	if err != nil {
		return nil, err
	}
	if expected == nil {
		return ordered, nil
	}
	return selectPages(ordered, expected)
}

func (r *chapterRun) pack(pages []data.PageFile, title, publishedAt, coverPath string) error {
	r.sendProgress(Progress{ChapterID: r.result.ChapterID, Stage: StagePackage, Total: len(pages)})

	archivePath := r.archivePath()
	meta := integrations.Metadata{
		Title:       title,
		PublishedAt: publishedAt,
		Author:      r.cfg.Archive.Author,
		Language:    r.cfg.Archive.Language,
		Source:      r.opts.Source,
		RightToLeft: r.cfg.Archive.RightToLeft,
		CoverPath:   coverPath,
	}
	if err := r.packager.Package(pages, meta, archivePath); err != nil {
		if errs.KindOf(err) == nil {
			err = errs.Wrap(errs.ErrPackage, "package "+archivePath, err)
		}
		return err
	}

	r.result.ArchivePath = archivePath
	r.result.Pages = len(pages)
	r.logger.Info("archive written", "path", archivePath, "pages", len(pages))
	return nil
}

func (r *chapterRun) record(chapter *data.Chapter) {
	if r.repo == nil {
		return
	}
	chapter.UpdatedAt = time.Now()
	if err := r.repo.SaveChapter(chapter); err != nil {
		r.logger.Warn("save chapter history", "error", err)
	}
}

func (r *chapterRun) updateStatus(id, status, archivePath string) {
	if r.repo == nil {
		return
	}
	if err := r.repo.UpdateChapterStatus(id, status, archivePath); err != nil {
		r.logger.Warn("update chapter history", "error", err)
	}
}

func (r *chapterRun) lookup(id string) *data.Chapter {
	if r.repo == nil {
		return nil
	}
	chapter, err := r.repo.GetChapter(id)
	if err != nil {
		r.logger.Warn("read chapter history", "error", err)
		return nil
	}
	return chapter
}

// sendProgress sends a progress update (non-blocking)
func (d *Downloader) sendProgress(progress Progress) {
	d.progressMu.RLock()
	defer d.progressMu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.progressChan <- progress:
	default:
		// Channel full, skip this update
	}
}

// Close releases the progress channel. Progress of runs still in flight is
// dropped afterwards.
func (d *Downloader) Close() {
	d.progressMu.Lock()
	defer d.progressMu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.progressChan)
	}
}
