package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeArchive()
	return c.normalizeLogging()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.Destination) == "" {
		c.Paths.Destination = defaultDestination
	}
	if c.Paths.Destination, err = expandPath(strings.TrimSpace(c.Paths.Destination)); err != nil {
		return fmt.Errorf("paths.destination: %w", err)
	}
	// An empty history_db disables the chapter history.
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownload() {
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultUserAgent
	}
	if c.Download.Workers == 0 {
		c.Download.Workers = defaultWorkers
	}
	if c.Download.TimeoutSeconds == 0 {
		c.Download.TimeoutSeconds = defaultTimeoutSeconds
	}
	c.Download.CoverPolicy = CoverPolicy(strings.ToLower(strings.TrimSpace(string(c.Download.CoverPolicy))))
	if c.Download.CoverPolicy == "" {
		c.Download.CoverPolicy = defaultCoverPolicy
	}
	c.Download.UnscrambledSentinel = strings.TrimSpace(c.Download.UnscrambledSentinel)
	if c.Download.UnscrambledSentinel == "" {
		c.Download.UnscrambledSentinel = defaultSentinel
	}
	ext := strings.ToLower(strings.TrimSpace(c.Download.PageExtension))
	if ext == "" {
		ext = defaultPageExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Download.PageExtension = ext
	c.Download.CoverFilename = strings.TrimSpace(c.Download.CoverFilename)
	if c.Download.CoverFilename == "" {
		c.Download.CoverFilename = defaultCoverFilename
	}
	if c.Download.JPEGQuality == 0 {
		c.Download.JPEGQuality = defaultJPEGQuality
	}
}

func (c *Config) normalizeArchive() {
	c.Archive.Filename = strings.TrimSpace(c.Archive.Filename)
	if c.Archive.Filename == "" {
		c.Archive.Filename = defaultArchiveFilename
	}
	c.Archive.Author = strings.TrimSpace(c.Archive.Author)
	c.Archive.Language = strings.TrimSpace(c.Archive.Language)
	if c.Archive.Language == "" {
		c.Archive.Language = defaultLanguage
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" || c.Logging.Format == "text" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}
