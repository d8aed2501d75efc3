package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDownload() error {
	if c.Download.Workers < 1 || c.Download.Workers > 64 {
		return fmt.Errorf("download.workers must be between 1 and 64, got %d", c.Download.Workers)
	}
	if c.Download.TimeoutSeconds < 0 {
		return errors.New("download.timeout_seconds must not be negative")
	}
	switch c.Download.CoverPolicy {
	case CoverAlways, CoverNever, CoverFollow:
	default:
		return fmt.Errorf("download.cover_policy must be one of always, never, follow; got %q", c.Download.CoverPolicy)
	}
	switch c.Download.PageExtension {
	case ".jpg", ".jpeg", ".png":
	default:
		return fmt.Errorf("download.page_extension must be .jpg, .jpeg or .png; got %q", c.Download.PageExtension)
	}
	if err := validFilename("download.cover_filename", c.Download.CoverFilename); err != nil {
		return err
	}
	if c.Download.JPEGQuality < 1 || c.Download.JPEGQuality > 100 {
		return fmt.Errorf("download.jpeg_quality must be between 1 and 100, got %d", c.Download.JPEGQuality)
	}
	return nil
}

func (c *Config) validateArchive() error {
	if err := validFilename("archive.filename", c.Archive.Filename); err != nil {
		return err
	}
	if c.Archive.Filename == c.Download.CoverFilename {
		return errors.New("archive.filename and download.cover_filename must differ")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console, text or json; got %q", c.Logging.Format)
	}
	return nil
}

func validFilename(key, name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%s must be a plain file name, got %q", key, name)
	}
	return nil
}
