package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kerbaras/pocketepub/pkg/utils"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const defaultUserAgent = utils.DefaultUserAgent

// CoverPolicy decides whether the cover image is descrambled.
type CoverPolicy string

const (
	CoverAlways CoverPolicy = "always" // descramble regardless of the chapter flag
	CoverNever  CoverPolicy = "never"
	CoverFollow CoverPolicy = "follow" // same decision as the pages
)

// Paths contains output and state locations.
type Paths struct {
	Destination string `toml:"destination"`
	HistoryDB   string `toml:"history_db"`
}

// Download contains fetch and descramble settings.
type Download struct {
	UserAgent           string      `toml:"user_agent"`
	Workers             int         `toml:"workers"`
	TimeoutSeconds      int         `toml:"timeout_seconds"`
	CoverPolicy         CoverPolicy `toml:"cover_policy"`
	UnscrambledSentinel string      `toml:"unscrambled_sentinel"`
	PageExtension       string      `toml:"page_extension"`
	CoverFilename       string      `toml:"cover_filename"`
	JPEGQuality         int         `toml:"jpeg_quality"`
}

// Archive contains EPUB packaging settings.
type Archive struct {
	Filename    string `toml:"filename"`
	Author      string `toml:"author"`
	Language    string `toml:"language"`
	RightToLeft bool   `toml:"right_to_left"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"` // used by the interactive UI, which owns the terminal
}

// Config encapsulates all configuration values for pocketepub.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Download Download `toml:"download"`
	Archive  Archive  `toml:"archive"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pocketepub/config.toml")
}

// Load locates, parses, and validates a configuration file. It returns the
// config, the resolved path and whether a file was found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pocketepub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for flag values.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// DescrambleCover reports whether the cover is descrambled for a chapter
// whose pages are (or are not) scrambled.
func (c *Config) DescrambleCover(pagesScrambled bool) bool {
	switch c.Download.CoverPolicy {
	case CoverNever:
		return false
	case CoverFollow:
		return pagesScrambled
	default:
		return true
	}
}
