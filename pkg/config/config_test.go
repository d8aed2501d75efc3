package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kerbaras/pocketepub/pkg/config"
	"github.com/kerbaras/pocketepub/pkg/utils"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsExpandPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, filepath.Join(home, ".config", "pocketepub", "config.toml"), resolved)

	assert.Equal(t, filepath.Join(home, "pocketepub"), cfg.Paths.Destination)
	assert.Equal(t, filepath.Join(home, ".local", "share", "pocketepub", "history.db"), cfg.Paths.HistoryDB)
	assert.Equal(t, utils.DefaultUserAgent, cfg.Download.UserAgent)
	assert.Equal(t, 4, cfg.Download.Workers)
	assert.Equal(t, config.CoverAlways, cfg.Download.CoverPolicy)
	assert.Equal(t, "usagi", cfg.Download.UnscrambledSentinel)
	assert.Equal(t, ".jpg", cfg.Download.PageExtension)
	assert.Equal(t, "cover.jpg", cfg.Download.CoverFilename)
	assert.Equal(t, "output.epub", cfg.Archive.Filename)
	assert.Equal(t, "Shonenmagazine", cfg.Archive.Author)
	assert.Equal(t, "ja", cfg.Archive.Language)
	assert.True(t, cfg.Archive.RightToLeft)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadProjectFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)
	require.NoError(t, os.WriteFile("pocketepub.toml", []byte("[download]\nworkers = 2\n"), 0o644))

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "pocketepub.toml", filepath.Base(resolved))
	assert.Equal(t, 2, cfg.Download.Workers)
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	dest := t.TempDir()
	path := writeConfig(t, `
[paths]
destination = "`+filepath.ToSlash(dest)+`"
history_db = ""

[download]
workers = 8
cover_policy = " Follow "
page_extension = "PNG"

[archive]
filename = "chapter.epub"
right_to_left = false

[logging]
format = "JSON"
level = "DEBUG"
`)

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)

	assert.Equal(t, dest, cfg.Paths.Destination)
	assert.Empty(t, cfg.Paths.HistoryDB)
	assert.Equal(t, 8, cfg.Download.Workers)
	assert.Equal(t, config.CoverFollow, cfg.Download.CoverPolicy)
	assert.Equal(t, ".png", cfg.Download.PageExtension)
	assert.Equal(t, "chapter.epub", cfg.Archive.Filename)
	assert.False(t, cfg.Archive.RightToLeft)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "usagi", cfg.Download.UnscrambledSentinel)
}

func TestLoadMissingExplicitFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, path, resolved)
	assert.Equal(t, 4, cfg.Download.Workers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"workers", "[download]\nworkers = -1\n", "download.workers"},
		{"cover policy", "[download]\ncover_policy = \"sometimes\"\n", "download.cover_policy"},
		{"extension", "[download]\npage_extension = \".gif\"\n", "download.page_extension"},
		{"quality", "[download]\njpeg_quality = 150\n", "download.jpeg_quality"},
		{"archive path", "[archive]\nfilename = \"../out.epub\"\n", "archive.filename"},
		{"name clash", "[archive]\nfilename = \"cover.jpg\"\n", "must differ"},
		{"log level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"unknown key", "[download]\nthreads = 3\n", "parse config"},
		{"bad toml", "[download\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := config.Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	require.NoError(t, config.CreateSample(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, toml.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "download")

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, exists)

	want := config.Default()
	assert.Equal(t, want.Download.Workers, cfg.Download.Workers)
	assert.Equal(t, want.Download.CoverPolicy, cfg.Download.CoverPolicy)
	assert.Equal(t, want.Archive, cfg.Archive)
}

func TestDescrambleCover(t *testing.T) {
	tests := []struct {
		policy    config.CoverPolicy
		scrambled bool
		want      bool
	}{
		{config.CoverAlways, false, true},
		{config.CoverAlways, true, true},
		{config.CoverNever, true, false},
		{config.CoverFollow, true, true},
		{config.CoverFollow, false, false},
	}

	for _, tt := range tests {
		cfg := config.Default()
		cfg.Download.CoverPolicy = tt.policy
		assert.Equal(t, tt.want, cfg.DescrambleCover(tt.scrambled), "%s/%v", tt.policy, tt.scrambled)
	}
}
