package data

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewDuckDBRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndGetChapter(t *testing.T) {
	repo := setupTestDB(t)

	chapter := &Chapter{
		ID:          "13932016480029113131",
		Source:      "https://pocket.shonenmagazine.com/episode/13932016480029113131",
		Title:       "第1話",
		PublishedAt: "2024-01-01T00:00:00+09:00",
		Directory:   "/tmp/out/13932016480029113131",
		Pages:       18,
		Status:      "downloading",
	}
	require.NoError(t, repo.SaveChapter(chapter))

	got, err := repo.GetChapter(chapter.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, chapter.Title, got.Title)
	assert.Equal(t, chapter.Source, got.Source)
	assert.Equal(t, chapter.Directory, got.Directory)
	assert.Equal(t, 18, got.Pages)
	assert.Equal(t, "downloading", got.Status)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestGetChapterUnknown(t *testing.T) {
	repo := setupTestDB(t)

	got, err := repo.GetChapter("missing")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveChapterReplaces(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.SaveChapter(&Chapter{ID: "ep-1", Title: "old"}))
	require.NoError(t, repo.SaveChapter(&Chapter{ID: "ep-1", Title: "new"}))

	chapters, err := repo.ListChapters()
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, "new", chapters[0].Title)
}

func TestSaveChapterRequiresID(t *testing.T) {
	repo := setupTestDB(t)

	assert.Error(t, repo.SaveChapter(&Chapter{Title: "no id"}))
	assert.Error(t, repo.SaveChapter(nil))
}

func TestListChapters(t *testing.T) {
	repo := setupTestDB(t)

	chapters, err := repo.ListChapters()
	require.NoError(t, err)
	assert.Empty(t, chapters)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.SaveChapter(&Chapter{ID: id, Title: "Episode " + id}))
	}

	chapters, err = repo.ListChapters()
	require.NoError(t, err)
	assert.Len(t, chapters, 3)
}

func TestUpdateChapterStatus(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.SaveChapter(&Chapter{ID: "ep-1", Status: "downloading"}))
	require.NoError(t, repo.UpdateChapterStatus("ep-1", "completed", "/tmp/ep-1/output.epub"))

	got, err := repo.GetChapter("ep-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, "/tmp/ep-1/output.epub", got.ArchivePath)

	assert.Error(t, repo.UpdateChapterStatus("missing", "completed", ""))
}
