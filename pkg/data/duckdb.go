package data

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `CREATE TABLE IF NOT EXISTS chapters (
	id           VARCHAR PRIMARY KEY,
	source       VARCHAR,
	title        VARCHAR,
	published_at VARCHAR,
	directory    VARCHAR,
	archive_path VARCHAR,
	pages        INTEGER,
	status       VARCHAR,
	updated_at   TIMESTAMP DEFAULT current_timestamp
)`

func InitDuckDB(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}

// Repository keeps the history of processed chapters.
type Repository struct {
	db *sql.DB
}

// NewDuckDBRepository opens (or creates) the history database at path.
func NewDuckDBRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveChapter inserts or replaces a chapter record.
func (r *Repository) SaveChapter(chapter *Chapter) error {
	if chapter == nil || chapter.ID == "" {
		return fmt.Errorf("chapter id is required")
	}
	_, err := r.db.Exec(`INSERT OR REPLACE INTO chapters
		(id, source, title, published_at, directory, archive_path, pages, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, current_timestamp)`,
		chapter.ID, chapter.Source, chapter.Title, chapter.PublishedAt,
		chapter.Directory, chapter.ArchivePath, chapter.Pages, chapter.Status)
	if err != nil {
		return fmt.Errorf("save chapter %s: %w", chapter.ID, err)
	}
	return nil
}

// GetChapter returns the chapter with the given id, or nil when unknown.
func (r *Repository) GetChapter(id string) (*Chapter, error) {
	row := r.db.QueryRow(`SELECT id, source, title, published_at, directory, archive_path, pages, status, updated_at
		FROM chapters WHERE id = ?`, id)

	chapter, err := scanChapter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter %s: %w", id, err)
	}
	return chapter, nil
}

// ListChapters returns every recorded chapter, most recent first.
func (r *Repository) ListChapters() ([]*Chapter, error) {
	rows, err := r.db.Query(`SELECT id, source, title, published_at, directory, archive_path, pages, status, updated_at
		FROM chapters ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []*Chapter
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("list chapters: %w", err)
		}
		chapters = append(chapters, chapter)
	}
	return chapters, rows.Err()
}

// UpdateChapterStatus sets the status and archive path of a recorded chapter.
func (r *Repository) UpdateChapterStatus(id, status, archivePath string) error {
	res, err := r.db.Exec(`UPDATE chapters SET status = ?, archive_path = ?, updated_at = current_timestamp WHERE id = ?`,
		status, archivePath, id)
	if err != nil {
		return fmt.Errorf("update chapter %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update chapter %s: not found", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChapter(s scanner) (*Chapter, error) {
	var (
		c                                                    Chapter
		source, title, published, directory, archive, status sql.NullString
		pages                                                sql.NullInt64
	)
	if err := s.Scan(&c.ID, &source, &title, &published, &directory, &archive, &pages, &status, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Source = source.String
	c.Title = title.String
	c.PublishedAt = published.String
	c.Directory = directory.String
	c.ArchivePath = archive.String
	c.Pages = int(pages.Int64)
	c.Status = status.String
	return &c, nil
}
