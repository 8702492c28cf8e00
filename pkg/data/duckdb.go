package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key   VARCHAR PRIMARY KEY,
	value VARCHAR NOT NULL
);
CREATE TABLE IF NOT EXISTS reading_progress (
	manga_id      INTEGER NOT NULL,
	chapter_index INTEGER NOT NULL,
	last_page     INTEGER NOT NULL,
	updated_at    TIMESTAMP DEFAULT current_timestamp,
	PRIMARY KEY (manga_id, chapter_index)
);
`

// InitDuckDB opens the database at path, creating parent directories and
// tables as needed.
func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

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

type Repository struct {
	db *sql.DB
}

// Open returns a repository backed by the database at path.
func Open(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// GetPreference returns the stored value for key and whether it was set.
func (r *Repository) GetPreference(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %q: %w", key, err)
	}
	return value, true, nil
}

func (r *Repository) SetPreference(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	return nil
}

// SaveProgress records the last page read in a chapter.
func (r *Repository) SaveProgress(p ReadingProgress) error {
	_, err := r.db.Exec(`
		INSERT INTO reading_progress (manga_id, chapter_index, last_page) VALUES (?, ?, ?)
		ON CONFLICT (manga_id, chapter_index) DO UPDATE
		SET last_page = excluded.last_page, updated_at = now()`,
		p.MangaID, p.ChapterIndex, p.LastPage)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// GetProgress returns the stored progress for a chapter, or nil if the
// chapter was never opened.
func (r *Repository) GetProgress(mangaID, chapterIndex int) (*ReadingProgress, error) {
	p := &ReadingProgress{MangaID: mangaID, ChapterIndex: chapterIndex}
	err := r.db.QueryRow(`
		SELECT last_page FROM reading_progress
		WHERE manga_id = ? AND chapter_index = ?`, mangaID, chapterIndex).Scan(&p.LastPage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

// ListProgress returns the progress of every opened chapter of a manga keyed
// by chapter index.
func (r *Repository) ListProgress(mangaID int) (map[int]int, error) {
	rows, err := r.db.Query(`
		SELECT chapter_index, last_page FROM reading_progress
		WHERE manga_id = ? ORDER BY chapter_index`, mangaID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var index, page int
		if err := rows.Scan(&index, &page); err != nil {
			return nil, err
		}
		out[index] = page
	}
	return out, rows.Err()
}
