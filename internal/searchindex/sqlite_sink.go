package searchindex

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pages (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	component TEXT,
	version TEXT,
	language TEXT,
	reading_time INTEGER NOT NULL,
	last_updated TEXT
);
CREATE INDEX IF NOT EXISTS idx_pages_component_version ON pages(component, version);
`

// SQLiteSink writes the index to a SQLite database file. Each write
// replaces the previous contents.
type SQLiteSink struct {
	path string
}

// NewSQLiteSink creates a sink writing to the database at path.
func NewSQLiteSink(path string) *SQLiteSink {
	return &SQLiteSink{path: path}
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Write(ctx context.Context, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open sqlite database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pages"); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO pages (id, url, title, content, component, version, language, reading_time, last_updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, e.URL, e.Title, e.Content,
			e.Component, e.Version, e.Language, e.ReadingTime, e.LastUpdated); err != nil {
			return fmt.Errorf("insert %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
