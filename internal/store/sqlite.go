// Package store persists collected URL sets so they can be copied or
// reused after the collecting process exits.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"vimeoscan/internal/collect"
	"vimeoscan/internal/media"
)

// ErrNotFound is returned when no capture matches.
var ErrNotFound = eris.New("capture not found")

// SQLiteStore keeps captures in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates the parent directory of path if needed, opens the database
// and applies the schema.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, eris.Wrap(err, "sqlite: create data dir")
	}
	s, err := NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS captures (
	id         TEXT PRIMARY KEY,
	page       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS capture_urls (
	capture_id TEXT NOT NULL REFERENCES captures(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	url        TEXT NOT NULL,
	bucket     TEXT NOT NULL,
	PRIMARY KEY (capture_id, position)
);

CREATE INDEX IF NOT EXISTS idx_captures_created_at ON captures(created_at);
`

// Migrate applies the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveCapture stores urls in order under a new capture.
func (s *SQLiteStore) SaveCapture(ctx context.Context, page string, urls []string) (*media.Capture, error) {
	c := &media.Capture{
		ID:        uuid.New().String(),
		Page:      page,
		CreatedAt: time.Now().UTC(),
		URLs:      urls,
		Count:     len(urls),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO captures (id, page, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Page, c.CreatedAt,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert capture")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO capture_urls (capture_id, position, url, bucket) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare url insert")
	}
	defer stmt.Close()

	for i, u := range urls {
		if _, err := stmt.ExecContext(ctx, c.ID, i, u, collect.Classify(u).String()); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert url %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit")
	}
	return c, nil
}

// Latest returns the most recent capture with its URLs.
func (s *SQLiteStore) Latest(ctx context.Context) (*media.Capture, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id FROM captures ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: latest capture")
	}
	return s.Get(ctx, id)
}

// Get returns one capture with its URLs.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*media.Capture, error) {
	c := &media.Capture{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, page, created_at FROM captures WHERE id = ?`, id,
	).Scan(&c.ID, &c.Page, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get capture %s", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT url FROM capture_urls WHERE capture_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list urls %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan url")
		}
		c.URLs = append(c.URLs, u)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate urls")
	}
	c.Count = len(c.URLs)
	return c, nil
}

// List returns up to limit captures, newest first, without their URLs.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]media.Capture, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.page, c.created_at, COUNT(u.url)
		FROM captures c
		LEFT JOIN capture_urls u ON u.capture_id = c.id
		GROUP BY c.id
		ORDER BY c.created_at DESC, c.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list captures")
	}
	defer rows.Close()

	var out []media.Capture
	for rows.Next() {
		var c media.Capture
		if err := rows.Scan(&c.ID, &c.Page, &c.CreatedAt, &c.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan capture")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate captures")
}

// Delete removes a capture and its URLs.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete capture %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FormatForDisplay creates display strings for fzf selection from captures.
func FormatForDisplay(captures []media.Capture) []string {
	items := make([]string, 0, len(captures))
	for _, c := range captures {
		items = append(items, c.CreatedAt.Local().Format("2006-01-02 15:04")+"  "+
			plural(c.Count)+"  "+c.Page)
	}
	return items
}

func plural(n int) string {
	if n == 1 {
		return "1 url"
	}
	return fmt.Sprintf("%d urls", n)
}
