package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"reclink/internal/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS share_links (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	url        TEXT    NOT NULL UNIQUE,
	created_ms INTEGER NOT NULL,
	filename   TEXT    NOT NULL DEFAULT '',
	media_url  TEXT,
	mime       TEXT
);`

// trimSQL keeps only the newest MaxEntries rows.
const trimSQL = `DELETE FROM share_links WHERE seq NOT IN (
	SELECT seq FROM share_links ORDER BY seq DESC LIMIT ?
);`

// SQLiteStore is a Store backed by a single SQLite file. Insertion order is
// the autoincrement sequence, so "newest" means most recently appended.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// One connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{`PRAGMA busy_timeout=5000;`, `PRAGMA journal_mode=WAL;`, schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing history: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns all links, newest first.
func (s *SQLiteStore) Load(ctx context.Context) ([]media.ShareLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, created_ms, filename, media_url, mime FROM share_links ORDER BY seq DESC LIMIT ?;`, MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var links []media.ShareLink
	for rows.Next() {
		var (
			l             media.ShareLink
			mediaURL, mim sql.NullString
		)
		if err := rows.Scan(&l.URL, &l.Timestamp, &l.Filename, &mediaURL, &mim); err != nil {
			return nil, fmt.Errorf("reading history row: %w", err)
		}
		if mediaURL.Valid && mediaURL.String != "" {
			l.Resolved = media.NewResolved(mediaURL.String, mim.String)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return links, nil
}

// Save replaces the whole history with links (newest first).
func (s *SQLiteStore) Save(ctx context.Context, links []media.ShareLink) error {
	links = normalize(links)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM share_links;`); err != nil {
			return err
		}
		// Oldest first so the newest gets the highest sequence.
		for i := len(links) - 1; i >= 0; i-- {
			if err := insert(ctx, tx, links[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Append adds link as the newest entry unless its URL is already present.
func (s *SQLiteStore) Append(ctx context.Context, link media.ShareLink) error {
	link.URL = strings.TrimSpace(link.URL)
	if link.URL == "" {
		return errors.New("history entry has no URL")
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insert(ctx, tx, link); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, trimSQL, MaxEntries)
		return err
	})
}

// Remove deletes the entry with the given URL. Removing an unknown URL is not
// an error.
func (s *SQLiteStore) Remove(ctx context.Context, url string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM share_links WHERE url = ?;`, strings.TrimSpace(url)); err != nil {
		return fmt.Errorf("removing history entry: %w", err)
	}
	return nil
}

// SetResolved caches res on the entry with the given URL without changing its
// position. Unknown URLs are ignored.
func (s *SQLiteStore) SetResolved(ctx context.Context, url string, res media.Resolved) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE share_links SET media_url = ?, mime = ? WHERE url = ?;`,
		res.MediaURL, res.MIME, strings.TrimSpace(url))
	if err != nil {
		return fmt.Errorf("updating history entry: %w", err)
	}
	return nil
}

func insert(ctx context.Context, tx *sql.Tx, l media.ShareLink) error {
	var mediaURL, mim sql.NullString
	if l.Resolved != nil {
		mediaURL = sql.NullString{String: l.Resolved.MediaURL, Valid: true}
		mim = sql.NullString{String: l.Resolved.MIME, Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO share_links (url, created_ms, filename, media_url, mime)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT(url) DO NOTHING;`,
		l.URL, l.Timestamp, l.Filename, mediaURL, mim)
	return err
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}
