// Package metastore is the shared song metadata cache: resolved tracks keyed
// by (source id, extractor) so repeat requests skip the extraction cost, plus
// a global per-song play counter.
package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const schema = `
CREATE TABLE IF NOT EXISTS songs (
	source_id        TEXT NOT NULL,
	extractor        TEXT NOT NULL,
	title            TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	stream_url       TEXT NOT NULL DEFAULT '',
	uploader         TEXT NOT NULL DEFAULT '',
	uploader_url     TEXT NOT NULL DEFAULT '',
	thumbnail_url    TEXT NOT NULL DEFAULT '',
	webpage_url      TEXT NOT NULL DEFAULT '',
	play_count       INTEGER NOT NULL DEFAULT 0,
	added_at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (source_id, extractor)
);
CREATE INDEX IF NOT EXISTS idx_songs_title ON songs (title);
`

// Song is one cached metadata row.
type Song struct {
	SourceID    string
	Extractor   string
	Title       string
	Duration    time.Duration
	StreamURL   string
	Uploader    string
	UploaderURL string
	Thumbnail   string
	WebpageURL  string
	PlayCount   int64
}

type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open creates the database file (and parent directory) when missing and
// applies the schema. WAL keeps concurrent guild lookups cheap.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create metadata dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open song cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply song cache schema: %w", err)
	}

	return &Store{db: db, log: log.With().Str("component", "metastore").Logger()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const selectCols = `source_id, extractor, title, duration_seconds, stream_url,
	uploader, uploader_url, thumbnail_url, webpage_url, play_count`

func scanSong(row *sql.Row) (*Song, bool, error) {
	var (
		song Song
		secs int64
	)
	err := row.Scan(&song.SourceID, &song.Extractor, &song.Title, &secs,
		&song.StreamURL, &song.Uploader, &song.UploaderURL, &song.Thumbnail,
		&song.WebpageURL, &song.PlayCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	song.Duration = time.Duration(secs) * time.Second
	return &song, true, nil
}

// LookupSource fetches a cached song by its (source id, extractor) key.
func (s *Store) LookupSource(ctx context.Context, sourceID, extractor string) (*Song, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectCols+` FROM songs WHERE source_id = ? AND extractor = ?`,
		sourceID, extractor)
	return scanSong(row)
}

// LookupTitle fetches a cached song by exact title. Ambiguous titles return
// the most played row.
func (s *Store) LookupTitle(ctx context.Context, title string) (*Song, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectCols+` FROM songs WHERE title = ? ORDER BY play_count DESC LIMIT 1`,
		title)
	return scanSong(row)
}

// Insert caches a resolved song. Duplicate keys are ignored, not an error:
// two guilds resolving the same track at once is expected, the first writer
// wins.
func (s *Store) Insert(ctx context.Context, song *Song) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO songs
		 (source_id, extractor, title, duration_seconds, stream_url,
		  uploader, uploader_url, thumbnail_url, webpage_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		song.SourceID, song.Extractor, song.Title,
		int64(song.Duration/time.Second), song.StreamURL,
		song.Uploader, song.UploaderURL, song.Thumbnail, song.WebpageURL)
	if err != nil {
		return fmt.Errorf("insert song: %w", err)
	}
	return nil
}

// IncrementPlayCount bumps the global play counter for a song. Rows missing
// from the cache are ignored.
func (s *Store) IncrementPlayCount(ctx context.Context, sourceID, extractor string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE songs SET play_count = play_count + 1
		 WHERE source_id = ? AND extractor = ?`,
		sourceID, extractor)
	if err != nil {
		return fmt.Errorf("increment play count: %w", err)
	}
	return nil
}

// TopPlayed lists the most played songs, for the stats surface.
func (s *Store) TopPlayed(ctx context.Context, limit int) ([]*Song, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectCols+` FROM songs WHERE play_count > 0
		 ORDER BY play_count DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Song
	for rows.Next() {
		var (
			song Song
			secs int64
		)
		if err := rows.Scan(&song.SourceID, &song.Extractor, &song.Title, &secs,
			&song.StreamURL, &song.Uploader, &song.UploaderURL, &song.Thumbnail,
			&song.WebpageURL, &song.PlayCount); err != nil {
			return nil, err
		}
		song.Duration = time.Duration(secs) * time.Second
		out = append(out, &song)
	}
	return out, rows.Err()
}
