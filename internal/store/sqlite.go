package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scan_cache (
	key        TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	metadata   TEXT,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, payload, metadata, updated_at FROM scan_cache WHERE key = ?`,
		key,
	)

	var e Entry
	var payload string
	var metadata sql.NullString
	err := row.Scan(&e.Key, &payload, &metadata, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", key)
	}
	e.Payload = []byte(payload)
	if metadata.Valid {
		e.Metadata = []byte(metadata.String)
	}
	return &e, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, payload, metadata []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_cache (key, payload, metadata, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, metadata = excluded.metadata, updated_at = excluded.updated_at`,
		key, string(payload), nullable(metadata), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put %s", key)
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
