package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sgtransit/stops-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// busy_timeout is per connection; a single connection keeps it applied
	// and serializes writers from concurrent fetches.
	db.SetMaxOpenConns(1)
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
CREATE TABLE IF NOT EXISTS responses (
	id         TEXT NOT NULL,
	url        TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	etag       TEXT NOT NULL DEFAULT '',
	fetched_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_responses_fetched_at ON responses(fetched_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetResponse returns the cached response for url, or nil if there is none.
func (s *SQLiteStore) GetResponse(ctx context.Context, url string) (*model.CachedResponse, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, body, etag, fetched_at FROM responses WHERE url = ?`,
		url,
	)

	var r model.CachedResponse
	err := row.Scan(&r.ID, &r.URL, &r.Body, &r.ETag, &r.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get response")
	}
	return &r, nil
}

func (s *SQLiteStore) PutResponse(ctx context.Context, url string, body []byte, etag string) error {
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO responses (id, url, body, etag, fetched_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (url) DO UPDATE SET
			id = excluded.id,
			body = excluded.body,
			etag = excluded.etag,
			fetched_at = excluded.fetched_at`,
		uuid.New().String(), url, body, etag, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put response %s", url)
}

// TouchResponse marks a cached response as freshly validated.
func (s *SQLiteStore) TouchResponse(ctx context.Context, url string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE responses SET fetched_at = ? WHERE url = ?`,
		time.Now().UTC(), url,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: touch response %s", url)
	}
	return checkRowsAffected(res, "response", url)
}

func (s *SQLiteStore) DeleteResponsesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM responses WHERE fetched_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete old responses")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) ClearResponses(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM responses`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear responses")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.CacheStats, error) {
	var st model.CacheStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(body)), 0) FROM responses`,
	).Scan(&st.Entries, &st.Bytes)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: cache stats")
	}
	if st.Entries == 0 {
		return &st, nil
	}

	// Aggregates lose the DATETIME column type, so read the bounds as rows.
	if err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM responses ORDER BY fetched_at ASC LIMIT 1`,
	).Scan(&st.Oldest); err != nil {
		return nil, eris.Wrap(err, "sqlite: oldest response")
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM responses ORDER BY fetched_at DESC LIMIT 1`,
	).Scan(&st.Newest); err != nil {
		return nil, eris.Wrap(err, "sqlite: newest response")
	}
	return &st, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
