package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
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
CREATE TABLE IF NOT EXISTS entities (
	id          TEXT PRIMARY KEY,
	slug        TEXT NOT NULL UNIQUE,
	entity_type TEXT NOT NULL DEFAULT '',
	merged      TEXT NOT NULL,
	provenance  TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_entities_entity_type ON entities(entity_type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return eris.Wrap(s.db.Close(), "sqlite: close")
}

func (s *SQLiteStore) UpsertEntity(ctx context.Context, e *Entity) error {
	if e.Slug == "" {
		return eris.New("sqlite: entity slug is required")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	mergedJSON, err := json.Marshal(e.Merged)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal merged entity")
	}
	provJSON, err := json.Marshal(e.Merged.Provenance)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal provenance")
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO entities (id, slug, entity_type, merged, provenance, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (slug) DO UPDATE SET
	entity_type = excluded.entity_type,
	merged      = excluded.merged,
	provenance  = excluded.provenance,
	updated_at  = excluded.updated_at`,
		e.ID, e.Slug, e.Merged.EntityType, string(mergedJSON), string(provJSON), now, now)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert entity %s", e.Slug)
	}
	return nil
}

func (s *SQLiteStore) GetEntity(ctx context.Context, slug string) (*Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, slug, entity_type, merged, created_at, updated_at FROM entities WHERE slug = ?`, slug)

	e, err := scanSQLiteEntity(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get entity %s", slug)
	}
	return e, nil
}

func (s *SQLiteStore) ListEntities(ctx context.Context, limit, offset int) ([]Entity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, entity_type, merged, created_at, updated_at FROM entities ORDER BY slug LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entities")
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		e, err := scanSQLiteEntity(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entity")
		}
		out = append(out, *e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list entities rows")
}

func scanSQLiteEntity(scan func(...any) error) (*Entity, error) {
	var e Entity
	var mergedJSON string
	if err := scan(&e.ID, &e.Slug, &e.EntityType, &mergedJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mergedJSON), &e.Merged); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal merged entity")
	}
	return &e, nil
}
