package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses, abstracted so tests
// can substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"upsert_entity": `INSERT INTO entities (id, slug, entity_type, merged, provenance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (slug) DO UPDATE SET
	entity_type = EXCLUDED.entity_type,
	merged      = EXCLUDED.merged,
	provenance  = EXCLUDED.provenance,
	updated_at  = EXCLUDED.updated_at`,
	"get_entity":    `SELECT id, slug, entity_type, merged, created_at, updated_at FROM entities WHERE slug = $1`,
	"list_entities": `SELECT id, slug, entity_type, merged, created_at, updated_at FROM entities ORDER BY slug LIMIT $1 OFFSET $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS entities (
	id          TEXT PRIMARY KEY,
	slug        TEXT NOT NULL UNIQUE,
	entity_type TEXT NOT NULL DEFAULT '',
	merged      JSONB NOT NULL,
	provenance  JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_entities_entity_type ON entities(entity_type);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertEntity(ctx context.Context, e *Entity) error {
	if e.Slug == "" {
		return eris.New("postgres: entity slug is required")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	mergedJSON, err := json.Marshal(e.Merged)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal merged entity")
	}
	provJSON, err := json.Marshal(e.Merged.Provenance)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal provenance")
	}

	_, err = s.pool.Exec(ctx, "upsert_entity",
		e.ID, e.Slug, e.Merged.EntityType, mergedJSON, provJSON, now)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert entity %s", e.Slug)
	}
	return nil
}

func (s *PostgresStore) GetEntity(ctx context.Context, slug string) (*Entity, error) {
	row := s.pool.QueryRow(ctx, "get_entity", slug)
	e, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get entity %s", slug)
	}
	return e, nil
}

func (s *PostgresStore) ListEntities(ctx context.Context, limit, offset int) ([]Entity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, "list_entities", limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entities")
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan entity")
		}
		out = append(out, *e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list entities rows")
}

func scanEntity(row pgx.Row) (*Entity, error) {
	var e Entity
	var mergedJSON []byte
	if err := row.Scan(&e.ID, &e.Slug, &e.EntityType, &mergedJSON, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(mergedJSON, &e.Merged); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal merged entity")
	}
	return &e, nil
}
