// Package store persists merged entities. The merge engine itself never
// touches the store; the orchestration layer hands it finished entities
// keyed by an externally generated slug.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/resolve-cli/internal/config"
	"github.com/sells-group/resolve-cli/internal/model"
)

// Entity is a persisted merged entity with its audit metadata.
type Entity struct {
	ID         string             `json:"id"`
	Slug       string             `json:"slug"`
	EntityType string             `json:"entity_type"`
	Merged     model.MergedEntity `json:"merged"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Store defines the persistence interface for merged entities. Upserts are
// idempotent, keyed by slug.
type Store interface {
	UpsertEntity(ctx context.Context, e *Entity) error
	GetEntity(ctx context.Context, slug string) (*Entity, error)
	ListEntities(ctx context.Context, limit, offset int) ([]Entity, error)

	Migrate(ctx context.Context) error
	Close() error
}

// New creates a Store for the configured driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
