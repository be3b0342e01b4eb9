package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/resolve-cli/internal/model"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func testEntity() *Entity {
	return &Entity{
		Slug:       "padel-club-cardiff",
		EntityType: "place",
		Merged: model.MergedEntity{
			EntityType: "place",
			Fields:     map[string]any{"name": "Padel Club Cardiff", "phone": "+441234"},
			Provenance: map[string]model.Origin{
				"name": {SourceID: "ss", Trust: 90, Confidence: 0.5},
			},
			MatchTier: "external_id",
			Sources:   []string{"gp", "ss"},
		},
	}
}

func TestPostgresUpsertEntity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	e := testEntity()
	mock.ExpectExec("upsert_entity").
		WithArgs(pgxmock.AnyArg(), e.Slug, "place", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.UpsertEntity(context.Background(), e))

	// A generated ID is assigned when none was set.
	assert.NotEmpty(t, e.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertEntity_RequiresSlug(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)
	err = s.UpsertEntity(context.Background(), &Entity{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slug is required")
}

func TestPostgresGetEntity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	merged, err := json.Marshal(testEntity().Merged)
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery("get_entity").
		WithArgs("padel-club-cardiff").
		WillReturnRows(pgxmock.NewRows([]string{"id", "slug", "entity_type", "merged", "created_at", "updated_at"}).
			AddRow("abc-123", "padel-club-cardiff", "place", merged, now, now))

	s := NewPostgresWithPool(mock)
	e, err := s.GetEntity(context.Background(), "padel-club-cardiff")
	require.NoError(t, err)
	require.NotNil(t, e)

	assert.Equal(t, "abc-123", e.ID)
	assert.Equal(t, "place", e.Merged.EntityType)
	assert.Equal(t, "Padel Club Cardiff", e.Merged.Fields["name"])
	assert.Equal(t, "external_id", e.Merged.MatchTier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetEntity_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("get_entity").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	s := NewPostgresWithPool(mock)
	e, err := s.GetEntity(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestPostgresListEntities(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	merged, err := json.Marshal(testEntity().Merged)
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery("list_entities").
		WithArgs(100, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "slug", "entity_type", "merged", "created_at", "updated_at"}).
			AddRow("a", "alpha", "place", merged, now, now).
			AddRow("b", "beta", "place", merged, now, now))

	s := NewPostgresWithPool(mock)
	entities, err := s.ListEntities(context.Background(), 0, 0) // limit <= 0 defaults to 100
	require.NoError(t, err)
	require.Len(t, entities, 2)

	assert.Equal(t, "alpha", entities[0].Slug)
	assert.Equal(t, "beta", entities[1].Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS entities").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
