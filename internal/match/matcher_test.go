package match

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/resolve-cli/internal/model"
)

func TestMatch_ExternalIDJoinsRegardlessOfName(t *testing.T) {
	// Scenario: identical places_api IDs join even with zero name overlap.
	records := []model.SourceRecord{
		{
			SourceID: "gp", RecordID: 1, EntityType: "place",
			Fields:      map[string]any{"name": "Padel Club London"},
			ExternalIDs: map[string]string{"places_api": "X123"},
		},
		{
			SourceID: "ss", RecordID: 2, EntityType: "place",
			Fields:      map[string]any{"name": "Completely Different Venue"},
			ExternalIDs: map[string]string{"places_api": "X123"},
		},
	}

	groups := New(Config{}).Match(records)

	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Records, 2)
	assert.Equal(t, model.TierExternalID, groups[0].Tier)
}

func TestMatch_MissingExternalIDIgnored(t *testing.T) {
	records := []model.SourceRecord{
		{
			SourceID: "gp", RecordID: 1, EntityType: "place",
			Fields:      map[string]any{"name": "Alpha"},
			ExternalIDs: map[string]string{"places_api": ""},
		},
		{
			SourceID: "ss", RecordID: 2, EntityType: "place",
			Fields:      map[string]any{"name": "Beta"},
			ExternalIDs: map[string]string{"places_api": "  "},
		},
	}

	groups := New(Config{}).Match(records)
	assert.Len(t, groups, 2)
}

func TestMatch_GeoNameTier(t *testing.T) {
	records := []model.SourceRecord{
		{
			SourceID: "gp", RecordID: 1, EntityType: "place",
			Fields: map[string]any{"name": "Padel Club", "latitude": 51.50742, "longitude": -0.12784},
		},
		{
			SourceID: "osm", RecordID: 2, EntityType: "place",
			Fields: map[string]any{"name": "PADEL CLUB", "latitude": 51.50738, "longitude": -0.12776},
		},
	}

	groups := New(Config{}).Match(records)

	require.Len(t, groups, 1)
	assert.Equal(t, model.TierGeoName, groups[0].Tier)
}

func TestMatch_FuzzyNameWeakGroup(t *testing.T) {
	records := []model.SourceRecord{
		{
			SourceID: "gp", RecordID: 1, EntityType: "place",
			Fields: map[string]any{"name": "The Padel Club London"},
		},
		{
			SourceID: "ss", RecordID: 2, EntityType: "place",
			Fields: map[string]any{"name": "Padel Club London"},
		},
	}

	groups := New(Config{FuzzyThreshold: 85}).Match(records)

	require.Len(t, groups, 1)
	assert.Equal(t, model.TierFuzzy, groups[0].Tier)
	assert.False(t, groups[0].Tier.Strong())
}

func TestMatch_FuzzyBelowThresholdStaysApart(t *testing.T) {
	records := []model.SourceRecord{
		{SourceID: "gp", RecordID: 1, EntityType: "place", Fields: map[string]any{"name": "Padel Club"}},
		{SourceID: "ss", RecordID: 2, EntityType: "place", Fields: map[string]any{"name": "Padel Club Riverside Arena"}},
	}

	groups := New(Config{FuzzyThreshold: 85}).Match(records)
	assert.Len(t, groups, 2)
}

func TestMatch_WeakMemberJoinsStrongGroupAndIsRetained(t *testing.T) {
	// A and B share a strong identifier; C only fuzzy-matches B's name.
	// C is merged in, and the group keeps the strong tier with all three
	// members retained.
	records := []model.SourceRecord{
		{
			SourceID: "gp", RecordID: 1, EntityType: "place",
			Fields:      map[string]any{"name": "Padel Club London"},
			ExternalIDs: map[string]string{"places_api": "X123"},
		},
		{
			SourceID: "ss", RecordID: 2, EntityType: "place",
			Fields:      map[string]any{"name": "Padel Club London"},
			ExternalIDs: map[string]string{"places_api": "X123"},
		},
		{
			SourceID: "sp", RecordID: 3, EntityType: "place",
			Fields: map[string]any{"name": "The Padel Club London"},
		},
	}

	groups := New(Config{}).Match(records)

	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Records, 3)
	assert.Equal(t, model.TierExternalID, groups[0].Tier)
}

func TestMatch_FingerprintGroupsExactDuplicates(t *testing.T) {
	// No external IDs, no coordinates, no names: only the content hash
	// can group these true duplicates.
	records := []model.SourceRecord{
		{SourceID: "a", RecordID: 1, EntityType: "place", Fields: map[string]any{"phone": "+441234"}},
		{SourceID: "b", RecordID: 2, EntityType: "place", Fields: map[string]any{"phone": "+441234"}},
		{SourceID: "c", RecordID: 3, EntityType: "place", Fields: map[string]any{"phone": "+449999"}},
	}

	groups := New(Config{}).Match(records)

	require.Len(t, groups, 2)
	assert.Equal(t, model.TierFingerprint, groups[0].Tier)
	assert.Len(t, groups[0].Records, 2)
	assert.Equal(t, model.TierNone, groups[1].Tier)
}

func TestMatch_NoSignalRecordBecomesSingleton(t *testing.T) {
	records := []model.SourceRecord{
		{SourceID: "a", RecordID: 1, EntityType: "place", Fields: map[string]any{}},
	}

	groups := New(Config{}).Match(records)

	require.Len(t, groups, 1)
	assert.Equal(t, model.TierNone, groups[0].Tier)
}

func TestMatch_InputOrderIndependent(t *testing.T) {
	records := []model.SourceRecord{
		{
			SourceID: "gp", RecordID: 1, EntityType: "place",
			Fields:      map[string]any{"name": "Padel Club London"},
			ExternalIDs: map[string]string{"places_api": "X123"},
		},
		{
			SourceID: "ss", RecordID: 2, EntityType: "place",
			Fields:      map[string]any{"name": "Padel Club"},
			ExternalIDs: map[string]string{"places_api": "X123"},
		},
		{
			SourceID: "sp", RecordID: 3, EntityType: "place",
			Fields: map[string]any{"name": "Tennis Centre", "latitude": 51.2, "longitude": 0.4},
		},
	}

	m := New(Config{})
	baseline, err := json.Marshal(m.Match(records))
	require.NoError(t, err)

	reversed := []model.SourceRecord{records[2], records[1], records[0]}
	got, err := json.Marshal(m.Match(reversed))
	require.NoError(t, err)

	assert.Equal(t, string(baseline), string(got))
}

func TestFingerprint_NormalizesStringsAndSkipsMissing(t *testing.T) {
	a := model.SourceRecord{EntityType: "place", Fields: map[string]any{"name": "  Padel Club ", "phone": nil}}
	b := model.SourceRecord{EntityType: "place", Fields: map[string]any{"name": "padel club"}}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_DiffersByEntityType(t *testing.T) {
	a := model.SourceRecord{EntityType: "place", Fields: map[string]any{"name": "x"}}
	b := model.SourceRecord{EntityType: "organization", Fields: map[string]any{"name": "x"}}

	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
