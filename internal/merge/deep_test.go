package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/resolve-cli/internal/model"
)

func mv(t *testing.T, raw any, source string, trust float64) moduleValue {
	t.Helper()
	meta, err := model.NewFieldValue(nil, source, trust, 0.5)
	require.NoError(t, err)
	return moduleValue{val: model.FromJSON(raw), meta: meta}
}

func TestDeepMerge_DisjointObjectKeysUnion(t *testing.T) {
	a := mv(t, map[string]any{"padel_courts": map[string]any{"total": 3.0}}, "a", 90)
	b := mv(t, map[string]any{"tennis_courts": map[string]any{"total": 2.0}}, "b", 70)

	merged := deepMerge("modules.sports_facility", []moduleValue{a, b})

	assert.Equal(t, map[string]any{
		"padel_courts":  map[string]any{"total": 3.0},
		"tennis_courts": map[string]any{"total": 2.0},
	}, merged.ToJSON())
}

func TestDeepMerge_SharedKeyRecurses(t *testing.T) {
	a := mv(t, map[string]any{"courts": map[string]any{"indoor": 4.0}}, "a", 90)
	b := mv(t, map[string]any{"courts": map[string]any{"outdoor": 2.0}}, "b", 70)

	merged := deepMerge("modules.facility", []moduleValue{a, b})

	assert.Equal(t, map[string]any{
		"courts": map[string]any{"indoor": 4.0, "outdoor": 2.0},
	}, merged.ToJSON())
}

func TestDeepMerge_ScalarListsUnionSorted(t *testing.T) {
	a := mv(t, []any{"wifi", "parking"}, "a", 90)
	b := mv(t, []any{"parking", "cafe"}, "b", 70)

	merged := deepMerge("modules.amenities", []moduleValue{a, b})

	assert.Equal(t, []any{"cafe", "parking", "wifi"}, merged.ToJSON())
}

func TestDeepMerge_TypeMismatchResolvedWholesale(t *testing.T) {
	// The higher-trust subtree wins the whole node, no partial
	// interleaving.
	a := mv(t, map[string]any{"hours": map[string]any{"mon": "9-5"}}, "a", 90)
	b := mv(t, map[string]any{"hours": "9-5 weekdays"}, "b", 70)

	merged := deepMerge("modules.opening", []moduleValue{a, b})

	assert.Equal(t, map[string]any{
		"hours": map[string]any{"mon": "9-5"},
	}, merged.ToJSON())
}

func TestDeepMerge_ShapeConflictBreaksTrustTiesByConfidence(t *testing.T) {
	// Equal trust: confidence decides the wholesale winner even though the
	// losing source sorts first by source_id.
	low, err := model.NewFieldValue(nil, "aa", 70, 0.4)
	require.NoError(t, err)
	high, err := model.NewFieldValue(nil, "zz", 70, 0.9)
	require.NoError(t, err)

	a := moduleValue{val: model.FromJSON("9-5 weekdays"), meta: low}
	b := moduleValue{val: model.FromJSON(map[string]any{"mon": "9-5"}), meta: high}

	merged := deepMerge("modules.hours", []moduleValue{a, b})

	assert.Equal(t, map[string]any{"mon": "9-5"}, merged.ToJSON())
}

func TestDeepMerge_ObjectListResolvedWholesale(t *testing.T) {
	a := mv(t, []any{map[string]any{"name": "court 1"}}, "a", 90)
	b := mv(t, []any{map[string]any{"name": "court 2"}}, "b", 70)

	merged := deepMerge("modules.courts", []moduleValue{a, b})

	assert.Equal(t, []any{map[string]any{"name": "court 1"}}, merged.ToJSON())
}

func TestDeepMerge_SingleCandidateShortCircuits(t *testing.T) {
	a := mv(t, map[string]any{"total": 3.0}, "a", 50)

	merged := deepMerge("modules.x", []moduleValue{a})

	assert.Equal(t, map[string]any{"total": 3.0}, merged.ToJSON())
}

func TestDeepMerge_NullLeavesStripped(t *testing.T) {
	a := mv(t, map[string]any{"total": 3.0, "note": nil, "label": "n/a"}, "a", 90)
	b := mv(t, map[string]any{"extra": nil}, "b", 70)

	merged := deepMerge("modules.x", []moduleValue{a, b})

	assert.Equal(t, map[string]any{"total": 3.0}, merged.ToJSON())
}

func TestDeepMerge_AllNullIsNull(t *testing.T) {
	a := mv(t, nil, "a", 90)
	b := mv(t, map[string]any{"only": nil}, "b", 70)

	merged := deepMerge("modules.x", []moduleValue{a, b})

	assert.True(t, merged.IsNull())
}

func TestPrune_EmptyContainersCollapse(t *testing.T) {
	v := model.FromJSON(map[string]any{
		"empty_obj": map[string]any{"inner": nil},
		"empty_arr": []any{nil, "   "},
	})
	assert.True(t, prune(v).IsNull())
}
