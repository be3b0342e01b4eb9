package model

import "github.com/rotisserie/eris"

// MergedSource is the synthetic provenance source recorded for values that
// no single source dictates (canonical-array unions, multi-source module
// merges).
const MergedSource = "merged"

// FieldValue is the atomic unit the merge engine reasons about: one
// candidate value with the metadata the tie-break cascade needs.
type FieldValue struct {
	Value      any     `json:"value"`
	SourceID   string  `json:"source_id"`
	Trust      float64 `json:"trust"`
	Confidence float64 `json:"confidence"`
}

// NewFieldValue constructs a validated FieldValue. Source and trust
// metadata are the entire basis for merge correctness, so a missing source
// or negative trust is rejected rather than defaulted.
func NewFieldValue(value any, sourceID string, trust, confidence float64) (FieldValue, error) {
	if sourceID == "" {
		return FieldValue{}, eris.New("model: field value requires a source_id")
	}
	if trust < 0 {
		return FieldValue{}, eris.Errorf("model: field value for source %q has negative trust %v", sourceID, trust)
	}
	return FieldValue{
		Value:      value,
		SourceID:   sourceID,
		Trust:      trust,
		Confidence: confidence,
	}, nil
}

// Origin is the provenance entry recorded for a winning field value.
type Origin struct {
	SourceID   string  `json:"source_id"`
	Trust      float64 `json:"trust"`
	Confidence float64 `json:"confidence"`
}

// Origin returns the provenance entry for this value.
func (fv FieldValue) Origin() Origin {
	return Origin{SourceID: fv.SourceID, Trust: fv.Trust, Confidence: fv.Confidence}
}

// MergedOrigin is the provenance entry for synthetic merged values.
func MergedOrigin() Origin {
	return Origin{SourceID: MergedSource}
}

// MergedEntity is the canonical record produced for one entity group:
// exactly one value per field plus the provenance of each winner.
type MergedEntity struct {
	EntityType      string              `json:"entity_type"`
	Fields          map[string]any      `json:"fields"`
	CanonicalArrays map[string][]string `json:"canonical_arrays,omitempty"`
	Modules         map[string]any      `json:"modules,omitempty"`

	// Provenance maps field name (and "modules.<key>" for module trees)
	// to the origin of the winning value.
	Provenance map[string]Origin `json:"provenance"`

	// MatchTier records how the group behind this entity was confirmed.
	MatchTier string `json:"match_tier"`

	// Sources lists the contributing source IDs in deterministic order.
	Sources []string `json:"sources"`
}
