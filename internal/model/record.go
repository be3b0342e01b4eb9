// Package model holds the data types shared by the matcher and the merge
// engine: source records, entity groups, field values with provenance, and
// the recursive Value type for module payloads.
package model

// DefaultConfidence is assumed for any field a record does not score.
const DefaultConfidence = 0.5

// SourceRecord is one schema-normalized observation of an entity from a
// single source. Records are inputs only; the engine never mutates them.
type SourceRecord struct {
	// SourceID names the producing source and keys the trust catalog.
	SourceID string `json:"source_id"`

	// RecordID is unique within a batch and is the final deterministic
	// tie-breaker everywhere ordering matters.
	RecordID int64 `json:"record_id"`

	EntityType string `json:"entity_type"`

	// Fields holds the scalar field values as decoded JSON.
	Fields map[string]any `json:"fields"`

	// Confidence optionally scores individual fields; absent fields read
	// as DefaultConfidence.
	Confidence map[string]float64 `json:"confidence,omitempty"`

	// ExternalIDs maps identifier system name to the record's identifier
	// in that system, the strongest matching signal.
	ExternalIDs map[string]string `json:"external_ids,omitempty"`

	// CanonicalArrays holds closed-vocabulary tag lists per dimension.
	CanonicalArrays map[string][]string `json:"canonical_arrays,omitempty"`

	// Modules holds nested JSON payloads merged recursively per top-level
	// key.
	Modules map[string]any `json:"modules,omitempty"`
}

// FieldConfidence returns the record's confidence for a field, or
// DefaultConfidence when none was supplied.
func (r SourceRecord) FieldConfidence(field string) float64 {
	if c, ok := r.Confidence[field]; ok {
		return c
	}
	return DefaultConfidence
}

// MatchTier identifies which pass of the matching cascade confirmed a
// group. Higher values are stronger signals; the ordering is load-bearing
// for the weak-group upgrade rule.
type MatchTier int

const (
	TierNone MatchTier = iota
	TierFingerprint
	TierFuzzy
	TierGeoName
	TierExternalID
)

// Strong reports whether the tier is trusted enough to anchor a group on
// its own. Fuzzy and fingerprint links are corroborating signals only.
func (t MatchTier) Strong() bool {
	return t >= TierGeoName
}

func (t MatchTier) String() string {
	switch t {
	case TierExternalID:
		return "external_id"
	case TierGeoName:
		return "geo_name"
	case TierFuzzy:
		return "fuzzy_name"
	case TierFingerprint:
		return "fingerprint"
	default:
		return "none"
	}
}

// EntityGroup is one matcher output: the records judged to describe the
// same real-world entity, tagged with the strongest tier that linked them.
type EntityGroup struct {
	Records []SourceRecord
	Tier    MatchTier
}
