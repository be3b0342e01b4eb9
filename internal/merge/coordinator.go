package merge

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/resolve-cli/internal/model"
	"github.com/sells-group/resolve-cli/internal/trust"
)

// Coordinator collapses one entity group into a canonical merged entity.
// It is a pure function per group: no state survives between calls and
// input records are never mutated.
type Coordinator struct {
	catalog *trust.Catalog
	schema  *model.Schema
}

// NewCoordinator creates a merge coordinator. The trust catalog is
// required; a nil schema falls back to the default field classification.
func NewCoordinator(catalog *trust.Catalog, schema *model.Schema) *Coordinator {
	if schema == nil {
		schema = model.DefaultSchema()
	}
	return &Coordinator{catalog: catalog, schema: schema}
}

// scoredRecord pairs a record with its trust score, looked up once so the
// pre-sort does not hammer the catalog.
type scoredRecord struct {
	rec   model.SourceRecord
	trust float64
}

// Merge resolves every field observed anywhere in the group and returns
// the canonical entity plus per-field provenance. An empty group is a
// matcher bug and fails loudly.
func (c *Coordinator) Merge(group model.EntityGroup) (*model.MergedEntity, error) {
	if len(group.Records) == 0 {
		return nil, eris.New("merge: empty entity group")
	}

	recs := c.sortGroup(group.Records)

	ent := &model.MergedEntity{
		Fields:     make(map[string]any),
		Provenance: make(map[string]model.Origin),
		MatchTier:  group.Tier.String(),
		Sources:    sourceList(recs),
	}

	// Scalar fields: union of names across the group, resolved per the
	// field's schema group.
	for _, field := range fieldNames(recs) {
		cands, err := c.candidates(recs, field)
		if err != nil {
			return nil, err
		}

		var winner model.FieldValue
		var ok bool
		switch c.schema.Group(field) {
		case model.GroupGeo:
			winner, ok = pickGeo(cands)
		case model.GroupNarrative:
			winner, ok = pickNarrative(cands)
		default:
			winner, ok = pickDefault(cands)
		}
		if !ok {
			continue // universally missing: omit
		}
		ent.Fields[field] = winner.Value
		ent.Provenance[field] = winner.Origin()
	}

	// Entity type resolves through the default cascade.
	typeCands := make([]model.FieldValue, 0, len(recs))
	for _, sr := range recs {
		fv, err := model.NewFieldValue(sr.rec.EntityType, sr.rec.SourceID, sr.trust, model.DefaultConfidence)
		if err != nil {
			return nil, err
		}
		typeCands = append(typeCands, fv)
	}
	if winner, ok := pickDefault(typeCands); ok {
		ent.EntityType = winner.Value.(string)
		ent.Provenance["entity_type"] = winner.Origin()
	}

	// Canonical arrays: set union per dimension, synthetic provenance.
	for _, dim := range dimensionNames(recs) {
		var lists [][]string
		for _, sr := range recs {
			if tags, ok := sr.rec.CanonicalArrays[dim]; ok {
				lists = append(lists, tags)
			}
		}
		merged := mergeCanonical(lists)
		if len(merged) == 0 {
			continue
		}
		if ent.CanonicalArrays == nil {
			ent.CanonicalArrays = make(map[string][]string)
		}
		ent.CanonicalArrays[dim] = merged
		ent.Provenance[dim] = model.MergedOrigin()
	}

	// Modules: deep recursive merge per top-level module key.
	for _, key := range moduleNames(recs) {
		var cands []moduleValue
		for _, sr := range recs {
			raw, ok := sr.rec.Modules[key]
			if !ok {
				continue
			}
			meta, err := model.NewFieldValue(nil, sr.rec.SourceID, sr.trust, sr.rec.FieldConfidence(key))
			if err != nil {
				return nil, err
			}
			cands = append(cands, moduleValue{val: model.FromJSON(raw), meta: meta})
		}
		merged := deepMerge("modules."+key, cands)
		if merged.IsNull() {
			continue
		}
		if ent.Modules == nil {
			ent.Modules = make(map[string]any)
		}
		ent.Modules[key] = merged.ToJSON()
		if len(cands) == 1 {
			ent.Provenance["modules."+key] = cands[0].meta.Origin()
		} else {
			ent.Provenance["modules."+key] = model.MergedOrigin()
		}
	}

	zap.L().Debug("merge: group resolved",
		zap.Int("records", len(recs)),
		zap.String("tier", ent.MatchTier),
		zap.Int("fields", len(ent.Fields)),
	)

	return ent, nil
}

// sortGroup orders records by (trust desc, source_id asc, record_id asc).
// This unconditional pre-sort is what makes the merge independent of
// matcher assembly order and database fetch order.
func (c *Coordinator) sortGroup(records []model.SourceRecord) []scoredRecord {
	out := make([]scoredRecord, 0, len(records))
	for _, r := range records {
		out = append(out, scoredRecord{rec: r, trust: c.catalog.Trust(r.SourceID)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.trust != b.trust {
			return a.trust > b.trust
		}
		if a.rec.SourceID != b.rec.SourceID {
			return a.rec.SourceID < b.rec.SourceID
		}
		return a.rec.RecordID < b.rec.RecordID
	})
	return out
}

// candidates builds the cascade input for one field from records that
// observed it. Absent keys contribute nothing; missing values are filtered
// by the strategies themselves.
func (c *Coordinator) candidates(recs []scoredRecord, field string) ([]model.FieldValue, error) {
	var out []model.FieldValue
	for _, sr := range recs {
		raw, ok := sr.rec.Fields[field]
		if !ok {
			continue
		}
		fv, err := model.NewFieldValue(raw, sr.rec.SourceID, sr.trust, sr.rec.FieldConfidence(field))
		if err != nil {
			return nil, eris.Wrapf(err, "merge: field %q", field)
		}
		out = append(out, fv)
	}
	return out, nil
}

func fieldNames(recs []scoredRecord) []string {
	set := make(map[string]struct{})
	for _, sr := range recs {
		for name := range sr.rec.Fields {
			set[name] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func dimensionNames(recs []scoredRecord) []string {
	set := make(map[string]struct{})
	for _, sr := range recs {
		for name := range sr.rec.CanonicalArrays {
			set[name] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func moduleNames(recs []scoredRecord) []string {
	set := make(map[string]struct{})
	for _, sr := range recs {
		for name := range sr.rec.Modules {
			set[name] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sourceList returns the contributing source IDs, deduplicated, in the
// deterministic pre-sort order.
func sourceList(recs []scoredRecord) []string {
	seen := make(map[string]struct{}, len(recs))
	out := make([]string, 0, len(recs))
	for _, sr := range recs {
		if _, dup := seen[sr.rec.SourceID]; dup {
			continue
		}
		seen[sr.rec.SourceID] = struct{}{}
		out = append(out, sr.rec.SourceID)
	}
	return out
}
