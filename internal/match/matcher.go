package match

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/resolve-cli/internal/merge"
	"github.com/sells-group/resolve-cli/internal/model"
)

// Config tunes the matching cascade.
type Config struct {
	// FuzzyThreshold is the minimum token-set ratio (0-100) for a tier-3
	// weak match.
	FuzzyThreshold int
	// GeoPrecision is the number of decimal degrees the tier-2 key rounds
	// coordinates to.
	GeoPrecision int
	// NameField, LatField, LngField name the fields the geo and fuzzy
	// tiers read.
	NameField string
	LatField  string
	LngField  string
}

// DefaultConfig returns the standard cascade tuning.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold: 85,
		GeoPrecision:   3,
		NameField:      "name",
		LatField:       "latitude",
		LngField:       "longitude",
	}
}

// Matcher partitions record batches into entity groups. Matching is pure
// and deterministic: the same batch in any order yields the same groups.
type Matcher struct {
	cfg Config
}

// New creates a matcher, filling zero config values from DefaultConfig.
func New(cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = def.FuzzyThreshold
	}
	if cfg.GeoPrecision <= 0 {
		cfg.GeoPrecision = def.GeoPrecision
	}
	if cfg.NameField == "" {
		cfg.NameField = def.NameField
	}
	if cfg.LatField == "" {
		cfg.LatField = def.LatField
	}
	if cfg.LngField == "" {
		cfg.LngField = def.LngField
	}
	return &Matcher{cfg: cfg}
}

// Match runs the four-tier cascade over a batch:
//
//  1. strong external-identifier match
//  2. normalized name + rounded coordinates
//  3. fuzzy token-set name similarity (weak)
//  4. content fingerprint fallback
//
// Membership is monotonic: tiers only add links, never remove members. A
// weak group that a strong link later touches is promoted to the strong
// tier with every member retained.
func (m *Matcher) Match(records []model.SourceRecord) []model.EntityGroup {
	log := zap.L().With(zap.String("component", "matcher"))

	// Work over a canonically ordered copy so group assembly does not
	// depend on caller ordering.
	recs := make([]model.SourceRecord, len(records))
	copy(recs, records)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].RecordID < recs[j].RecordID })

	uf := newUnionFind(len(recs))

	// Tier 1: identical non-missing external identifier pairs.
	links := m.unionByKey(uf, recs, model.TierExternalID, func(r model.SourceRecord) []string {
		var keys []string
		for sys, id := range r.ExternalIDs {
			if merge.IsMissing(sys) || merge.IsMissing(id) {
				continue
			}
			keys = append(keys, strings.TrimSpace(sys)+"\x00"+strings.TrimSpace(id))
		}
		return keys
	})
	log.Debug("match tier 1 complete", zap.Int("links", links))

	// Tier 2: normalized name + rounded coordinates.
	links = m.unionByKey(uf, recs, model.TierGeoName, func(r model.SourceRecord) []string {
		key, ok := geoNameKey(r, m.cfg.NameField, m.cfg.LatField, m.cfg.LngField, m.cfg.GeoPrecision)
		if !ok {
			return nil
		}
		return []string{key}
	})
	log.Debug("match tier 2 complete", zap.Int("links", links))

	// Tier 3: fuzzy name similarity for records the strong tiers left
	// ungrouped. Candidates compare against every record, grouped or not,
	// so a weak match can join an existing strong group (and a weak group
	// is upgraded rather than dropped when the link lands).
	ungrouped := uf.singletons()
	links = 0
	for _, i := range ungrouped {
		nameI, _ := recs[i].Fields[m.cfg.NameField].(string)
		if NormalizeName(nameI) == "" {
			continue
		}
		for j := range recs {
			if i == j {
				continue
			}
			nameJ, _ := recs[j].Fields[m.cfg.NameField].(string)
			if TokenSetRatio(nameI, nameJ) >= m.cfg.FuzzyThreshold {
				if uf.union(i, j, model.TierFuzzy) {
					links++
				}
			}
		}
	}
	log.Debug("match tier 3 complete", zap.Int("links", links))

	// Tier 4: exact content fingerprint for whatever is still alone.
	remaining := uf.singletons()
	byHash := make(map[string][]int)
	for _, i := range remaining {
		h := Fingerprint(recs[i])
		byHash[h] = append(byHash[h], i)
	}
	links = 0
	for _, members := range byHash {
		for k := 1; k < len(members); k++ {
			if uf.union(members[0], members[k], model.TierFingerprint) {
				links++
			}
		}
	}
	log.Debug("match tier 4 complete", zap.Int("links", links))

	groups := uf.groups(recs)
	log.Info("match complete",
		zap.Int("records", len(recs)),
		zap.Int("groups", len(groups)),
	)
	return groups
}

// unionByKey buckets records by the keys the extractor yields and unions
// every bucket. Buckets are processed in sorted key order for determinism.
func (m *Matcher) unionByKey(uf *unionFind, recs []model.SourceRecord, tier model.MatchTier, keysOf func(model.SourceRecord) []string) int {
	buckets := make(map[string][]int)
	for i, r := range recs {
		for _, key := range keysOf(r) {
			buckets[key] = append(buckets[key], i)
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	links := 0
	for _, k := range keys {
		members := buckets[k]
		for i := 1; i < len(members); i++ {
			if uf.union(members[0], members[i], tier) {
				links++
			}
		}
	}
	return links
}

// unionFind is a disjoint-set forest tracking, per component, the highest
// tier that confirmed any link inside it.
type unionFind struct {
	parent []int
	size   []int
	tier   []model.MatchTier
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		size:   make([]int, n),
		tier:   make([]model.MatchTier, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
		uf.tier[i] = model.TierNone
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// union links two components and records the tier of the link. The merged
// component keeps the highest tier seen, which is exactly the weak-group
// upgrade rule. Reports whether a new link was made.
func (uf *unionFind) union(a, b int, tier model.MatchTier) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		if tier > uf.tier[ra] {
			uf.tier[ra] = tier
		}
		return false
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	if uf.tier[rb] > uf.tier[ra] {
		uf.tier[ra] = uf.tier[rb]
	}
	if tier > uf.tier[ra] {
		uf.tier[ra] = tier
	}
	return true
}

// singletons returns the indices still in single-member components.
func (uf *unionFind) singletons() []int {
	var out []int
	for i := range uf.parent {
		if uf.find(i) == i && uf.size[i] == 1 {
			out = append(out, i)
		}
	}
	return out
}

// groups materializes the components as entity groups. Members keep
// RecordID order; groups order by their smallest RecordID.
func (uf *unionFind) groups(recs []model.SourceRecord) []model.EntityGroup {
	byRoot := make(map[int][]int)
	for i := range recs {
		root := uf.find(i)
		byRoot[root] = append(byRoot[root], i)
	}

	roots := make([]int, 0, len(byRoot))
	for root := range byRoot {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool {
		return byRoot[roots[i]][0] < byRoot[roots[j]][0]
	})

	out := make([]model.EntityGroup, 0, len(roots))
	for _, root := range roots {
		members := byRoot[root]
		group := model.EntityGroup{
			Records: make([]model.SourceRecord, 0, len(members)),
			Tier:    uf.tier[root],
		}
		for _, i := range members {
			group.Records = append(group.Records, recs[i])
		}
		out = append(out, group)
	}
	return out
}
