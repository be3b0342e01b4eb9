package merge

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/resolve-cli/internal/model"
)

// cascadeLess is the shared tie-break cascade: trust descending, confidence
// descending, source_id ascending. Every scalar strategy ends here, and it
// is the only place source_id influences a merge decision.
func cascadeLess(a, b model.FieldValue) bool {
	if a.Trust != b.Trust {
		return a.Trust > b.Trust
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.SourceID < b.SourceID
}

// sortByCascade orders candidates by the tie-break cascade in place.
func sortByCascade(cands []model.FieldValue) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cascadeLess(cands[i], cands[j])
	})
}

// dropMissing filters out candidates whose value is absent per IsMissing.
func dropMissing(cands []model.FieldValue) []model.FieldValue {
	kept := cands[:0:0]
	for _, c := range cands {
		if !IsMissing(c.Value) {
			kept = append(kept, c)
		}
	}
	return kept
}

// pickDefault resolves a scalar field: among non-missing candidates, the
// tie-break cascade picks the winner. Returns false when every candidate
// is missing, in which case the field is omitted from the merged entity.
func pickDefault(cands []model.FieldValue) (model.FieldValue, bool) {
	kept := dropMissing(cands)
	if len(kept) == 0 {
		return model.FieldValue{}, false
	}
	sortByCascade(kept)
	return kept[0], true
}

// pickGeo resolves a coordinate field. Presence outranks trust: dropping
// missing values first means a present low-trust coordinate always beats
// an absent high-trust one, and 0.0 counts as present. Among present
// values the usual cascade applies.
func pickGeo(cands []model.FieldValue) (model.FieldValue, bool) {
	return pickDefault(cands)
}

// pickNarrative resolves free text: longer non-missing text wins first,
// the cascade breaks length ties. Longer text from a lower-trust source is
// usually more informative than a terse string from a higher-trust one.
func pickNarrative(cands []model.FieldValue) (model.FieldValue, bool) {
	kept := dropMissing(cands)
	if len(kept) == 0 {
		return model.FieldValue{}, false
	}
	sort.SliceStable(kept, func(i, j int) bool {
		li, lj := narrativeLen(kept[i].Value), narrativeLen(kept[j].Value)
		if li != lj {
			return li > lj
		}
		return cascadeLess(kept[i], kept[j])
	})
	return kept[0], true
}

// narrativeLen counts runes, not bytes, so multibyte text is not
// over-weighted against ASCII of the same length.
func narrativeLen(v any) int {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(strings.TrimSpace(s))
	}
	return utf8.RuneCountInString(fmt.Sprintf("%v", v))
}

// mergeCanonical unions tag arrays across the group: each element trimmed
// and lowercased, deduplicated, sorted lexicographically. Missing elements
// are dropped. Returns nil when nothing survives.
func mergeCanonical(lists [][]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, tag := range list {
			norm := strings.ToLower(strings.TrimSpace(tag))
			if IsMissing(norm) {
				continue
			}
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
			out = append(out, norm)
		}
	}
	sort.Strings(out)
	return out
}
