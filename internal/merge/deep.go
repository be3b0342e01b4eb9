package merge

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/resolve-cli/internal/model"
)

// moduleValue pairs a module subtree with the merge metadata of the record
// that contributed it. The cascade metadata decides wholesale winners when
// shapes disagree.
type moduleValue struct {
	val  model.Value
	meta model.FieldValue
}

// deepMerge recursively merges module subtrees. Candidates are ordered by
// the shared tie-break cascade (trust desc, confidence desc, source_id asc)
// before any shape decision, so wholesale winners honor confidence too.
//
// Shape rules:
//   - object vs object: union of keys in sorted order, recurse per key.
//   - array vs array of scalars: deduplicated union sorted by string form.
//   - any shape mismatch, or arrays containing objects: the whole subtree
//     from the cascade winner, logged as a recorded conflict.
//   - a single surviving candidate short-circuits to its value.
//
// Null and missing leaves are pruned first so they never reach the output.
func deepMerge(path string, cands []moduleValue) model.Value {
	kept := cands[:0:0]
	for _, c := range cands {
		pruned := prune(c.val)
		if pruned.IsNull() {
			continue
		}
		kept = append(kept, moduleValue{val: pruned, meta: c.meta})
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return cascadeLess(kept[i].meta, kept[j].meta)
	})

	switch len(kept) {
	case 0:
		return model.Null
	case 1:
		return kept[0].val
	}

	if allObjects(kept) {
		return mergeObjects(path, kept)
	}
	if allScalarArrays(kept) {
		return mergeScalarArrays(kept)
	}

	// Shape conflict: resolve wholesale at this node, no interleaving.
	winner := kept[0]
	zap.L().Warn("merge: module shape conflict, trust cascade wins subtree",
		zap.String("path", path),
		zap.String("winner_source", winner.meta.SourceID),
		zap.Int("candidates", len(kept)),
	)
	return winner.val
}

// prune strips null and missing leaves from a subtree. Containers that end
// up empty collapse to Null so they never survive into the output.
func prune(v model.Value) model.Value {
	switch v.Kind {
	case model.KindNull:
		return model.Null
	case model.KindScalar:
		if IsMissing(v.Scalar) {
			return model.Null
		}
		return v
	case model.KindArray:
		kept := make([]model.Value, 0, len(v.Array))
		for _, child := range v.Array {
			if p := prune(child); !p.IsNull() {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			return model.Null
		}
		return model.Value{Kind: model.KindArray, Array: kept}
	case model.KindObject:
		kept := make(map[string]model.Value, len(v.Object))
		for k, child := range v.Object {
			if p := prune(child); !p.IsNull() {
				kept[k] = p
			}
		}
		if len(kept) == 0 {
			return model.Null
		}
		return model.Value{Kind: model.KindObject, Object: kept}
	default:
		return model.Null
	}
}

func allObjects(cands []moduleValue) bool {
	for _, c := range cands {
		if c.val.Kind != model.KindObject {
			return false
		}
	}
	return true
}

// allScalarArrays reports whether every candidate is an array containing
// only scalar elements. Arrays with object or nested array elements fall
// back to wholesale resolution.
func allScalarArrays(cands []moduleValue) bool {
	for _, c := range cands {
		if c.val.Kind != model.KindArray {
			return false
		}
		for _, el := range c.val.Array {
			if el.Kind != model.KindScalar {
				return false
			}
		}
	}
	return true
}

// mergeObjects unions keys across candidate objects, iterating in sorted
// key order for determinism, and recurses per shared key.
func mergeObjects(path string, cands []moduleValue) model.Value {
	keySet := make(map[string]struct{})
	for _, c := range cands {
		for k := range c.val.Object {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]model.Value, len(keys))
	for _, k := range keys {
		var sub []moduleValue
		for _, c := range cands {
			if child, ok := c.val.Object[k]; ok {
				sub = append(sub, moduleValue{val: child, meta: c.meta})
			}
		}
		merged := deepMerge(path+"."+k, sub)
		if !merged.IsNull() {
			out[k] = merged
		}
	}
	if len(out) == 0 {
		return model.Null
	}
	return model.Value{Kind: model.KindObject, Object: out}
}

// mergeScalarArrays unions scalar elements across candidates, deduplicated
// by string form and sorted by string form. The first occurrence in
// cascade order supplies the kept element.
func mergeScalarArrays(cands []moduleValue) model.Value {
	seen := make(map[string]model.Value)
	var keys []string
	for _, c := range cands {
		for _, el := range c.val.Array {
			key := fmt.Sprintf("%v", el.Scalar)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = el
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := make([]model.Value, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return model.Value{Kind: model.KindArray, Array: out}
}
