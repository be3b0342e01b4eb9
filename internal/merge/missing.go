// Package merge implements the deterministic field merge engine: per-field
// conflict resolution strategies, deep module merge, and the group
// coordinator that assembles canonical entities with provenance.
package merge

import "strings"

// placeholders is the curated set of sentinel strings that count as "no
// usable value". Compared after trimming and lowercasing.
var placeholders = map[string]struct{}{
	"n/a":     {},
	"none":    {},
	"null":    {},
	"unknown": {},
	"-":       {},
	"--":      {},
	"–":  {}, // en dash
	"—":  {}, // em dash
	"−":  {}, // minus sign
}

// IsMissing reports whether a raw field value counts as absent: nil, empty
// or whitespace-only strings, and placeholder sentinels. Numeric zero is
// never missing; 0.0 is a valid coordinate.
func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return true
		}
		_, ok := placeholders[strings.ToLower(s)]
		return ok
	default:
		return false
	}
}
