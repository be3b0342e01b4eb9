package model

import "sort"

// Kind discriminates the closed set of shapes a module value can take.
// Deep merge switches exhaustively on Kind, so an unexpected shape is a
// compile-time concern rather than a runtime surprise.
type Kind int

const (
	// KindNull is an absent or JSON-null value.
	KindNull Kind = iota
	// KindScalar is a string, number, or boolean leaf.
	KindScalar
	// KindArray is an ordered list of values.
	KindArray
	// KindObject is a string-keyed map of values.
	KindObject
)

// Value is a recursive sum type over JSON-like module data. Exactly one of
// Scalar, Array, or Object is meaningful, selected by Kind.
type Value struct {
	Kind   Kind
	Scalar any
	Array  []Value
	Object map[string]Value
}

// Null is the absent value.
var Null = Value{Kind: KindNull}

// FromJSON converts a decoded JSON tree (map[string]any / []any / scalar)
// into a Value. Unrecognized Go types are treated as opaque scalars.
func FromJSON(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, child := range t {
			obj[k] = FromJSON(child)
		}
		return Value{Kind: KindObject, Object: obj}
	case []any:
		arr := make([]Value, 0, len(t))
		for _, child := range t {
			arr = append(arr, FromJSON(child))
		}
		return Value{Kind: KindArray, Array: arr}
	default:
		return Value{Kind: KindScalar, Scalar: v}
	}
}

// ToJSON converts a Value back into a plain JSON-encodable tree.
func (v Value) ToJSON() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindScalar:
		return v.Scalar
	case KindArray:
		out := make([]any, 0, len(v.Array))
		for _, child := range v.Array {
			out = append(out, child.ToJSON())
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Object))
		for k, child := range v.Object {
			out[k] = child.ToJSON()
		}
		return out
	default:
		return nil
	}
}

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// SortedKeys returns the object's keys in lexicographic order. Returns nil
// for non-object values.
func (v Value) SortedKeys() []string {
	if v.Kind != KindObject || len(v.Object) == 0 {
		return nil
	}
	keys := make([]string, 0, len(v.Object))
	for k := range v.Object {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
