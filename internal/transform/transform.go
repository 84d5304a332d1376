// Package transform provides the built-in comparators for documented
// derivations. Transformations whose semantics live in an external tool
// (such as flattening nested model objects) have no built-in comparator and
// must be registered by the caller.
package transform

import (
	"bytes"
	"reflect"

	json "github.com/goccy/go-json"

	"github.com/papapumpkin/fixreg/internal/fixture"
)

// Names of the built-in transformations.
const (
	Identical = "identical"
	JSON      = "json"
)

// Builtins returns a fresh map of the built-in comparators keyed by
// transform name, ready for fixture.WithComparators.
func Builtins() map[string]fixture.Comparator {
	return map[string]fixture.Comparator{
		Identical: fixture.ComparatorFunc(bytes.Equal),
		JSON:      fixture.ComparatorFunc(JSONEqual),
	}
}

// JSONEqual reports whether a and b decode to the same JSON value, ignoring
// whitespace and object key order. Invalid JSON on either side never matches.
func JSONEqual(a, b []byte) bool {
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}
