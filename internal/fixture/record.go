// Package fixture models test fixture files and their documented provenance:
// where each file came from, which fixture it was derived from, and which
// tests read it. A Registry owns the records and validates the derivation
// graph; content checks are delegated to caller-supplied comparators.
package fixture

import (
	"fmt"
	"slices"
)

// Origin describes how a fixture file came to exist.
type Origin string

const (
	// OriginHandAuthored marks a file written by hand.
	OriginHandAuthored Origin = "hand-authored"
	// OriginPlatformExtracted marks a file pulled from the platform service.
	OriginPlatformExtracted Origin = "platform-extracted"
	// OriginDerived marks a file produced by transforming another fixture.
	OriginDerived Origin = "derived"
)

// ValidOrigins is the set of recognized origin values.
var ValidOrigins = map[Origin]bool{
	OriginHandAuthored:      true,
	OriginPlatformExtracted: true,
	OriginDerived:           true,
}

// Record describes one fixture file.
type Record struct {
	Name        string
	Origin      Origin
	Procedure   string   // how the file was produced
	DerivedFrom string   // source fixture name; only for OriginDerived
	Transform   string   // documented transformation, e.g. "flatten"
	Consumers   []string // test identifiers, sorted and unique
}

// NewRecord builds a record and checks its fields. Consumers are sorted and
// deduplicated.
func NewRecord(name string, origin Origin, procedure, derivedFrom string, consumers ...string) (Record, error) {
	r := Record{
		Name:        name,
		Origin:      origin,
		Procedure:   procedure,
		DerivedFrom: derivedFrom,
		Consumers:   normalizeConsumers(consumers),
	}
	if err := r.Check(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Check reports ErrInvalidRecord when a required field is empty or the
// origin and derived_from fields disagree.
func (r Record) Check() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidRecord)
	}
	if !ValidOrigins[r.Origin] {
		return fmt.Errorf("%w: %s: unknown origin %q", ErrInvalidRecord, r.Name, r.Origin)
	}
	if r.Origin == OriginDerived && r.DerivedFrom == "" {
		return fmt.Errorf("%w: %s: derived fixture has no derived_from", ErrInvalidRecord, r.Name)
	}
	if r.Origin != OriginDerived && r.DerivedFrom != "" {
		return fmt.Errorf("%w: %s: derived_from set on %s fixture", ErrInvalidRecord, r.Name, r.Origin)
	}
	return nil
}

// IsDerived reports whether the record was produced from another fixture.
func (r Record) IsDerived() bool {
	return r.Origin == OriginDerived
}

func (r Record) clone() Record {
	r.Consumers = slices.Clone(r.Consumers)
	return r
}

func normalizeConsumers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c != "" {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
