package fixture

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// ValidateOption configures a validation pass.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	source      ContentSource
	comparators map[string]Comparator
}

// WithSource makes validation read every record's file from src. Unreadable
// files are reported as KindMissingFile and the contents feed comparators.
func WithSource(src ContentSource) ValidateOption {
	return func(c *validateConfig) { c.source = src }
}

// WithComparator registers c for derived records whose Transform equals
// transform. The empty transform matches derived records that declare none.
func WithComparator(transform string, c Comparator) ValidateOption {
	return func(cfg *validateConfig) {
		if cfg.comparators == nil {
			cfg.comparators = make(map[string]Comparator)
		}
		cfg.comparators[transform] = c
	}
}

// WithComparators registers every comparator in m by transform name.
func WithComparators(m map[string]Comparator) ValidateOption {
	return func(cfg *validateConfig) {
		for name, c := range m {
			WithComparator(name, c)(cfg)
		}
	}
}

// mark is the DFS state of a node during cycle detection.
type mark int

const (
	unvisited mark = iota
	visiting
	visited
)

// kindRank fixes the order of violations reported for the same fixture.
var kindRank = map[ViolationKind]int{
	KindMissingFile:        0,
	KindDanglingReference:  1,
	KindCyclicDerivation:   2,
	KindDerivationMismatch: 3,
	KindDigestDrift:        4,
}

// Validate checks the provenance of records: derived records must reference
// a known source, the derived_from graph must be acyclic, files must be
// readable when a source is given, and derived files must satisfy their
// registered comparator. All problems are collected; data issues never stop
// the pass. The result is nil when nothing is wrong.
func Validate(records []Record, opts ...ValidateOption) []Violation {
	var cfg validateConfig
	for _, o := range opts {
		o(&cfg)
	}

	index := make(map[string]int, len(records))
	for i, r := range records {
		if _, dup := index[r.Name]; !dup {
			index[r.Name] = i
		}
	}

	var out []Violation

	contents := make(map[string][]byte, len(records))
	if cfg.source != nil {
		for _, r := range records {
			data, err := cfg.source.Content(r.Name)
			if err != nil {
				out = append(out, Violation{
					Kind:    KindMissingFile,
					Fixture: r.Name,
					Detail:  err.Error(),
				})
				continue
			}
			contents[r.Name] = data
		}
	}

	for _, r := range records {
		if !r.IsDerived() {
			continue
		}
		if _, ok := index[r.DerivedFrom]; !ok {
			out = append(out, Violation{
				Kind:    KindDanglingReference,
				Fixture: r.Name,
				Detail:  fmt.Sprintf("derived_from %q is not registered", r.DerivedFrom),
			})
			continue
		}
		if v, ok := checkDerivation(r, contents, &cfg); !ok {
			out = append(out, v)
		}
	}

	out = append(out, findCycles(records, index)...)

	slices.SortStableFunc(out, func(a, b Violation) int {
		if c := cmp.Compare(index[a.Fixture], index[b.Fixture]); c != 0 {
			return c
		}
		return cmp.Compare(kindRank[a.Kind], kindRank[b.Kind])
	})
	return out
}

// checkDerivation runs the comparator registered for r.Transform. It returns
// ok=true when no comparator applies or either file is unavailable.
func checkDerivation(r Record, contents map[string][]byte, cfg *validateConfig) (Violation, bool) {
	c, ok := cfg.comparators[r.Transform]
	if !ok || c == nil {
		return Violation{}, true
	}
	src, ok := contents[r.DerivedFrom]
	if !ok {
		return Violation{}, true
	}
	derived, ok := contents[r.Name]
	if !ok {
		return Violation{}, true
	}
	if c.Matches(src, derived) {
		return Violation{}, true
	}
	transform := r.Transform
	if transform == "" {
		transform = "default"
	}
	return Violation{
		Kind:    KindDerivationMismatch,
		Fixture: r.Name,
		Detail:  fmt.Sprintf("%s comparison against %q failed", transform, r.DerivedFrom),
	}, false
}

// findCycles walks the derived_from edges depth-first and reports each
// cycle once, attributed to the node where the walk re-entered it.
func findCycles(records []Record, index map[string]int) []Violation {
	marks := make([]mark, len(records))
	var stack []string
	var out []Violation

	var visit func(i int)
	visit = func(i int) {
		marks[i] = visiting
		stack = append(stack, records[i].Name)

		if r := records[i]; r.IsDerived() {
			if j, ok := index[r.DerivedFrom]; ok {
				switch marks[j] {
				case unvisited:
					visit(j)
				case visiting:
					start := slices.Index(stack, records[j].Name)
					path := append(slices.Clone(stack[start:]), records[j].Name)
					out = append(out, Violation{
						Kind:    KindCyclicDerivation,
						Fixture: records[j].Name,
						Detail:  strings.Join(path, " -> "),
					})
				}
			}
		}

		stack = stack[:len(stack)-1]
		marks[i] = visited
	}

	for i := range records {
		if index[records[i].Name] == i && marks[i] == unvisited {
			visit(i)
		}
	}
	return out
}
