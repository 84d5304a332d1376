package fixture

import (
	"fmt"
	"slices"
	"strings"
)

// Lineage returns the derivation chain starting at name and ending at its
// root source, e.g. [flat.glm, model.glm]. It fails with ErrNotFound for an
// unknown name, ErrDanglingReference if the chain leaves the registry, and
// ErrCyclicDerivation if the chain loops.
func (g *Registry) Lineage(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rec, ok := g.records[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	chain := []string{name}
	seen := map[string]bool{name: true}
	for rec.IsDerived() {
		next, ok := g.records[rec.DerivedFrom]
		if !ok {
			return chain, fmt.Errorf("%w: %s derived from %s", ErrDanglingReference, rec.Name, rec.DerivedFrom)
		}
		if seen[next.Name] {
			return chain, fmt.Errorf("%w: %s", ErrCyclicDerivation, strings.Join(append(chain, next.Name), " -> "))
		}
		seen[next.Name] = true
		chain = append(chain, next.Name)
		rec = next
	}
	return chain, nil
}

// Dependents returns the names of records derived directly from name, in
// insertion order.
func (g *Registry) Dependents(name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.records[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var out []string
	for _, n := range g.order {
		if r := g.records[n]; r.IsDerived() && r.DerivedFrom == name {
			out = append(out, n)
		}
	}
	return out, nil
}

// Order returns record names so that every source precedes the fixtures
// derived from it. Ties keep insertion order. Dangling references are
// ignored; a cycle yields ErrCyclicDerivation.
func (g *Registry) Order() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Kahn's algorithm over derived → source edges.
	inDegree := make(map[string]int, len(g.order))
	reverse := make(map[string][]string, len(g.order))
	for _, n := range g.order {
		r := g.records[n]
		if _, ok := g.records[r.DerivedFrom]; r.IsDerived() && ok {
			inDegree[n] = 1
			reverse[r.DerivedFrom] = append(reverse[r.DerivedFrom], n)
		}
	}

	var queue []string
	for _, n := range g.order {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	sorted := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		sorted = append(sorted, n)
		for _, dep := range reverse[n] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(g.order) {
		var stuck []string
		for _, n := range g.order {
			if !slices.Contains(sorted, n) {
				stuck = append(stuck, n)
			}
		}
		return nil, fmt.Errorf("%w: cannot order %s", ErrCyclicDerivation, strings.Join(stuck, ", "))
	}
	return sorted, nil
}
