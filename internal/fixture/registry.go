package fixture

import (
	"fmt"
	"iter"
	"slices"
	"sync"
)

// Registry owns a set of fixture records keyed by unique name and preserves
// insertion order. It is safe for concurrent use: mutations take a write
// lock, lookups and validation share a read lock.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	records map[string]Record
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]Record)}
}

// Add registers rec. It returns ErrInvalidRecord if rec fails Check and
// ErrDuplicateName if the name is taken; the registry is unchanged on error.
func (g *Registry) Add(rec Record) error {
	if err := rec.Check(); err != nil {
		return err
	}
	rec = rec.clone()
	rec.Consumers = normalizeConsumers(rec.Consumers)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.records[rec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, rec.Name)
	}
	g.records[rec.Name] = rec
	g.order = append(g.order, rec.Name)
	return nil
}

// Get returns a copy of the record registered under name, or ErrNotFound.
func (g *Registry) Get(name string) (Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.records[name]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return rec.clone(), nil
}

// Remove deletes the record registered under name. Records derived from it
// are left in place and will report a dangling reference on validation.
func (g *Registry) Remove(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.records[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(g.records, name)
	g.order = slices.DeleteFunc(g.order, func(n string) bool { return n == name })
	return nil
}

// SetConsumers replaces the consumer set of the named record.
func (g *Registry) SetConsumers(name string, consumers ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rec.Consumers = normalizeConsumers(consumers)
	g.records[name] = rec
	return nil
}

// AddConsumer adds a test identifier to the named record's consumer set.
func (g *Registry) AddConsumer(name, consumer string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rec.Consumers = normalizeConsumers(append(slices.Clone(rec.Consumers), consumer))
	g.records[name] = rec
	return nil
}

// Len returns the number of registered records.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// Names returns record names in insertion order.
func (g *Registry) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.order)
}

// All returns a sequence of record copies in insertion order. Each range
// over the sequence takes a fresh snapshot, so it can be iterated again.
func (g *Registry) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, rec := range g.snapshot() {
			if !yield(rec) {
				return
			}
		}
	}
}

// Validate runs provenance validation over every registered record.
func (g *Registry) Validate(opts ...ValidateOption) []Violation {
	return Validate(g.snapshot(), opts...)
}

// snapshot copies the records in insertion order under the read lock.
func (g *Registry) snapshot() []Record {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Record, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.records[name].clone())
	}
	return out
}
