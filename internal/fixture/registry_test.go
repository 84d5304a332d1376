package fixture

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustRecord(t *testing.T, name string, origin Origin, derivedFrom string) Record {
	t.Helper()
	rec, err := NewRecord(name, origin, "", derivedFrom)
	if err != nil {
		t.Fatalf("NewRecord(%q): %v", name, err)
	}
	return rec
}

func collect(g *Registry) []string {
	var names []string
	for r := range g.All() {
		names = append(names, r.Name)
	}
	return names
}

func TestRegistryAddGet(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	rec := Record{
		Name:        "ieee_13_flat.glm",
		Origin:      OriginDerived,
		Procedure:   "recursive objects flattened",
		DerivedFrom: "ieee_13.glm",
		Transform:   "flatten",
		Consumers:   []string{"test_glm.TestFlatten"},
	}
	if err := g.Add(rec); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := g.Get(rec.Name)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	if err := g.Add(Record{Name: "a.glm", Origin: OriginHandAuthored, Consumers: []string{"t1"}}); err != nil {
		t.Fatal(err)
	}
	got, _ := g.Get("a.glm")
	got.Consumers[0] = "mutated"

	again, _ := g.Get("a.glm")
	if again.Consumers[0] != "t1" {
		t.Errorf("registry record mutated through Get copy: %v", again.Consumers)
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	first := Record{Name: "a.glm", Origin: OriginHandAuthored, Procedure: "first"}
	if err := g.Add(first); err != nil {
		t.Fatal(err)
	}
	err := g.Add(Record{Name: "a.glm", Origin: OriginPlatformExtracted, Procedure: "second"})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("Add duplicate error = %v, want ErrDuplicateName", err)
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
	got, _ := g.Get("a.glm")
	if got.Procedure != "first" {
		t.Errorf("Procedure = %q, registry changed by failed Add", got.Procedure)
	}
}

func TestRegistryAddInvalid(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	err := g.Add(Record{Name: "flat.glm", Origin: OriginDerived})
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("Add error = %v, want ErrInvalidRecord", err)
	}
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry().Get("missing.glm")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}
}

func TestRegistryAllOrder(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	if got := collect(g); len(got) != 0 {
		t.Fatalf("All() on empty registry yielded %v", got)
	}

	for _, n := range []string{"X", "Y", "Z"} {
		if err := g.Add(mustRecord(t, n, OriginHandAuthored, "")); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"X", "Y", "Z"}
	if diff := cmp.Diff(want, collect(g)); diff != "" {
		t.Errorf("All() order (-want +got):\n%s", diff)
	}
	// Restartable.
	if diff := cmp.Diff(want, collect(g)); diff != "" {
		t.Errorf("second All() order (-want +got):\n%s", diff)
	}
}

func TestRegistryAllEarlyStop(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	for _, n := range []string{"X", "Y", "Z"} {
		if err := g.Add(mustRecord(t, n, OriginHandAuthored, "")); err != nil {
			t.Fatal(err)
		}
	}
	var seen []string
	for r := range g.All() {
		seen = append(seen, r.Name)
		if r.Name == "Y" {
			break
		}
	}
	if diff := cmp.Diff([]string{"X", "Y"}, seen); diff != "" {
		t.Errorf("early stop (-want +got):\n%s", diff)
	}
}

func TestRegistryRemove(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	for _, n := range []string{"X", "Y", "Z"} {
		if err := g.Add(mustRecord(t, n, OriginHandAuthored, "")); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Remove("Y"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if diff := cmp.Diff([]string{"X", "Z"}, g.Names()); diff != "" {
		t.Errorf("Names after Remove (-want +got):\n%s", diff)
	}
	if err := g.Remove("Y"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove error = %v, want ErrNotFound", err)
	}
	// Name is free again.
	if err := g.Add(mustRecord(t, "Y", OriginHandAuthored, "")); err != nil {
		t.Errorf("re-Add after Remove: %v", err)
	}
}

func TestRegistryConsumers(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	if err := g.Add(mustRecord(t, "a.glm", OriginHandAuthored, "")); err != nil {
		t.Fatal(err)
	}
	if err := g.SetConsumers("a.glm", "t2", "t1", "t2"); err != nil {
		t.Fatalf("SetConsumers: %v", err)
	}
	if err := g.AddConsumer("a.glm", "t0"); err != nil {
		t.Fatalf("AddConsumer: %v", err)
	}
	got, _ := g.Get("a.glm")
	if diff := cmp.Diff([]string{"t0", "t1", "t2"}, got.Consumers); diff != "" {
		t.Errorf("Consumers (-want +got):\n%s", diff)
	}
	if err := g.SetConsumers("missing", "t"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetConsumers unknown error = %v, want ErrNotFound", err)
	}
	if err := g.AddConsumer("missing", "t"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddConsumer unknown error = %v, want ErrNotFound", err)
	}
}

func TestRegistryConcurrentAdd(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- g.Add(Record{Name: "shared.glm", Origin: OriginHandAuthored})
			errs <- g.Add(Record{Name: fmt.Sprintf("own_%02d.glm", i), Origin: OriginHandAuthored})
		}()
	}
	wg.Wait()
	close(errs)

	var dups int
	for err := range errs {
		if errors.Is(err, ErrDuplicateName) {
			dups++
		} else if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if dups != workers-1 {
		t.Errorf("duplicate errors = %d, want %d", dups, workers-1)
	}
	if g.Len() != workers+1 {
		t.Errorf("Len() = %d, want %d", g.Len(), workers+1)
	}
}

func TestRegistryLineage(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	for _, r := range []Record{
		{Name: "model.glm", Origin: OriginPlatformExtracted},
		{Name: "flat.glm", Origin: OriginDerived, DerivedFrom: "model.glm"},
		{Name: "flat_trimmed.glm", Origin: OriginDerived, DerivedFrom: "flat.glm"},
		{Name: "orphan.glm", Origin: OriginDerived, DerivedFrom: "gone.glm"},
	} {
		if err := g.Add(r); err != nil {
			t.Fatal(err)
		}
	}

	chain, err := g.Lineage("flat_trimmed.glm")
	if err != nil {
		t.Fatalf("Lineage: %v", err)
	}
	if diff := cmp.Diff([]string{"flat_trimmed.glm", "flat.glm", "model.glm"}, chain); diff != "" {
		t.Errorf("Lineage (-want +got):\n%s", diff)
	}

	if _, err := g.Lineage("orphan.glm"); !errors.Is(err, ErrDanglingReference) {
		t.Errorf("Lineage(orphan) error = %v, want ErrDanglingReference", err)
	}
	if _, err := g.Lineage("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lineage(nope) error = %v, want ErrNotFound", err)
	}

	deps, err := g.Dependents("model.glm")
	if err != nil {
		t.Fatalf("Dependents: %v", err)
	}
	if diff := cmp.Diff([]string{"flat.glm"}, deps); diff != "" {
		t.Errorf("Dependents (-want +got):\n%s", diff)
	}
}

func TestRegistryLineageCycle(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	_ = g.Add(Record{Name: "A", Origin: OriginDerived, DerivedFrom: "B"})
	_ = g.Add(Record{Name: "B", Origin: OriginDerived, DerivedFrom: "A"})
	if _, err := g.Lineage("A"); !errors.Is(err, ErrCyclicDerivation) {
		t.Errorf("Lineage error = %v, want ErrCyclicDerivation", err)
	}
	if _, err := g.Order(); !errors.Is(err, ErrCyclicDerivation) {
		t.Errorf("Order error = %v, want ErrCyclicDerivation", err)
	}
}

func TestRegistryOrder(t *testing.T) {
	t.Parallel()

	g := NewRegistry()
	// Derived records are added before their sources on purpose.
	for _, r := range []Record{
		{Name: "flat_trimmed.glm", Origin: OriginDerived, DerivedFrom: "flat.glm"},
		{Name: "flat.glm", Origin: OriginDerived, DerivedFrom: "model.glm"},
		{Name: "notes.txt", Origin: OriginHandAuthored},
		{Name: "model.glm", Origin: OriginPlatformExtracted},
	} {
		if err := g.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	order, err := g.Order()
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	pos := func(n string) int { return slices.Index(order, n) }
	if !(pos("model.glm") < pos("flat.glm") && pos("flat.glm") < pos("flat_trimmed.glm")) {
		t.Errorf("Order() = %v, sources must precede derived fixtures", order)
	}
	if len(order) != 4 {
		t.Errorf("len(Order()) = %d, want 4", len(order))
	}
}
