package fixture

import (
	"fmt"
	"os"
)

// Comparator decides whether a derived file still matches its source under
// a documented transformation. Implementations own the file-format parsing.
type Comparator interface {
	Matches(source, derived []byte) bool
}

// ComparatorFunc adapts an ordinary function to the Comparator interface.
type ComparatorFunc func(source, derived []byte) bool

// Matches calls f(source, derived).
func (f ComparatorFunc) Matches(source, derived []byte) bool {
	return f(source, derived)
}

// ContentSource reads the bytes behind a fixture name.
type ContentSource interface {
	Content(name string) ([]byte, error)
}

// MapSource is an in-memory ContentSource keyed by fixture name.
type MapSource map[string][]byte

// Content returns the bytes stored under name, or an error wrapping
// os.ErrNotExist.
func (m MapSource) Content(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return data, nil
}
