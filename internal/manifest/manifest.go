// Package manifest reads and writes fixtures.toml, the documented provenance
// of a fixture directory, and exposes the directory's files as a
// fixture.ContentSource.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/papapumpkin/fixreg/internal/fixture"
)

// DefaultName is the conventional manifest file name inside a fixture directory.
const DefaultName = "fixtures.toml"

// ErrNoManifest indicates the fixture directory has no manifest file.
var ErrNoManifest = errors.New("manifest not found in fixture directory")

// File is the on-disk shape of fixtures.toml.
type File struct {
	Catalog  Info    `toml:"catalog"`
	Fixtures []Entry `toml:"fixture"`
}

// Info names and describes the fixture catalog.
type Info struct {
	Name        string `toml:"name"`
	Description string `toml:"description,omitempty"`
}

// Entry is one [[fixture]] table.
type Entry struct {
	Name        string   `toml:"name"`
	Origin      string   `toml:"origin"`
	Procedure   string   `toml:"procedure,omitempty"`
	DerivedFrom string   `toml:"derived_from,omitempty"`
	Transform   string   `toml:"transform,omitempty"`
	Consumers   []string `toml:"consumers,omitempty"`
}

// Catalog is a loaded fixture directory.
type Catalog struct {
	Dir      string
	Manifest string // manifest file name within Dir
	Info     Info
	Registry *fixture.Registry
}

// Load reads dir/name from fsys and builds a registry from its entries.
// An entry that fails record checks or repeats a name aborts the load.
func Load(fsys afero.Fs, dir, name string) (*Catalog, error) {
	if name == "" {
		name = DefaultName
	}
	data, err := afero.ReadFile(fsys, filepath.Join(dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoManifest, filepath.Join(dir, name))
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	reg := fixture.NewRegistry()
	for i, e := range f.Fixtures {
		if err := reg.Add(e.record()); err != nil {
			return nil, fmt.Errorf("%s: fixture[%d]: %w", name, i, err)
		}
	}

	return &Catalog{
		Dir:      dir,
		Manifest: name,
		Info:     f.Catalog,
		Registry: reg,
	}, nil
}

// Save writes the catalog's registry back to its manifest in registry order.
func Save(fsys afero.Fs, c *Catalog) error {
	f := File{Catalog: c.Info}
	for rec := range c.Registry.All() {
		f.Fixtures = append(f.Fixtures, entryOf(rec))
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", c.Manifest, err)
	}
	if err := fsys.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", c.Dir, err)
	}
	if err := afero.WriteFile(fsys, filepath.Join(c.Dir, c.Manifest), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", c.Manifest, err)
	}
	return nil
}

func (e Entry) record() fixture.Record {
	return fixture.Record{
		Name:        e.Name,
		Origin:      fixture.Origin(e.Origin),
		Procedure:   e.Procedure,
		DerivedFrom: e.DerivedFrom,
		Transform:   e.Transform,
		Consumers:   e.Consumers,
	}
}

func entryOf(r fixture.Record) Entry {
	return Entry{
		Name:        r.Name,
		Origin:      string(r.Origin),
		Procedure:   r.Procedure,
		DerivedFrom: r.DerivedFrom,
		Transform:   r.Transform,
		Consumers:   r.Consumers,
	}
}

// DirSource reads fixture files relative to Dir. Fixture names use forward
// slashes and may not escape Dir.
type DirSource struct {
	FS  afero.Fs
	Dir string
}

// Content returns the bytes of the named fixture file.
func (s DirSource) Content(name string) ([]byte, error) {
	clean := path.Clean(name)
	if !fs.ValidPath(clean) {
		return nil, fmt.Errorf("%s: invalid fixture path: %w", name, os.ErrNotExist)
	}
	data, err := afero.ReadFile(s.FS, filepath.Join(s.Dir, filepath.FromSlash(clean)))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Source returns a DirSource over the catalog directory.
func (c *Catalog) Source(fsys afero.Fs) DirSource {
	return DirSource{FS: fsys, Dir: c.Dir}
}
