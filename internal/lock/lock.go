// Package lock records content digests of a fixture directory in
// fixtures.lock and reports drift against them. The lock is to fixtures what
// go.sum is to modules: derived fixtures also pin the digest of their source
// so an edited source is caught even when the derived file is untouched.
package lock

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/papapumpkin/fixreg/internal/fixture"
)

// DefaultName is the conventional lock file name inside a fixture directory.
const DefaultName = "fixtures.lock"

// Version is the lock format version written by Generate.
const Version = 1

// File is the on-disk shape of fixtures.lock.
type File struct {
	Version     int       `toml:"version"`
	GeneratedAt time.Time `toml:"generated_at"`
	Entries     []Entry   `toml:"fixture"`
}

// Entry pins one fixture's digest.
type Entry struct {
	Name         string `toml:"name"`
	SHA256       string `toml:"sha256"`
	DerivedFrom  string `toml:"derived_from,omitempty"`
	SourceSHA256 string `toml:"source_sha256,omitempty"`
}

// Digest returns the "sha256:<hex>" digest of data.
func Digest(data []byte) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}

// Generate reads every fixture through src and pins its digest. Fixtures
// whose file cannot be read are returned as an error; lock a directory only
// after it validates cleanly.
func Generate(reg *fixture.Registry, src fixture.ContentSource, now time.Time) (*File, error) {
	digests := make(map[string]string, reg.Len())
	lf := &File{Version: Version, GeneratedAt: now.UTC()}
	var errs []error

	for rec := range reg.All() {
		data, err := src.Content(rec.Name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Name, err))
			continue
		}
		digests[rec.Name] = Digest(data)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("lock: %w", errors.Join(errs...))
	}

	for rec := range reg.All() {
		e := Entry{Name: rec.Name, SHA256: digests[rec.Name]}
		if rec.IsDerived() {
			e.DerivedFrom = rec.DerivedFrom
			e.SourceSHA256 = digests[rec.DerivedFrom]
		}
		lf.Entries = append(lf.Entries, e)
	}
	return lf, nil
}

// Load reads a lock file. A missing file returns nil and no error so callers
// can tell that no lock has been generated yet.
func Load(fsys afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	var lf File
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &lf, nil
}

// Save writes lf to path, creating parent directories as needed.
func Save(fsys afero.Fs, path string, lf *File) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	data, err := toml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}

	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Check compares the lock against the current registry and file contents.
// It reports KindDigestDrift when a locked file's digest changed, when a
// derived fixture's source changed since locking, or when a registered
// fixture is absent from the lock. Unreadable files are left to validation.
func Check(lf *File, reg *fixture.Registry, src fixture.ContentSource) []fixture.Violation {
	if lf == nil {
		return nil
	}
	locked := make(map[string]Entry, len(lf.Entries))
	for _, e := range lf.Entries {
		locked[e.Name] = e
	}

	current := make(map[string]string)
	digestOf := func(name string) (string, bool) {
		if d, ok := current[name]; ok {
			return d, true
		}
		data, err := src.Content(name)
		if err != nil {
			return "", false
		}
		d := Digest(data)
		current[name] = d
		return d, true
	}

	var out []fixture.Violation
	for rec := range reg.All() {
		e, ok := locked[rec.Name]
		if !ok {
			out = append(out, fixture.Violation{
				Kind:    fixture.KindDigestDrift,
				Fixture: rec.Name,
				Detail:  "not present in lock",
			})
			continue
		}
		if d, ok := digestOf(rec.Name); ok && d != e.SHA256 {
			out = append(out, fixture.Violation{
				Kind:    fixture.KindDigestDrift,
				Fixture: rec.Name,
				Detail:  fmt.Sprintf("content changed (locked %s, now %s)", short(e.SHA256), short(d)),
			})
			continue
		}
		if rec.IsDerived() && e.SourceSHA256 != "" {
			if d, ok := digestOf(rec.DerivedFrom); ok && d != e.SourceSHA256 {
				out = append(out, fixture.Violation{
					Kind:    fixture.KindDigestDrift,
					Fixture: rec.Name,
					Detail:  fmt.Sprintf("source %q changed since derivation was locked", rec.DerivedFrom),
				})
			}
		}
	}
	return out
}

// short trims a digest for display.
func short(d string) string {
	const n = len("sha256:") + 12
	if len(d) > n {
		return d[:n]
	}
	return d
}
