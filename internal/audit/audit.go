// Package audit runs the end-to-end provenance check for a fixture
// directory: load the manifest, validate the registry against the files on
// disk, compare against the lock file, and record the outcome in history
// and telemetry.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/papapumpkin/fixreg/internal/fixture"
	"github.com/papapumpkin/fixreg/internal/history"
	"github.com/papapumpkin/fixreg/internal/lock"
	"github.com/papapumpkin/fixreg/internal/manifest"
	"github.com/papapumpkin/fixreg/internal/telemetry"
	"github.com/papapumpkin/fixreg/internal/transform"
)

// Options configures an audit. FS, Dir, and Manifest locate the catalog;
// History and Telemetry are optional sinks.
type Options struct {
	FS          afero.Fs
	Dir         string
	Manifest    string
	LockPath    string
	CheckLock   bool
	Comparators map[string]fixture.Comparator // nil means transform.Builtins()
	History     *history.Store
	Telemetry   *telemetry.Emitter
	Now         func() time.Time
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Result is the outcome of one audit.
type Result struct {
	RunID       string
	Catalog     *manifest.Catalog
	Violations  []fixture.Violation
	LockMissing bool // CheckLock was set but no lock file exists
}

// Run loads the catalog and validates it. Manifest and infrastructure
// failures are returned as errors; provenance problems are reported in
// Result.Violations.
func Run(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.NewString()
	started := opts.now()

	cat, err := load(opts)
	if err != nil {
		return nil, err
	}
	emit(opts.Telemetry, telemetry.Event{
		Kind:  telemetry.KindValidateStart,
		RunID: runID,
		Data:  map[string]any{"dir": opts.Dir, "fixtures": cat.Registry.Len()},
	})

	comparators := opts.Comparators
	if comparators == nil {
		comparators = transform.Builtins()
	}
	src := cat.Source(opts.FS)
	res := &Result{RunID: runID, Catalog: cat}
	res.Violations = cat.Registry.Validate(
		fixture.WithSource(src),
		fixture.WithComparators(comparators),
	)

	if opts.CheckLock {
		lf, err := lock.Load(opts.FS, opts.LockPath)
		if err != nil {
			return nil, err
		}
		res.LockMissing = lf == nil
		res.Violations = append(res.Violations, lock.Check(lf, cat.Registry, src)...)
	}

	for _, v := range res.Violations {
		emit(opts.Telemetry, telemetry.Event{
			Kind:    telemetry.KindViolation,
			RunID:   runID,
			Fixture: v.Fixture,
			Data:    map[string]string{"kind": string(v.Kind), "detail": v.Detail},
		})
	}

	if opts.History != nil {
		if _, err := opts.History.Record(ctx, history.Run{
			ID:           runID,
			StartedAt:    started,
			Dir:          opts.Dir,
			FixtureCount: cat.Registry.Len(),
			Violations:   res.Violations,
		}); err != nil {
			return nil, err
		}
	}

	emit(opts.Telemetry, telemetry.Event{
		Kind:  telemetry.KindValidateDone,
		RunID: runID,
		Data: map[string]any{
			"violations":  len(res.Violations),
			"duration_ms": opts.now().Sub(started).Milliseconds(),
		},
	})
	return res, nil
}

// WriteLock validates that every fixture file is readable and writes the
// lock file. It refuses to lock a catalog with missing files.
func WriteLock(opts Options) (*lock.File, error) {
	cat, err := load(opts)
	if err != nil {
		return nil, err
	}
	lf, err := lock.Generate(cat.Registry, cat.Source(opts.FS), opts.now())
	if err != nil {
		return nil, err
	}
	if err := lock.Save(opts.FS, opts.LockPath, lf); err != nil {
		return nil, err
	}
	emit(opts.Telemetry, telemetry.Event{
		Kind: telemetry.KindLockWritten,
		Data: map[string]any{"path": opts.LockPath, "fixtures": len(lf.Entries)},
	})
	return lf, nil
}

// Load reads the catalog described by opts.
func Load(opts Options) (*manifest.Catalog, error) {
	return load(opts)
}

func load(opts Options) (*manifest.Catalog, error) {
	if opts.FS == nil {
		return nil, fmt.Errorf("audit: no filesystem configured")
	}
	cat, err := manifest.Load(opts.FS, opts.Dir, opts.Manifest)
	if err != nil {
		return nil, err
	}
	emit(opts.Telemetry, telemetry.Event{
		Kind: telemetry.KindManifestLoaded,
		Data: map[string]any{"dir": opts.Dir, "manifest": cat.Manifest, "fixtures": cat.Registry.Len()},
	})
	return cat, nil
}

// emit drops telemetry write failures; the audit result does not depend on them.
func emit(e *telemetry.Emitter, evt telemetry.Event) {
	_ = e.Emit(evt)
}
