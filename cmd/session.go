package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/papapumpkin/fixreg/internal/audit"
	"github.com/papapumpkin/fixreg/internal/config"
	"github.com/papapumpkin/fixreg/internal/history"
	"github.com/papapumpkin/fixreg/internal/telemetry"
)

// session bundles the resolved configuration and the optional sinks a
// command needs. Callers must call close when done.
type session struct {
	cfg  config.Config
	opts audit.Options
}

// openSession loads configuration and opens the history store and
// telemetry emitter when they are configured. withHistory is false for
// commands that never record runs.
func openSession(ctx context.Context, withHistory bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	s := &session{
		cfg: cfg,
		opts: audit.Options{
			FS:       afero.NewOsFs(),
			Dir:      cfg.FixturesDir,
			Manifest: cfg.Manifest,
			LockPath: cfg.LockFile(),
		},
	}

	if cfg.TelemetryPath != "" {
		tel, err := telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			return nil, err
		}
		s.opts.Telemetry = tel
	}

	if withHistory && cfg.HistoryDB != "" {
		store, err := history.Open(ctx, cfg.HistoryDB)
		if err != nil {
			_ = s.close()
			return nil, err
		}
		s.opts.History = store
	}
	return s, nil
}

func (s *session) close() error {
	var errs []error
	if s.opts.History != nil {
		errs = append(errs, s.opts.History.Close())
	}
	errs = append(errs, s.opts.Telemetry.Close())
	return errors.Join(errs...)
}
