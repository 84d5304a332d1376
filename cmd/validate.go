package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/fixreg/internal/audit"
	"github.com/papapumpkin/fixreg/internal/telemetry"
	"github.com/papapumpkin/fixreg/internal/ui"
	"github.com/papapumpkin/fixreg/internal/watch"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check fixture provenance, derivations, and lock digests",
	Long: `Loads the fixture manifest and reports every provenance violation:
missing files, derivations from unregistered fixtures, derivation cycles,
and derived fixtures that no longer match their source.

With --lock, fixture digests are also compared against the lock file.
With --watch, the directory is re-validated whenever a file changes.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("lock", false, "also check digests against the lock file")
	validateCmd.Flags().BoolP("watch", "w", false, "re-validate when fixture files change")
	validateCmd.Flags().Bool("no-history", false, "do not record this run in the history database")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	checkLock, _ := cmd.Flags().GetBool("lock")
	watching, _ := cmd.Flags().GetBool("watch")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, !noHistory)
	if err != nil {
		return err
	}
	defer s.close()
	s.opts.CheckLock = checkLock

	printer := ui.NewWriter(cmd.ErrOrStderr())
	n, err := validateOnce(ctx, printer, s.opts, s.cfg.Verbose)
	if !watching {
		if err != nil {
			printer.Error(err.Error())
			return err
		}
		if n > 0 {
			return fmt.Errorf("validation failed with %d violation(s)", n)
		}
		return nil
	}
	if err != nil {
		printer.Error(err.Error())
	}
	return watchAndValidate(ctx, printer, s)
}

// validateOnce runs one audit and prints its result. It returns the number
// of violations found.
func validateOnce(ctx context.Context, printer *ui.Printer, opts audit.Options, verbose bool) (int, error) {
	res, err := audit.Run(ctx, opts)
	if err != nil {
		return 0, err
	}
	if verbose {
		printer.Info(fmt.Sprintf("run %s: %s", res.RunID, filepath.Join(res.Catalog.Dir, res.Catalog.Manifest)))
		if opts.CheckLock {
			printer.Info("lock: " + opts.LockPath)
		}
	}
	if res.LockMissing {
		printer.Info("no lock file at " + opts.LockPath + "; run `fixreg lock` to create one")
	}
	name := res.Catalog.Info.Name
	if name == "" {
		name = filepath.Base(res.Catalog.Dir)
	}
	printer.ValidateResult(name, res.Catalog.Registry.Len(), res.Violations)
	return len(res.Violations), nil
}

// watchAndValidate re-runs validation on every debounced change until ctx
// is cancelled.
func watchAndValidate(ctx context.Context, printer *ui.Printer, s *session) error {
	ignore := []string{filepath.Base(s.opts.LockPath)}
	if s.cfg.TelemetryPath != "" {
		ignore = append(ignore, filepath.Base(s.cfg.TelemetryPath))
	}
	w, err := watch.New(s.cfg.FixturesDir, ignore...)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("watch %s: %w", s.cfg.FixturesDir, err)
	}
	defer w.Stop()
	printer.Info("watching " + s.cfg.FixturesDir + " (ctrl-c to stop)")

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-w.Changes:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(s.cfg.FixturesDir, c.File)
			if err != nil {
				rel = c.File
			}
			_ = s.opts.Telemetry.Emit(telemetry.Event{
				Kind:    telemetry.KindChangeDetected,
				Fixture: filepath.ToSlash(rel),
				Data:    map[string]string{"change": c.Kind.String()},
			})
			printer.ChangeDetected(rel, c.Kind.String())
			if _, err := validateOnce(ctx, printer, s.opts, s.cfg.Verbose); err != nil {
				printer.Error(err.Error())
			}
		}
	}
}
