package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/fixreg/internal/audit"
	"github.com/papapumpkin/fixreg/internal/ui"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Pin fixture digests in the lock file",
	Long: `Computes the SHA-256 digest of every registered fixture and writes the
lock file. Derived fixtures also pin the digest of their source.

Locking fails if any fixture file is missing.`,
	Args: cobra.NoArgs,
	RunE: runLock,
}

func init() {
	rootCmd.AddCommand(lockCmd)
}

func runLock(cmd *cobra.Command, _ []string) error {
	printer := ui.NewWriter(cmd.ErrOrStderr())

	s, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.close()
	s.opts.Now = time.Now

	lf, err := audit.WriteLock(s.opts)
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	printer.LockWritten(s.opts.LockPath, len(lf.Entries))
	return nil
}
