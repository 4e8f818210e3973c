package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugrove/plugrove/internal/engine"
	"github.com/plugrove/plugrove/internal/gitx"
)

var restoreDryRun bool

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Reproduce the locked state exactly",
	Long: `Reads the lockfile as the sole authority and makes the install root
match it: every working copy is checked out at its locked commit, and
installs the lockfile does not mention are deleted. Does NOT modify the
lockfile — only 'sync' and 'update' modify the lockfile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lock := loadLock()
		log := newLogger()
		defer log.Close()

		eng := &engine.RestoreEngine{
			Git:         gitx.ExecClient{},
			Lock:        lock,
			InstallRoot: installRoot(),
			Log:         log,
		}

		res := eng.RestoreAll(cmd.Context(), engine.Options{DryRun: restoreDryRun})

		if restoreDryRun {
			info("Dry run — nothing written.")
		}
		for _, c := range res.CheckedOut {
			info("  restored  %s  %s → %s", c.Identity, engine.ShortCommit(c.From), engine.ShortCommit(c.To))
		}
		for _, id := range res.Unchanged {
			detail("unchanged  %s", id)
		}
		for _, name := range res.Deleted {
			info("  removed   %s (not in lockfile)", name)
		}
		for _, e := range res.Errors {
			errorf("%s: %s: %v", e.Identity, e.Op, e.Err)
		}

		info("")
		info("Restore complete: %d restored, %d unchanged, %d removed, %d errors.",
			len(res.CheckedOut), len(res.Unchanged), len(res.Deleted), len(res.Errors))
		if len(res.Errors) > 0 {
			return fmt.Errorf("%d plugin(s) failed", len(res.Errors))
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "show what would change without touching disk")
	rootCmd.AddCommand(restoreCmd)
}
