package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugrove/plugrove/internal/engine"
	"github.com/plugrove/plugrove/internal/gitx"
	"github.com/plugrove/plugrove/internal/tui"
)

var (
	updateDryRun bool
	updateYes    bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch upstream movement and update the lockfile",
	Long: `Fetches every branch-tracked plugin, compares the remote branch head
against the locked commit, and opens an interactive review of the
available updates. Approved updates are written to the lockfile and the
working copies are restored to match. Plugins pinned to an exact commit
or tag are never updated here; change the manifest instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		lock := loadLock()
		log := newLogger()
		defer log.Close()

		git := gitx.ExecClient{}
		upd := &engine.UpdateEngine{
			Git:         git,
			Registry:    reg,
			Lock:        lock,
			InstallRoot: installRoot(),
			Log:         log,
		}

		collected := upd.Collect(cmd.Context())
		for _, e := range collected.Errors {
			errorf("%s: %s: %v", e.Identity, e.Op, e.Err)
		}
		if len(collected.Updates) == 0 {
			info("All plugins are up to date.")
			if len(collected.Errors) > 0 {
				return fmt.Errorf("%d plugin(s) failed to fetch", len(collected.Errors))
			}
			return nil
		}

		if updateDryRun {
			for _, u := range collected.Updates {
				info("  %-40s  %s → %s", u.Identity, engine.ShortCommit(u.OldCommit), engine.ShortCommit(u.NewCommit))
			}
			info("\nDry run — lockfile not modified.")
			return nil
		}

		approved := collected.Updates
		if !updateYes {
			approved, err = tui.Review(collected.Updates)
			if err != nil {
				return err
			}
		}
		if len(approved) == 0 {
			info("Nothing approved.")
			return nil
		}

		upd.Apply(approved)
		if err := saveLock(lock); err != nil {
			return err
		}
		for _, u := range approved {
			info("  %-40s  %s → %s", u.Identity, engine.ShortCommit(u.OldCommit), engine.ShortCommit(u.NewCommit))
		}
		info("\nLockfile updated.")

		// Move working copies to the commits just locked.
		restore := &engine.RestoreEngine{
			Git:         git,
			Lock:        lock,
			InstallRoot: installRoot(),
			Log:         log,
		}
		res := restore.RestoreAll(cmd.Context(), engine.Options{})
		for _, e := range res.Errors {
			errorf("%s: %s: %v", e.Identity, e.Op, e.Err)
		}
		if n := len(res.Errors) + len(collected.Errors); n > 0 {
			return fmt.Errorf("%d plugin(s) failed", n)
		}
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "list available updates without modifying the lockfile")
	updateCmd.Flags().BoolVar(&updateYes, "yes", false, "apply every update without interactive review")
	rootCmd.AddCommand(updateCmd)
}
