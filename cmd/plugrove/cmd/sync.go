package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugrove/plugrove/internal/activate"
	"github.com/plugrove/plugrove/internal/engine"
	"github.com/plugrove/plugrove/internal/gitx"
	"github.com/plugrove/plugrove/internal/host"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Install declared plugins and reconcile pins",
	Long: `Installs every declared plugin that is missing (dependencies first),
moves each working copy to the version its pin implies, registers
activation triggers, and writes the lockfile. Plugins with a branch pin
fast-forward to the branch head; commit and tag pins are enforced
exactly. Lock entries for plugins no longer declared are dropped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		lock := loadLock()
		log := newLogger()
		defer log.Close()

		git := gitx.ExecClient{}
		install := &engine.InstallEngine{
			Git:         git,
			Registry:    reg,
			Lock:        lock,
			Activator:   activate.New(host.NewBus(), log),
			InstallRoot: installRoot(),
			Log:         log,
		}
		sync := &engine.SyncEngine{
			Git:         git,
			Registry:    reg,
			Lock:        lock,
			InstallRoot: installRoot(),
			Log:         log,
		}

		opts := engine.Options{DryRun: syncDryRun}
		ires := install.EnsureAll(cmd.Context(), opts)
		sres := sync.SyncAll(cmd.Context(), opts)

		if syncDryRun {
			info("Dry run — nothing written.")
		}
		for _, id := range ires.Installed {
			info("  installed  %s", id)
		}
		for _, c := range sres.Updated {
			info("  updated    %s  %s → %s", c.Identity, engine.ShortCommit(c.From), engine.ShortCommit(c.To))
		}
		for _, id := range sres.Unchanged {
			detail("unchanged  %s", id)
		}
		for _, id := range sres.Removed {
			info("  unlocked   %s (no longer declared)", id)
		}
		for _, cyc := range ires.Cycles {
			errorf("dependency cycle through %s", cyc.Identity)
		}
		errs := append(append([]engine.NodeError{}, ires.Errors...), sres.Errors...)
		for _, e := range errs {
			errorf("%s: %s: %v", e.Identity, e.Op, e.Err)
		}

		if !syncDryRun {
			if err := saveLock(lock); err != nil {
				return err
			}
		}

		info("")
		info("Sync complete: %d installed, %d updated, %d errors.",
			len(ires.Installed), len(sres.Updated), len(errs))
		if len(errs) > 0 {
			return fmt.Errorf("%d plugin(s) failed", len(errs))
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "show what would change without touching disk")
	rootCmd.AddCommand(syncCmd)
}
