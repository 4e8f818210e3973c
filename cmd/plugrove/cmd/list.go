package cmd

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/plugrove/plugrove/internal/engine"
	"github.com/plugrove/plugrove/internal/manifest"
	"github.com/plugrove/plugrove/internal/registry"
)

var listFilter string

var (
	installedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#98C379"))
	missingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show declared plugins and their state",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		lock := loadLock()

		ids := reg.Identities()
		if listFilter != "" {
			matches := fuzzy.Find(listFilter, ids)
			filtered := make([]string, 0, len(matches))
			for _, m := range matches {
				filtered = append(filtered, m.Str)
			}
			ids = filtered
		}
		if len(ids) == 0 {
			info("No plugins.")
			return nil
		}

		for _, id := range ids {
			spec, ok := reg.Lookup(id)
			if !ok {
				continue
			}
			dir := filepath.Join(installRoot(), manifest.DirName(id))
			state := "missing"
			if _, err := os.Stat(dir); err == nil {
				state = "installed"
			}
			locked := "(unlocked)"
			if entry, ok := lock.Get(id); ok {
				locked = engine.ShortCommit(entry.Commit)
			}
			info("  %-10s  %-45s  %-16s  %s", colorizeState(state), id, describePin(spec), locked)
			if loc, ok := reg.SourceOf(id); ok {
				detail("declared in %s", loc)
			}
		}
		return nil
	},
}

func colorizeState(state string) string {
	if noColor {
		return state
	}
	if state == "installed" {
		return installedStyle.Render(state)
	}
	return missingStyle.Render(state)
}

func describePin(spec *registry.Spec) string {
	switch {
	case spec.Commit != "":
		return "commit " + engine.ShortCommit(spec.Commit)
	case spec.Tag != "":
		return "tag " + spec.Tag
	case spec.Branch != "":
		return "branch " + spec.Branch
	case !spec.Configured():
		return "(dependency)"
	default:
		return "default branch"
	}
}

func init() {
	listCmd.Flags().StringVar(&listFilter, "filter", "", "fuzzy-match plugins by identity")
	rootCmd.AddCommand(listCmd)
}
