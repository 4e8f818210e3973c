package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default plugins.yaml scaffold.
// It includes a working declaration and commented-out alternatives.
const initTemplate = `# plugrove manifest
# Docs: https://github.com/plugrove/plugrove
plugins:
  # Track a branch head (updated via 'plugrove update')
  - source: catppuccin/nvim
    branch: main

  # Pin to an exact commit on a branch
  # - source: acme/formatter
  #   branch: main
  #   commit: 4f2a1c9d8e7b6a5f4e3d2c1b0a9f8e7d6c5b4a39

  # Pin to a tag
  # - source: acme/linter
  #   tag: v2.1.0

  # Lazy activation: install now, activate on first trigger
  # - source: acme/completion
  #   on:
  #     filetypes: [go, rust]
  #     commands: [CompleteMe]
  #   run: make install-hooks

  # Dependencies install before the plugin that needs them
  # - source: acme/dashboard
  #   requires:
  #     - source: acme/widget-lib
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter manifest",
	Long: `Creates the manifest directory with a well-commented plugins.yaml
covering branch tracking, exact pins, lazy activation, and dependencies.

Use --force to overwrite an existing manifest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(manifestDir, "plugins.yaml")

		if !initForce {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}

		if err := os.MkdirAll(manifestDir, 0o755); err != nil {
			return fmt.Errorf("creating manifest dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(initTemplate), 0o644); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}

		info("Created %s", path)
		info("")
		info("Next steps:")
		info("  1. Edit the file to declare your plugins")
		info("  2. Run 'plugrove sync' to install and lock")
		info("  3. Commit the lockfile for reproducible setups")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing manifest")
	rootCmd.AddCommand(initCmd)
}
