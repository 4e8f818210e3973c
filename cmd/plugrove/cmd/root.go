package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	manifestDir  string
	lockfilePath string
	dataRoot     string
	verbose      bool
	quiet        bool
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "plugrove",
	Short: "Declarative plugin lifecycle management",
	Long: `plugrove installs, pins, and activates plugins declared in YAML manifests.
Each plugin is a git working copy under the data root; a lockfile records
the exact commit every plugin is held at, so a checkout can be reproduced
on any machine. Plugins with triggers activate lazily, on first use.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("plugrove %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&manifestDir, "manifest-dir", "plugrove", "directory holding plugin manifests")
	rootCmd.PersistentFlags().StringVar(&lockfilePath, "lockfile", "", "path to lockfile (default <data-root>/plugrove.lock)")
	rootCmd.PersistentFlags().StringVar(&dataRoot, "root", "", "data root for installs and logs (default XDG data dir)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
