package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plugrove/plugrove/internal/manifest"
)

var (
	addBranch   string
	addTag      string
	addCommit   string
	addRequires []string
	addRun      string
	addFile     string
)

var addCmd = &cobra.Command{
	Use:   "add <source>",
	Short: "Declare a plugin in the manifest",
	Long: `Appends a plugin declaration to a manifest file in the manifest
directory. The source accepts a full URL or the owner/repo shorthand,
which expands to a GitHub HTTPS URL. Run 'plugrove sync' afterwards to
install it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decl := manifest.Declaration{
			Source: args[0],
			Branch: addBranch,
			Tag:    addTag,
			Commit: addCommit,
			Run:    addRun,
		}
		for _, dep := range addRequires {
			decl.Requires = append(decl.Requires, manifest.DependencyRef{Source: dep})
		}

		path := filepath.Join(manifestDir, addFile)
		mf := &manifest.File{}
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, mf); err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// First declaration in this file.
		default:
			return fmt.Errorf("reading %s: %w", path, err)
		}

		identity := manifest.CanonicalSource(decl.Source)
		for _, existing := range mf.Plugins {
			if manifest.CanonicalSource(existing.Source) == identity {
				return fmt.Errorf("%s is already declared in %s", identity, path)
			}
		}
		mf.Plugins = append(mf.Plugins, decl)

		if problems := manifest.Validate(mf); len(problems) > 0 {
			return &manifest.ValidationError{Path: path, Errors: problems}
		}

		out, err := yaml.Marshal(mf)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
		if err := os.MkdirAll(manifestDir, 0o755); err != nil {
			return fmt.Errorf("creating manifest dir: %w", err)
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		info("Declared %s in %s", identity, path)
		info("Run 'plugrove sync' to install it.")
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addBranch, "branch", "", "track a branch")
	addCmd.Flags().StringVar(&addTag, "tag", "", "pin to a tag")
	addCmd.Flags().StringVar(&addCommit, "commit", "", "pin to an exact commit (requires --branch)")
	addCmd.Flags().StringArrayVar(&addRequires, "requires", nil, "dependency source (repeatable)")
	addCmd.Flags().StringVar(&addRun, "run", "", "shell command to run on activation")
	addCmd.Flags().StringVar(&addFile, "file", "plugins.yaml", "manifest file to append to")
	rootCmd.AddCommand(addCmd)
}
