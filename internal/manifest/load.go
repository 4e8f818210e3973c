package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a single manifest file. Every returned
// declaration carries its source location.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var mf File
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	for i := range mf.Plugins {
		mf.Plugins[i].Origin = SourceLocation{File: path, Index: i}
	}

	if errs := Validate(&mf); len(errs) > 0 {
		return nil, &ValidationError{Path: path, Errors: errs}
	}

	return &mf, nil
}

// ValidationError holds multiple validation failures for one manifest file.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest %s is invalid:\n  - %s", e.Path, strings.Join(e.Errors, "\n  - "))
}

// Validate checks a manifest file for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(mf *File) []string {
	var errs []string

	for i, pl := range mf.Plugins {
		prefix := fmt.Sprintf("plugin[%d]", i)
		if pl.Source != "" {
			prefix = fmt.Sprintf("plugin '%s'", pl.Source)
		}

		if strings.TrimSpace(pl.Source) == "" {
			errs = append(errs, fmt.Sprintf("%s: 'source' is required — add 'source: https://...' or 'source: owner/repo'", prefix))
		}

		if pl.Branch != "" && pl.Tag != "" {
			errs = append(errs, fmt.Sprintf("%s: 'branch' and 'tag' are mutually exclusive — pick one tracking rule", prefix))
		}
		if pl.Commit != "" && pl.Branch == "" {
			errs = append(errs, fmt.Sprintf("%s: 'commit' requires 'branch' — the branch documents the intended upstream for an exact-commit pin", prefix))
		}
		if pl.Commit != "" && !isHex(pl.Commit) {
			errs = append(errs, fmt.Sprintf("%s: 'commit' must be a hexadecimal revision, got '%s'", prefix, pl.Commit))
		}

		for j, dep := range pl.Requires {
			if strings.TrimSpace(dep.Source) == "" {
				errs = append(errs, fmt.Sprintf("%s: requires[%d] is empty", prefix, j))
			}
		}

		if pl.On != nil && pl.On.Empty() {
			errs = append(errs, fmt.Sprintf("%s: 'on' is present but declares no trigger — remove it or add one of: filetypes, events, keys, commands", prefix))
		}
		if pl.On != nil {
			errs = append(errs, validateTriggers(pl.On, prefix)...)
		}
	}

	return errs
}

func validateTriggers(t *Triggers, prefix string) []string {
	var errs []string
	check := func(kind string, values []string) {
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				errs = append(errs, fmt.Sprintf("%s: 'on.%s' contains an empty entry", prefix, kind))
			}
		}
	}
	check("filetypes", t.Filetypes)
	check("events", t.Events)
	check("keys", t.Keys)
	check("commands", t.Commands)
	return errs
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return len(s) > 0
}
