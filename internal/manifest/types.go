package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Declaration is one plugin entry as written in a manifest file.
// It carries no merged or derived state; deduplication and dependency
// closure happen in the registry.
type Declaration struct {
	Source string `yaml:"source"`

	// Pin fields. At most one of branch/tag drives tracking; commit
	// narrows a branch pin to an exact checkout.
	Branch string `yaml:"branch,omitempty"`
	Tag    string `yaml:"tag,omitempty"`
	Commit string `yaml:"commit,omitempty"`

	Requires []DependencyRef `yaml:"requires,omitempty"`
	On       *Triggers       `yaml:"on,omitempty"`

	// Run is a shell command executed when the plugin activates.
	Run string `yaml:"run,omitempty"`

	// Origin records where this declaration was read from.
	Origin SourceLocation `yaml:"-"`
}

// Triggers lists the deferred-activation conditions for a plugin.
// A plugin with no triggers activates immediately during sync.
type Triggers struct {
	Filetypes []string `yaml:"filetypes,omitempty"`
	Events    []string `yaml:"events,omitempty"`
	Keys      []string `yaml:"keys,omitempty"`
	Commands  []string `yaml:"commands,omitempty"`
}

// Empty reports whether no trigger condition is declared.
func (t *Triggers) Empty() bool {
	if t == nil {
		return true
	}
	return len(t.Filetypes) == 0 && len(t.Events) == 0 && len(t.Keys) == 0 && len(t.Commands) == 0
}

// DependencyRef names a plugin required by another. A dependency entry may
// carry the source only — configuration belongs on the plugin's own
// declaration, so any other field is rejected at parse time.
type DependencyRef struct {
	Source string
}

// UnmarshalYAML accepts either a bare string or a mapping with a single
// 'source' key.
func (d *DependencyRef) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&d.Source)
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			key := value.Content[i].Value
			if key != "source" {
				return fmt.Errorf("dependency entries may only carry 'source'; found '%s' — declare '%s' on the plugin's own entry instead", key, key)
			}
			if err := value.Content[i+1].Decode(&d.Source); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("dependency entry must be a string or a mapping with a 'source' key")
	}
}

// MarshalYAML renders a DependencyRef as a bare string.
func (d DependencyRef) MarshalYAML() (any, error) {
	return d.Source, nil
}

// SourceLocation identifies where a declaration was read from, for
// conflict and validation diagnostics.
type SourceLocation struct {
	File  string
	Index int // position within the file's plugins list
}

func (l SourceLocation) String() string {
	if l.File == "" {
		return "(unknown)"
	}
	return fmt.Sprintf("%s (plugin %d)", l.File, l.Index+1)
}

// File is one parsed manifest file.
type File struct {
	Plugins []Declaration `yaml:"plugins"`
}
