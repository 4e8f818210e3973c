// Package registry builds the canonical, deduplicated plugin graph from
// raw manifest declarations.
package registry

import (
	"fmt"
	"sort"

	"github.com/plugrove/plugrove/internal/manifest"
)

// Spec is the canonical record for one plugin identity after merging.
type Spec struct {
	Identity string

	Branch string
	Tag    string
	Commit string

	// Requires holds canonical identities of prerequisite plugins.
	Requires []string

	Triggers *manifest.Triggers
	Run      string

	Origin manifest.SourceLocation
}

// Configured reports whether the spec carries any configuration beyond
// its identity. Two configured declarations for the same identity
// cannot be merged.
func (s *Spec) Configured() bool {
	return s.Branch != "" || s.Tag != "" || s.Commit != "" ||
		len(s.Requires) > 0 || !s.Triggers.Empty() || s.Run != ""
}

// ConflictError reports two declarations for the same identity that both
// carry configuration. It names both source locations and aborts the
// whole resolution: ambiguous configuration for one physical install
// cannot be resolved automatically.
type ConflictError struct {
	Identity string
	First    manifest.SourceLocation
	Second   manifest.SourceLocation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting declarations for %s: %s and %s both carry configuration — keep the configuration in one place and reference the plugin bare elsewhere",
		e.Identity, e.First, e.Second)
}

// Registry maps identity to its canonical spec. Every identity reachable
// through Requires edges has an entry; plugins referenced only as
// dependencies get a bare stub.
type Registry struct {
	specs map[string]*Spec
}

// Build merges declarations into a canonical registry in two phases:
// explicit declarations first, then bare stubs for dependency references
// with no declaration of their own. The second phase exists because a
// dependency may be declared configured in another manifest file.
func Build(decls []manifest.Declaration) (*Registry, error) {
	r := &Registry{specs: make(map[string]*Spec, len(decls))}

	for i := range decls {
		spec := fromDeclaration(&decls[i])
		existing, ok := r.specs[spec.Identity]
		if !ok {
			r.specs[spec.Identity] = spec
			continue
		}
		switch {
		case !spec.Configured():
			// bare redeclaration unifies silently
		case !existing.Configured():
			r.specs[spec.Identity] = spec
		default:
			return nil, &ConflictError{
				Identity: spec.Identity,
				First:    existing.Origin,
				Second:   spec.Origin,
			}
		}
	}

	// Closure: every dependency edge must resolve to an entry.
	for _, spec := range sortedSpecs(r.specs) {
		for _, dep := range spec.Requires {
			if _, ok := r.specs[dep]; !ok {
				r.specs[dep] = &Spec{Identity: dep, Origin: spec.Origin}
			}
		}
	}

	return r, nil
}

func fromDeclaration(d *manifest.Declaration) *Spec {
	spec := &Spec{
		Identity: manifest.CanonicalSource(d.Source),
		Branch:   d.Branch,
		Tag:      d.Tag,
		Commit:   d.Commit,
		Triggers: d.On,
		Run:      d.Run,
		Origin:   d.Origin,
	}
	for _, dep := range d.Requires {
		spec.Requires = append(spec.Requires, manifest.CanonicalSource(dep.Source))
	}
	return spec
}

// Lookup returns the canonical spec for an identity.
func (r *Registry) Lookup(identity string) (*Spec, bool) {
	s, ok := r.specs[identity]
	return s, ok
}

// SourceOf reports where an identity was declared. For a bare dependency
// stub this is the declaration that required it.
func (r *Registry) SourceOf(identity string) (manifest.SourceLocation, bool) {
	s, ok := r.specs[identity]
	if !ok {
		return manifest.SourceLocation{}, false
	}
	return s.Origin, true
}

// Has reports whether an identity is registered.
func (r *Registry) Has(identity string) bool {
	_, ok := r.specs[identity]
	return ok
}

// Identities returns every registered identity in sorted order, so that
// traversal and output are deterministic across runs.
func (r *Registry) Identities() []string {
	ids := make([]string, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	return len(r.specs)
}

func sortedSpecs(m map[string]*Spec) []*Spec {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	specs := make([]*Spec, 0, len(ids))
	for _, id := range ids {
		specs = append(specs, m[id])
	}
	return specs
}
