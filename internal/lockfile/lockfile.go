// Package lockfile persists the resolved commit per plugin identity.
// The lockfile is the sole authority for what a restore reproduces.
package lockfile

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Entry records the resolved, durable state for one identity.
type Entry struct {
	Branch string `yaml:"branch"`
	Commit string `yaml:"commit"`
}

// Store is the in-memory lock state for one run. It is read once at the
// start of an operation, mutated in memory, and written back at most
// once at the end if anything changed.
type Store struct {
	pins    map[string]Entry
	changed bool
}

// NewStore returns an empty lock store.
func NewStore() *Store {
	return &Store{pins: make(map[string]Entry)}
}

// Load reads a lockfile. A missing file yields an empty store and no
// error. A malformed file yields an empty store plus the parse error:
// losing the lock is recoverable by re-resolving from declarations, so
// the load fails open rather than blocking the run.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewStore(), nil
	}
	if err != nil {
		return NewStore(), fmt.Errorf("reading lockfile %s: %w", path, err)
	}

	pins := make(map[string]Entry)
	if err := yaml.Unmarshal(data, &pins); err != nil {
		return NewStore(), fmt.Errorf("parsing lockfile %s: %w", path, err)
	}
	return &Store{pins: pins}, nil
}

// Save writes the lockfile atomically using a temp file and rename.
// Keys are serialized in lexicographic order with two-space indentation
// so lockfile diffs stay deterministic under version control.
func (s *Store) Save(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s.pins); err != nil {
		return fmt.Errorf("marshaling lockfile: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshaling lockfile: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing temp lockfile %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp lockfile to %s: %w", path, err)
	}

	s.changed = false
	return nil
}

// Get returns the entry for an identity.
func (s *Store) Get(identity string) (Entry, bool) {
	e, ok := s.pins[identity]
	return e, ok
}

// Set records an entry and marks the store changed if the entry differs
// from what is already present.
func (s *Store) Set(identity string, e Entry) {
	if cur, ok := s.pins[identity]; ok && cur == e {
		return
	}
	s.pins[identity] = e
	s.changed = true
}

// Remove drops an identity from the store.
func (s *Store) Remove(identity string) {
	if _, ok := s.pins[identity]; !ok {
		return
	}
	delete(s.pins, identity)
	s.changed = true
}

// Changed reports whether the store has unsaved mutations.
func (s *Store) Changed() bool {
	return s.changed
}

// Identities returns every locked identity in sorted order.
func (s *Store) Identities() []string {
	ids := make([]string, 0, len(s.pins))
	for id := range s.pins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of locked identities.
func (s *Store) Len() int {
	return len(s.pins)
}
