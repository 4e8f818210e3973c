package lockfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "plugrove.lock"))
	if err != nil {
		t.Fatalf("missing lockfile should not be an error: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}

func TestLoadMalformedFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugrove.lock")
	if err := os.WriteFile(path, []byte(":\n\t- not yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err == nil {
		t.Fatal("malformed lockfile should report a parse error")
	}
	if s == nil || s.Len() != 0 {
		t.Errorf("malformed lockfile should still yield an empty usable store")
	}
}

func TestSaveRoundTripSortedTwoSpace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugrove.lock")

	s := NewStore()
	s.Set("https://github.com/zeta/z", Entry{Branch: "main", Commit: strings.Repeat("b", 40)})
	s.Set("https://github.com/alpha/a", Entry{Branch: "dev", Commit: strings.Repeat("a", 40)})
	if !s.Changed() {
		t.Fatal("store should be changed after Set")
	}

	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.Changed() {
		t.Error("Changed should reset after Save")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	// alpha must serialize before zeta for deterministic diffs.
	if strings.Index(text, "alpha/a") > strings.Index(text, "zeta/z") {
		t.Errorf("keys not sorted:\n%s", text)
	}
	if !strings.Contains(text, "\n  branch: main\n") {
		t.Errorf("expected two-space indentation:\n%s", text)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e, ok := loaded.Get("https://github.com/alpha/a")
	if !ok || e.Branch != "dev" || e.Commit != strings.Repeat("a", 40) {
		t.Errorf("round trip entry = %+v, ok=%v", e, ok)
	}
}

func TestSetIdenticalEntryDoesNotDirty(t *testing.T) {
	s := NewStore()
	e := Entry{Branch: "main", Commit: "abc123"}
	s.Set("x", e)
	s.changed = false

	s.Set("x", e)
	if s.Changed() {
		t.Error("re-setting an identical entry should not mark the store changed")
	}

	s.Set("x", Entry{Branch: "main", Commit: "def456"})
	if !s.Changed() {
		t.Error("a differing entry should mark the store changed")
	}
}

func TestRemove(t *testing.T) {
	s := NewStore()
	s.Set("x", Entry{Commit: "abc"})
	s.changed = false

	s.Remove("missing")
	if s.Changed() {
		t.Error("removing an absent identity should not dirty the store")
	}

	s.Remove("x")
	if !s.Changed() {
		t.Error("removing a present identity should dirty the store")
	}
	if _, ok := s.Get("x"); ok {
		t.Error("entry still present after Remove")
	}
}
