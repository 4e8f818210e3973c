// Package host provides the in-process runtime collaborator used by the
// CLI and tests: an ordered search path plus a one-shot trigger bus.
package host

import (
	"fmt"
	"sync"

	"github.com/plugrove/plugrove/internal/activate"
)

type subscription struct {
	kind    activate.TriggerKind
	pattern string
	fn      func()
}

// Bus implements activate.Runtime in memory.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
	paths  []string
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]subscription)}
}

// AddPath puts a directory at the front of the active search path.
// Re-adding an already active path moves it to the front rather than
// duplicating it, so later registrations take priority.
func (b *Bus) AddPath(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, p := range b.paths {
		if p == path {
			b.paths = append(b.paths[:i], b.paths[i+1:]...)
			break
		}
	}
	b.paths = append([]string{path}, b.paths...)
	return nil
}

// SubscribeOnce registers a one-shot callback and returns its handle.
func (b *Bus) SubscribeOnce(kind activate.TriggerKind, pattern string, fn func()) (activate.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = subscription{kind: kind, pattern: pattern, fn: fn}
	return id, nil
}

// Unsubscribe cancels a pending subscription. Cancelling a handle that
// already fired is a no-op.
func (b *Bus) Unsubscribe(h activate.Handle) error {
	id, ok := h.(int)
	if !ok {
		return fmt.Errorf("host: unknown handle type %T", h)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
	return nil
}

// Emit fires every pending subscription matching the trigger, consuming
// each one, and returns how many fired. Callbacks run outside the bus
// lock so they may subscribe or unsubscribe freely.
func (b *Bus) Emit(kind activate.TriggerKind, value string) int {
	b.mu.Lock()
	var fired []func()
	for id, sub := range b.subs {
		if sub.kind == kind && sub.pattern == value {
			fired = append(fired, sub.fn)
			delete(b.subs, id)
		}
	}
	b.mu.Unlock()

	for _, fn := range fired {
		fn()
	}
	return len(fired)
}

// Pending returns the number of outstanding subscriptions.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Paths returns the active search path, highest priority first.
func (b *Bus) Paths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.paths))
	copy(out, b.paths)
	return out
}
