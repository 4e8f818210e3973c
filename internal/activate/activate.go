// Package activate integrates installed plugins into the host runtime,
// either immediately or deferred until a declared trigger fires.
package activate

import (
	"fmt"
	"sync"

	"github.com/plugrove/plugrove/internal/logging"
)

// TriggerKind names one deferred-activation condition.
type TriggerKind string

const (
	KindFiletype TriggerKind = "filetype"
	KindEvent    TriggerKind = "event"
	KindKeys     TriggerKind = "keys"
	KindCommand  TriggerKind = "command"
)

// Handle is a runtime-specific subscription token.
type Handle any

// Runtime is the host collaborator the engine integrates plugins into.
type Runtime interface {
	// AddPath puts a plugin directory on the active search path.
	// Idempotent; later registrations take priority.
	AddPath(path string) error

	// SubscribeOnce registers a one-shot callback for a trigger
	// condition and returns a cancellable handle.
	SubscribeOnce(kind TriggerKind, pattern string, fn func()) (Handle, error)

	// Unsubscribe cancels a pending subscription.
	Unsubscribe(h Handle) error
}

// Triggers lists the conditions that may activate a plugin. Whichever
// fires first performs the activation.
type Triggers struct {
	Filetypes []string
	Events    []string
	Keys      []string
	Commands  []string
}

// Empty reports whether no condition is declared.
func (t Triggers) Empty() bool {
	return len(t.Filetypes) == 0 && len(t.Events) == 0 && len(t.Keys) == 0 && len(t.Commands) == 0
}

// Hook runs when a plugin activates, after its path joins the search path.
type Hook func() error

// State tracks one plugin's activation lifecycle within a process.
type State int

const (
	StatePending State = iota
	StateArmed
	StateActive
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateActive:
		return "active"
	default:
		return "pending"
	}
}

type node struct {
	identity string
	path     string
	state    State
	hook     Hook
	handles  []Handle
}

// Engine drives the activation state machine. The hook for an identity
// runs at most once per process lifetime, no matter how many trigger
// kinds are declared or how often a recurring trigger fires afterward.
type Engine struct {
	rt  Runtime
	log *logging.Logger

	mu    sync.Mutex
	nodes map[string]*node
}

// New creates an activation engine bound to a host runtime.
func New(rt Runtime, log *logging.Logger) *Engine {
	return &Engine{rt: rt, log: log, nodes: make(map[string]*node)}
}

// Register either activates a plugin immediately (no triggers) or arms
// it against each declared trigger. The installer calls this once per
// identity, after the identity's dependencies, so activation order
// respects the dependency graph.
func (e *Engine) Register(identity, path string, trig Triggers, hook Hook) error {
	e.mu.Lock()
	if _, ok := e.nodes[identity]; ok {
		e.mu.Unlock()
		return nil
	}
	n := &node{identity: identity, path: path, hook: hook}
	e.nodes[identity] = n

	if trig.Empty() {
		e.mu.Unlock()
		return e.fire(identity)
	}

	fire := func() {
		if err := e.fire(identity); err != nil {
			e.log.Errorf("activating %s: %v", identity, err)
		}
	}
	for _, sub := range subscriptions(trig) {
		h, err := e.rt.SubscribeOnce(sub.kind, sub.pattern, fire)
		if err != nil {
			// Forget the node so a later Register can retry.
			delete(e.nodes, identity)
			e.mu.Unlock()
			e.cancel(n)
			return fmt.Errorf("arming %s on %s '%s': %w", identity, sub.kind, sub.pattern, err)
		}
		n.handles = append(n.handles, h)
	}
	n.state = StateArmed
	e.mu.Unlock()
	return nil
}

// fire performs the single Pending/Armed -> Active transition: cancel
// the remaining subscriptions, add the path, run the hook.
func (e *Engine) fire(identity string) error {
	e.mu.Lock()
	n, ok := e.nodes[identity]
	if !ok || n.state == StateActive {
		e.mu.Unlock()
		return nil
	}
	n.state = StateActive
	handles := n.handles
	n.handles = nil
	e.mu.Unlock()

	for _, h := range handles {
		if err := e.rt.Unsubscribe(h); err != nil {
			e.log.Errorf("unsubscribing %s: %v", identity, err)
		}
	}

	if err := e.rt.AddPath(n.path); err != nil {
		return fmt.Errorf("adding %s to search path: %w", identity, err)
	}
	if n.hook != nil {
		if err := n.hook(); err != nil {
			return fmt.Errorf("activation hook for %s: %w", identity, err)
		}
	}
	return nil
}

// cancel unsubscribes everything a partially armed node registered.
func (e *Engine) cancel(n *node) {
	for _, h := range n.handles {
		_ = e.rt.Unsubscribe(h)
	}
	n.handles = nil
}

// StateOf reports the activation state of an identity.
func (e *Engine) StateOf(identity string) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.nodes[identity]
	if !ok {
		return StatePending, false
	}
	return n.state, true
}

type subscription struct {
	kind    TriggerKind
	pattern string
}

func subscriptions(t Triggers) []subscription {
	var subs []subscription
	add := func(kind TriggerKind, patterns []string) {
		for _, p := range patterns {
			subs = append(subs, subscription{kind: kind, pattern: p})
		}
	}
	add(KindFiletype, t.Filetypes)
	add(KindEvent, t.Events)
	add(KindKeys, t.Keys)
	add(KindCommand, t.Commands)
	return subs
}
