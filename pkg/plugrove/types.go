package plugrove

import (
	"github.com/plugrove/plugrove/internal/activate"
	"github.com/plugrove/plugrove/internal/engine"
)

// Type aliases re-export internal result types as the public API.
// Users import "github.com/plugrove/plugrove/pkg/plugrove" and use
// plugrove.SyncResult, plugrove.UpdateInfo, etc.

type NodeError = engine.NodeError
type CycleError = engine.CycleError
type Change = engine.Change
type InstallResult = engine.InstallResult
type SyncResult = engine.SyncResult
type RestoreResult = engine.RestoreResult
type UpdateInfo = engine.UpdateInfo

// Hook is an in-process activation hook. It runs at most once, after
// the plugin's directory has been added to the runtime path.
type Hook = activate.Hook

// Runtime is the host surface plugins activate against.
type Runtime = activate.Runtime

// State is a plugin's activation state.
type State = activate.State

const (
	StatePending = activate.StatePending
	StateArmed   = activate.StateArmed
	StateActive  = activate.StateActive
)
