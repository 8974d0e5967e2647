package state

import "fmt"

// ConfigError indicates bad initial configuration. Fatal: the session
// never starts.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// ValidationError indicates an action or state failed adapter rules.
// Recoverable: the action is rejected and the caller notified with the
// reason; authoritative state is untouched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// InvalidVersionError indicates a client submitted an action based on a
// version ahead of the authoritative state. This cannot happen under
// correct transport semantics and is logged as an anomaly.
type InvalidVersionError struct {
	ClientVersion  int64
	CurrentVersion int64
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("client version %d is ahead of authoritative version %d",
		e.ClientVersion, e.CurrentVersion)
}

// VersionPrunedError indicates a history lookup or undo/redo beyond the
// retained snapshot window. Recoverable: the caller must fall back to a
// full-state resync.
type VersionPrunedError struct {
	Version        int64
	OldestRetained int64
}

func (e *VersionPrunedError) Error() string {
	return fmt.Sprintf("version %d has been pruned from history (oldest retained: %d)",
		e.Version, e.OldestRetained)
}

// PatchConflictError indicates delta application failed an integrity
// check. Recoverable: triggers a mandatory full-state resync.
type PatchConflictError struct {
	Path   string
	Reason string
}

func (e *PatchConflictError) Error() string {
	return fmt.Sprintf("patch conflict at %q: %s", e.Path, e.Reason)
}

// UnsupportedGameError indicates no adapter is registered for the
// requested game type. Fatal at session creation.
type UnsupportedGameError struct {
	GameType string
}

func (e *UnsupportedGameError) Error() string {
	return fmt.Sprintf("unsupported game type: %s", e.GameType)
}
