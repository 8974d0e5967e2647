// Package session implements the state manager: it owns the version
// history and action log for one game session, applies player actions
// through a game adapter, resolves conflicts between actions submitted
// against stale versions, and serves deltas for network transmission.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openduel/sync-server-go/internal/adapter"
	"github.com/openduel/sync-server-go/internal/delta"
	"github.com/openduel/sync-server-go/internal/state"
	"go.uber.org/zap"
)

// DefaultHistoryCapacity is the number of past snapshots retained per
// session.
const DefaultHistoryCapacity = 100

// Status is the manager lifecycle state. There is no transition from
// StatusTerminal back to StatusActive.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusActive      Status = "active"
	StatusTerminal    Status = "terminal"
)

// Result reports an accepted action: the new authoritative state, the
// action as recorded (with ResultingStateVersion stamped, possibly
// transformed), and the acceptance outcome.
type Result struct {
	State   *state.TCGGameState
	Action  state.GameStateAction
	Outcome Outcome
	Win     *adapter.WinResult
}

// Manager serializes all version and history mutation for one session.
// Concurrent callers queue on the internal mutex; different sessions are
// fully independent.
type Manager struct {
	mu      sync.Mutex
	adapter adapter.GameAdapter
	logger  *zap.Logger

	status  Status
	current *state.TCGGameState
	ring    *snapshotRing
	log     []state.GameStateAction
	redo    []state.GameStateAction
}

// Option configures a Manager.
type Option func(*Manager)

// WithHistoryCapacity overrides the retained snapshot window size.
func WithHistoryCapacity(n int) Option {
	return func(m *Manager) { m.ring = newSnapshotRing(n) }
}

// WithLogger attaches a zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates the initial state through the adapter and starts the
// version history at 0.
func NewManager(ad adapter.GameAdapter, cfg adapter.Config, opts ...Option) (*Manager, error) {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.New().String()
	}

	m := &Manager{
		adapter: ad,
		status:  StatusInitialized,
		ring:    newSnapshotRing(DefaultHistoryCapacity),
	}
	for _, opt := range opts {
		opt(m)
	}

	initial, err := ad.CreateInitialState(cfg)
	if err != nil {
		return nil, err
	}
	m.current = initial
	m.ring.Push(initial.Version, initial.Clone())

	if m.logger != nil {
		m.logger.Info("session initialized",
			zap.String("session_id", initial.SessionID),
			zap.String("game_type", ad.GameType()),
			zap.Int("players", len(initial.Players)),
		)
	}
	return m, nil
}

// SessionID returns the session handle.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.SessionID
}

// Status returns the lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// CurrentVersion returns the authoritative version.
func (m *Manager) CurrentVersion() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Version
}

// ApplyAction validates, transforms if needed, and applies one action.
// Acceptance is all-or-nothing: on any error the authoritative state is
// unchanged and the error carries the rejection reason.
func (m *Manager) ApplyAction(action state.GameStateAction) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusTerminal {
		return nil, &state.ValidationError{Reason: "game is over"}
	}

	base := action.PreviousStateVersion
	cur := m.current

	if base > cur.Version {
		err := &state.InvalidVersionError{ClientVersion: base, CurrentVersion: cur.Version}
		if m.logger != nil {
			m.logger.Warn("client version ahead of authoritative state",
				zap.String("session_id", cur.SessionID),
				zap.String("player_id", action.PlayerID),
				zap.Int64("client_version", base),
				zap.Int64("current_version", cur.Version),
			)
		}
		return nil, err
	}

	outcome := OutcomeApplied
	if base < cur.Version {
		action, outcome = transformAgainst(action, m.acceptedSince(base))
	}

	var next *state.TCGGameState
	if outcome == OutcomeStaleNoop {
		// First-committed won the target; record the action as a
		// harmless no-op so the submitter still observes a new version.
		// The submitter must still be a live participant.
		actor := cur.Player(action.PlayerID)
		if actor == nil {
			return nil, &state.ValidationError{Reason: fmt.Sprintf("player %s is not in this game", action.PlayerID)}
		}
		if actor.HasLost {
			return nil, &state.ValidationError{Reason: fmt.Sprintf("player %s has already lost", action.PlayerID)}
		}
		next = cur.Clone()
		action.SetPayload("noop", true)
	} else {
		if err := m.adapter.ValidateAction(cur, action); err != nil {
			return nil, err
		}
		applied, err := m.adapter.ApplyAction(cur, action)
		if err != nil {
			return nil, err
		}
		next = applied
	}

	next.Version = cur.Version + 1
	next.Timestamp = time.Now().UTC()
	next.LastModifiedBy = action.PlayerID

	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.Timestamp.IsZero() {
		action.Timestamp = next.Timestamp
	}
	action.ResultingStateVersion = next.Version

	var win *adapter.WinResult
	if w := m.adapter.CheckWinCondition(next); w != nil {
		next.WinnerID = w.WinnerID
		next.WinCondition = w.Condition
		win = w
		m.status = StatusTerminal
	} else {
		m.status = StatusActive
	}

	m.current = next
	m.ring.Push(next.Version, next.Clone())
	m.log = append(m.log, action.Clone())
	m.redo = nil

	if m.logger != nil {
		m.logger.Info("action accepted",
			zap.String("session_id", next.SessionID),
			zap.String("player_id", action.PlayerID),
			zap.String("action_type", string(action.Type)),
			zap.String("outcome", string(outcome)),
			zap.Int64("version", next.Version),
		)
	}

	return &Result{
		State:   next.Clone(),
		Action:  action,
		Outcome: outcome,
		Win:     win,
	}, nil
}

// acceptedSince returns the actions accepted after the given version, in
// chronological order.
func (m *Manager) acceptedSince(version int64) []state.GameStateAction {
	var out []state.GameStateAction
	for _, a := range m.log {
		if a.ResultingStateVersion > version {
			out = append(out, a)
		}
	}
	return out
}

// FullState returns a copy of the current authoritative snapshot, used to
// serve resync requests.
func (m *Manager) FullState() *state.TCGGameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

// ViewFor returns the current state redacted for one player.
func (m *Manager) ViewFor(playerID string) *state.TCGGameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.ViewFor(playerID)
}

// StateAtVersion returns the retained snapshot at the given version.
// Evicted versions fail with *state.VersionPrunedError; versions ahead of
// the authoritative state fail with *state.InvalidVersionError.
func (m *Manager) StateAtVersion(version int64) (*state.TCGGameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateAtVersionLocked(version)
}

func (m *Manager) stateAtVersionLocked(version int64) (*state.TCGGameState, error) {
	if version > m.current.Version {
		return nil, &state.InvalidVersionError{ClientVersion: version, CurrentVersion: m.current.Version}
	}
	snap, ok := m.ring.Get(version)
	if !ok {
		return nil, &state.VersionPrunedError{Version: version, OldestRetained: m.ring.Oldest()}
	}
	return snap.Clone(), nil
}

// DeltaSince computes one merged delta from the given version to the
// current state, for batched transmission.
func (m *Manager) DeltaSince(version int64) (delta.Delta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if version == m.current.Version {
		return delta.Delta{}, nil
	}
	from, err := m.stateAtVersionLocked(version)
	if err != nil {
		return nil, err
	}

	var deltas []delta.Delta
	prev := from
	for v := version + 1; v <= m.current.Version; v++ {
		snap, ok := m.ring.Get(v)
		if !ok {
			return nil, &state.VersionPrunedError{Version: v, OldestRetained: m.ring.Oldest()}
		}
		d, err := delta.Create(prev, snap)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
		prev = snap
	}
	return delta.Merge(deltas), nil
}

// Undo rewinds the session by n versions within the retained window. The
// undone action suffix moves to the redo log; any version outside the
// window fails with *state.VersionPrunedError rather than silently
// truncating.
func (m *Manager) Undo(n int) (*state.TCGGameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 {
		return nil, fmt.Errorf("undo count must be positive, got %d", n)
	}
	if m.status == StatusTerminal {
		return nil, &state.ValidationError{Reason: "game is over"}
	}

	target := m.current.Version - int64(n)
	snap, ok := m.ring.Get(target)
	if !ok {
		return nil, &state.VersionPrunedError{Version: target, OldestRetained: m.ring.Oldest()}
	}

	cut := len(m.log)
	for cut > 0 && m.log[cut-1].ResultingStateVersion > target {
		cut--
	}
	undone := append([]state.GameStateAction(nil), m.log[cut:]...)
	m.log = m.log[:cut]
	m.redo = append(undone, m.redo...)
	m.current = snap.Clone()

	if m.logger != nil {
		m.logger.Info("session rewound",
			zap.String("session_id", m.current.SessionID),
			zap.Int("steps", n),
			zap.Int64("version", m.current.Version),
		)
	}
	return m.current.Clone(), nil
}

// Redo replays n undone versions bit-identically from the retained
// snapshots. A newly accepted action truncates the redo log.
func (m *Manager) Redo(n int) (*state.TCGGameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 {
		return nil, fmt.Errorf("redo count must be positive, got %d", n)
	}
	if n > len(m.redo) {
		return nil, &state.ValidationError{Reason: fmt.Sprintf("only %d actions available to redo", len(m.redo))}
	}

	target := m.current.Version + int64(n)
	snap, ok := m.ring.Get(target)
	if !ok {
		return nil, &state.VersionPrunedError{Version: target, OldestRetained: m.ring.Oldest()}
	}

	m.log = append(m.log, m.redo[:n]...)
	m.redo = m.redo[n:]
	m.current = snap.Clone()

	if m.logger != nil {
		m.logger.Info("session replayed",
			zap.String("session_id", m.current.SessionID),
			zap.Int("steps", n),
			zap.Int64("version", m.current.Version),
		)
	}
	return m.current.Clone(), nil
}

// ActionLog returns a copy of the accepted-action log in order.
func (m *Manager) ActionLog() []state.GameStateAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]state.GameStateAction, len(m.log))
	for i, a := range m.log {
		out[i] = a.Clone()
	}
	return out
}

// AvailableActions enumerates the legal actions for a player against the
// current state.
func (m *Manager) AvailableActions(playerID string) []state.GameStateAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adapter.AvailableActions(m.current, playerID)
}

// Checksum returns the deterministic hash of the current state, for
// divergence debugging across replicas.
func (m *Manager) Checksum() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Checksum()
}
