// Package adapter defines the per-game strategy contract consumed by the
// session manager, plus the reference adapters and their registry. Each
// adapter is an independent implementation of the same interface; the
// manager composes one per session and never subclasses.
package adapter

import "github.com/openduel/sync-server-go/internal/state"

// Phase is one entry in a game's fixed, ordered phase cycle.
type Phase string

// Config carries session-creation parameters. PlayerIDs is turn order.
type Config struct {
	SessionID    string
	PlayerIDs    []string
	StartingLife int                // 0 = adapter default
	Resources    map[string]float64 // extra starting resources per player
}

// ValidationResult reports structural and game-rule invariant checks.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// WinResult is returned by CheckWinCondition once the game is decided.
type WinResult struct {
	WinnerID  string
	Condition string
}

// GameAdapter is the per-game strategy contract. ApplyAction and
// AdvancePhase are pure: they never mutate their input and return a new
// snapshot with Version unchanged (the session manager increments it).
type GameAdapter interface {
	GameType() string
	CreateInitialState(cfg Config) (*state.TCGGameState, error)
	ValidateState(s *state.TCGGameState) ValidationResult
	ValidateAction(s *state.TCGGameState, a state.GameStateAction) error
	ApplyAction(s *state.TCGGameState, a state.GameStateAction) (*state.TCGGameState, error)
	AvailableActions(s *state.TCGGameState, playerID string) []state.GameStateAction
	CheckWinCondition(s *state.TCGGameState) *WinResult
	Phases() []Phase
	AdvancePhase(s *state.TCGGameState) (*state.TCGGameState, error)
}
