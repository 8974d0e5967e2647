package adapter

import "github.com/openduel/sync-server-go/internal/state"

// GameTypeYugioh identifies the Yu-Gi-Oh-like reference adapter.
const GameTypeYugioh = "yugioh"

// Yugioh phase cycle.
const (
	YugiohPhaseDraw    Phase = "draw"
	YugiohPhaseStandby Phase = "standby"
	YugiohPhaseMain1   Phase = "main1"
	YugiohPhaseBattle  Phase = "battle"
	YugiohPhaseMain2   Phase = "main2"
	YugiohPhaseEnd     Phase = "end"
)

// YugiohAdapter implements the Yu-Gi-Oh-like rules profile: exactly 2
// players, 8000 life points, a six-phase turn. A player loses at LP <= 0
// or on drawing from an empty deck.
type YugiohAdapter struct {
	rules gameRules
}

// NewYugiohAdapter creates the Yu-Gi-Oh-like adapter.
func NewYugiohAdapter() *YugiohAdapter {
	return &YugiohAdapter{rules: gameRules{
		gameType:     GameTypeYugioh,
		minPlayers:   2,
		maxPlayers:   2,
		startingLife: 8000,
		deckSize:     40,
		handSize:     5,
		phases: []Phase{
			YugiohPhaseDraw,
			YugiohPhaseStandby,
			YugiohPhaseMain1,
			YugiohPhaseBattle,
			YugiohPhaseMain2,
			YugiohPhaseEnd,
		},
		phaseGate: map[state.ActionType][]Phase{
			state.ActionDraw:             {YugiohPhaseDraw},
			state.ActionPlay:             {YugiohPhaseMain1, YugiohPhaseMain2},
			state.ActionDeclareAttackers: {YugiohPhaseBattle},
			state.ActionDeclareBlockers:  {YugiohPhaseBattle},
		},
		turnBound: map[state.ActionType]bool{
			state.ActionDraw:             true,
			state.ActionPlay:             true,
			state.ActionDeclareAttackers: true,
			state.ActionAdvancePhase:     true,
		},
	}}
}

func (a *YugiohAdapter) GameType() string { return GameTypeYugioh }

func (a *YugiohAdapter) CreateInitialState(cfg Config) (*state.TCGGameState, error) {
	return createInitialState(a.rules, cfg)
}

func (a *YugiohAdapter) ValidateState(s *state.TCGGameState) ValidationResult {
	return validateState(a.rules, s)
}

func (a *YugiohAdapter) ValidateAction(s *state.TCGGameState, act state.GameStateAction) error {
	return validateAction(a.rules, s, act)
}

func (a *YugiohAdapter) ApplyAction(s *state.TCGGameState, act state.GameStateAction) (*state.TCGGameState, error) {
	return applyAction(a.rules, s, act)
}

func (a *YugiohAdapter) AvailableActions(s *state.TCGGameState, playerID string) []state.GameStateAction {
	return availableActions(a.rules, a, s, playerID)
}

func (a *YugiohAdapter) Phases() []Phase {
	return append([]Phase(nil), a.rules.phases...)
}

func (a *YugiohAdapter) AdvancePhase(s *state.TCGGameState) (*state.TCGGameState, error) {
	next := s.Clone()
	advance(a.rules, next)
	return next, nil
}

func (a *YugiohAdapter) CheckWinCondition(s *state.TCGGameState) *WinResult {
	lost := make(map[string]string)
	for i := range s.Players {
		p := &s.Players[i]
		switch {
		case p.HasLost:
			lost[p.ID] = lossConditionFromReason(p.LossReason)
		case p.LifeTotal <= 0:
			lost[p.ID] = "life_points_depleted"
		}
	}
	return decideWinner(s, lost)
}
