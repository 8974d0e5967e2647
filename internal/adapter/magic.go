package adapter

import "github.com/openduel/sync-server-go/internal/state"

// GameTypeMagic identifies the MTG-like reference adapter.
const GameTypeMagic = "magic"

// Magic phase cycle.
const (
	MagicPhaseBeginning      Phase = "beginning"
	MagicPhasePrecombatMain  Phase = "precombat_main"
	MagicPhaseCombat         Phase = "combat"
	MagicPhasePostcombatMain Phase = "postcombat_main"
	MagicPhaseEnding         Phase = "ending"
)

// commanderDamageThreshold is the accumulated combat damage from a single
// source that eliminates a player.
const commanderDamageThreshold = 21

// MagicAdapter implements the MTG-like rules profile: 2-10 players,
// 20 starting life, a five-phase turn. A player loses at life <= 0, at 21+
// accumulated combat damage from one source, or on drawing from an empty
// library.
type MagicAdapter struct {
	rules gameRules
}

// NewMagicAdapter creates the MTG-like adapter.
func NewMagicAdapter() *MagicAdapter {
	return &MagicAdapter{rules: gameRules{
		gameType:     GameTypeMagic,
		minPlayers:   2,
		maxPlayers:   10,
		startingLife: 20,
		deckSize:     60,
		handSize:     7,
		phases: []Phase{
			MagicPhaseBeginning,
			MagicPhasePrecombatMain,
			MagicPhaseCombat,
			MagicPhasePostcombatMain,
			MagicPhaseEnding,
		},
		phaseGate: map[state.ActionType][]Phase{
			state.ActionDraw:             {MagicPhaseBeginning},
			state.ActionPlay:             {MagicPhasePrecombatMain, MagicPhasePostcombatMain},
			state.ActionDeclareAttackers: {MagicPhaseCombat},
			state.ActionDeclareBlockers:  {MagicPhaseCombat},
		},
		turnBound: map[state.ActionType]bool{
			state.ActionDraw:             true,
			state.ActionPlay:             true,
			state.ActionDeclareAttackers: true,
			state.ActionAdvancePhase:     true,
		},
		untapOnTurnStart: true,
	}}
}

func (a *MagicAdapter) GameType() string { return GameTypeMagic }

func (a *MagicAdapter) CreateInitialState(cfg Config) (*state.TCGGameState, error) {
	return createInitialState(a.rules, cfg)
}

func (a *MagicAdapter) ValidateState(s *state.TCGGameState) ValidationResult {
	return validateState(a.rules, s)
}

func (a *MagicAdapter) ValidateAction(s *state.TCGGameState, act state.GameStateAction) error {
	return validateAction(a.rules, s, act)
}

func (a *MagicAdapter) ApplyAction(s *state.TCGGameState, act state.GameStateAction) (*state.TCGGameState, error) {
	return applyAction(a.rules, s, act)
}

func (a *MagicAdapter) AvailableActions(s *state.TCGGameState, playerID string) []state.GameStateAction {
	return availableActions(a.rules, a, s, playerID)
}

func (a *MagicAdapter) Phases() []Phase {
	return append([]Phase(nil), a.rules.phases...)
}

func (a *MagicAdapter) AdvancePhase(s *state.TCGGameState) (*state.TCGGameState, error) {
	next := s.Clone()
	advance(a.rules, next)
	return next, nil
}

func (a *MagicAdapter) CheckWinCondition(s *state.TCGGameState) *WinResult {
	lost := make(map[string]string)
	for i := range s.Players {
		p := &s.Players[i]
		switch {
		case p.HasLost:
			lost[p.ID] = lossConditionFromReason(p.LossReason)
		case p.LifeTotal <= 0:
			lost[p.ID] = "life_depleted"
		case maxSingleSourceCombatDamage(p) >= commanderDamageThreshold:
			lost[p.ID] = "commander_damage"
		}
	}
	return decideWinner(s, lost)
}

func maxSingleSourceCombatDamage(p *state.PlayerState) int {
	max := 0.0
	for key, v := range p.Resources {
		if len(key) > len("combat_damage_from_") && key[:len("combat_damage_from_")] == "combat_damage_from_" && v > max {
			max = v
		}
	}
	return int(max)
}
