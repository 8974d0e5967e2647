package adapter

import (
	"fmt"

	"github.com/openduel/sync-server-go/internal/state"
)

// GameTypePokemon identifies the Pokemon-like reference adapter.
const GameTypePokemon = "pokemon"

// Pokemon phase cycle.
const (
	PokemonPhaseDraw   Phase = "draw"
	PokemonPhaseMain   Phase = "main"
	PokemonPhaseAttack Phase = "attack"
	PokemonPhaseEnd    Phase = "end"
)

const pokemonPrizeCount = 6

// resourcePrizes tracks how many prize cards a player still has to claim.
const resourcePrizes = "prizes_remaining"

// resourceReplaceBy records the turn number by which a player left with
// no creature in play must put a replacement into play.
const resourceReplaceBy = "replace_creature_by_turn"

// PokemonAdapter implements the Pokemon-like rules profile: exactly 2
// players, 6 prize cards each. A player wins when all their prizes are
// claimed, when the opponent has no creature in play after a required
// replacement, or when the opponent draws from an empty deck. Losing your
// last creature opens a replacement window: the loss only lands once the
// player cannot replace (empty hand) or lets their next turn pass without
// putting a creature into play.
type PokemonAdapter struct {
	rules gameRules
}

// NewPokemonAdapter creates the Pokemon-like adapter.
func NewPokemonAdapter() *PokemonAdapter {
	return &PokemonAdapter{rules: gameRules{
		gameType:     GameTypePokemon,
		minPlayers:   2,
		maxPlayers:   2,
		startingLife: 0,
		deckSize:     60,
		handSize:     7,
		phases: []Phase{
			PokemonPhaseDraw,
			PokemonPhaseMain,
			PokemonPhaseAttack,
			PokemonPhaseEnd,
		},
		phaseGate: map[state.ActionType][]Phase{
			state.ActionDraw:             {PokemonPhaseDraw},
			state.ActionPlay:             {PokemonPhaseMain},
			state.ActionDeclareAttackers: {PokemonPhaseAttack},
			state.ActionDamage:           {PokemonPhaseAttack},
		},
		turnBound: map[state.ActionType]bool{
			state.ActionDraw:             true,
			state.ActionPlay:             true,
			state.ActionDeclareAttackers: true,
			state.ActionDamage:           true,
			state.ActionAdvancePhase:     true,
		},
		resources: map[string]float64{
			resourcePrizes: pokemonPrizeCount,
		},
	}}
}

func (a *PokemonAdapter) GameType() string { return GameTypePokemon }

// CreateInitialState seeds each player with an active creature in play;
// from then on, losing your last creature without a replacement ends the
// game.
func (a *PokemonAdapter) CreateInitialState(cfg Config) (*state.TCGGameState, error) {
	s, err := createInitialState(a.rules, cfg)
	if err != nil {
		return nil, err
	}
	for i := range s.Players {
		p := &s.Players[i]
		active := &state.CardReference{
			ID:           fmt.Sprintf("%s-active-1", p.ID),
			Name:         "Basic Creature",
			OwnerID:      p.ID,
			ControllerID: p.ID,
			Zone:         state.ZoneBattlefield,
			FaceUp:       true,
			Metadata:     map[string]string{"creature": "true", "hp": "60"},
		}
		s.Cards[active.ID] = active
		s.Battlefield.Permanents = append(s.Battlefield.Permanents, active.ID)
	}
	return s, nil
}

func (a *PokemonAdapter) ValidateState(s *state.TCGGameState) ValidationResult {
	result := validateState(a.rules, s)
	for i := range s.Players {
		p := &s.Players[i]
		if prizes, ok := p.Resources[resourcePrizes]; ok && (prizes < 0 || prizes > pokemonPrizeCount) {
			result.Valid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("player %s has %v prizes remaining, want 0-%d", p.ID, prizes, pokemonPrizeCount))
		}
	}
	return result
}

func (a *PokemonAdapter) ValidateAction(s *state.TCGGameState, act state.GameStateAction) error {
	return validateAction(a.rules, s, act)
}

// ApplyAction layers knockout handling on the shared mechanics: when
// damage puts a creature at or past its HP, the creature is knocked out
// to the graveyard and the attacker claims a prize. Any card put into
// play in this profile is a basic creature, and replacement windows are
// reconciled after every action.
func (a *PokemonAdapter) ApplyAction(s *state.TCGGameState, act state.GameStateAction) (*state.TCGGameState, error) {
	next, err := applyAction(a.rules, s, act)
	if err != nil {
		return nil, err
	}
	switch act.Type {
	case state.ActionDamage:
		a.checkKnockout(next, act)
	case state.ActionPlay, state.ActionMoveZone:
		a.markCreature(next.Card(act.PayloadString("cardId")))
	}
	a.updateReplacementWindows(next)
	return next, nil
}

func (a *PokemonAdapter) markCreature(card *state.CardReference) {
	if card == nil || card.Zone != state.ZoneBattlefield {
		return
	}
	if card.Metadata == nil {
		card.Metadata = make(map[string]string)
	}
	if card.Metadata["creature"] == "" {
		card.Metadata["creature"] = "true"
	}
	if card.Metadata["hp"] == "" {
		card.Metadata["hp"] = "60"
	}
}

// updateReplacementWindows opens a window for any player who just lost
// their last creature and closes it again once a replacement is in play.
// The deadline is the player's upcoming turn, or the current one when the
// board was emptied during their own turn.
func (a *PokemonAdapter) updateReplacementWindows(s *state.TCGGameState) {
	for i := range s.Players {
		p := &s.Players[i]
		if a.creaturesInPlay(s, p.ID) > 0 {
			delete(p.Resources, resourceReplaceBy)
			continue
		}
		if _, pending := p.Resources[resourceReplaceBy]; pending {
			continue
		}
		deadline := s.CurrentTurn.TurnNumber
		if s.CurrentTurn.ActivePlayerID != p.ID {
			deadline++
		}
		if p.Resources == nil {
			p.Resources = make(map[string]float64)
		}
		p.Resources[resourceReplaceBy] = float64(deadline)
	}
}

// replacementWindowClosed reports whether a creatureless player is out of
// chances: an empty hand means no replacement is possible, and an open
// window expires once the turn it was granted for has passed.
func (a *PokemonAdapter) replacementWindowClosed(s *state.TCGGameState, p *state.PlayerState) bool {
	if len(p.Hand) == 0 {
		return true
	}
	deadline, ok := p.Resources[resourceReplaceBy]
	if !ok {
		return false
	}
	return s.CurrentTurn.TurnNumber > int(deadline)
}

func (a *PokemonAdapter) checkKnockout(s *state.TCGGameState, act state.GameStateAction) {
	card := s.Card(act.PayloadString("targetId"))
	if card == nil || card.Zone != state.ZoneBattlefield || card.Metadata["creature"] != "true" {
		return
	}
	hp := 0
	fmt.Sscanf(card.Metadata["hp"], "%d", &hp)
	if hp <= 0 || card.Counters["damage"] < hp {
		return
	}
	moveCard(s, card, state.ZoneGraveyard)
	if attacker := s.Player(act.PlayerID); attacker != nil && attacker.Resources[resourcePrizes] > 0 {
		attacker.Resources[resourcePrizes]--
	}
}

func (a *PokemonAdapter) AvailableActions(s *state.TCGGameState, playerID string) []state.GameStateAction {
	return availableActions(a.rules, a, s, playerID)
}

func (a *PokemonAdapter) Phases() []Phase {
	return append([]Phase(nil), a.rules.phases...)
}

func (a *PokemonAdapter) AdvancePhase(s *state.TCGGameState) (*state.TCGGameState, error) {
	next := s.Clone()
	advance(a.rules, next)
	return next, nil
}

func (a *PokemonAdapter) CheckWinCondition(s *state.TCGGameState) *WinResult {
	lost := make(map[string]string)
	for i := range s.Players {
		p := &s.Players[i]
		switch {
		case p.HasLost:
			lost[p.ID] = lossConditionFromReason(p.LossReason)
		case a.creaturesInPlay(s, p.ID) == 0 && a.replacementWindowClosed(s, p):
			lost[p.ID] = "no_creatures_in_play"
		}
	}
	if win := decideWinner(s, lost); win != nil {
		return win
	}

	// All prizes claimed wins outright, independent of opponent state.
	for i := range s.Players {
		p := &s.Players[i]
		if !p.HasLost && p.Resources[resourcePrizes] <= 0 {
			return &WinResult{WinnerID: p.ID, Condition: "all_prizes_claimed"}
		}
	}
	return nil
}

func (a *PokemonAdapter) creaturesInPlay(s *state.TCGGameState, playerID string) int {
	n := 0
	for _, id := range s.Battlefield.Permanents {
		card := s.Card(id)
		if card != nil && controllerOf(card) == playerID && card.Metadata["creature"] == "true" {
			n++
		}
	}
	return n
}
