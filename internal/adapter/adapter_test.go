package adapter

import (
	"errors"
	"testing"

	"github.com/openduel/sync-server-go/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMagicGame(t *testing.T, playerIDs ...string) (*MagicAdapter, *state.TCGGameState) {
	t.Helper()
	ad := NewMagicAdapter()
	s, err := ad.CreateInitialState(Config{SessionID: "session-1", PlayerIDs: playerIDs})
	require.NoError(t, err)
	return ad, s
}

func action(playerID string, typ state.ActionType, payload map[string]any) state.GameStateAction {
	return state.GameStateAction{Type: typ, PlayerID: playerID, Payload: payload}
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.ElementsMatch(t, []string{"magic", "pokemon", "yugioh"}, reg.GameTypes())

	ad, err := reg.Create("magic")
	require.NoError(t, err)
	assert.Equal(t, "magic", ad.GameType())

	_, err = reg.Create("chess")
	var unsupported *state.UnsupportedGameError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "chess", unsupported.GameType)
}

func TestRegistryIsolation(t *testing.T) {
	// Registering into one registry must not leak into another.
	a := NewRegistry()
	a.Register(func() GameAdapter { return NewMagicAdapter() })
	b := NewRegistry()

	_, err := a.Create("magic")
	assert.NoError(t, err)
	_, err = b.Create("magic")
	assert.Error(t, err)
}

func TestCreateInitialStatePlayerCounts(t *testing.T) {
	magic := NewMagicAdapter()

	_, err := magic.CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1"}})
	var cfgErr *state.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	ids := make([]string, 11)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	_, err = magic.CreateInitialState(Config{SessionID: "s", PlayerIDs: ids})
	assert.True(t, errors.As(err, &cfgErr))

	_, err = magic.CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1", "p1"}})
	assert.True(t, errors.As(err, &cfgErr))

	_, err = magic.CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1", ""}})
	assert.True(t, errors.As(err, &cfgErr))

	// Two-player games reject a third player.
	_, err = NewPokemonAdapter().CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1", "p2", "p3"}})
	assert.True(t, errors.As(err, &cfgErr))
	_, err = NewYugiohAdapter().CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1", "p2", "p3"}})
	assert.True(t, errors.As(err, &cfgErr))

	// Ten players is legal in the MTG-like profile.
	s, err := magic.CreateInitialState(Config{SessionID: "s", PlayerIDs: ids[:10]})
	require.NoError(t, err)
	assert.Len(t, s.Players, 10)
}

func TestCreateInitialStateMagic(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")

	assert.Equal(t, int64(0), s.Version)
	assert.Equal(t, "magic", s.GameType)
	assert.Equal(t, "p1", s.CurrentTurn.ActivePlayerID)
	assert.Equal(t, string(MagicPhaseBeginning), s.CurrentTurn.Phase)
	assert.Equal(t, 1, s.CurrentTurn.TurnNumber)

	for _, p := range s.Players {
		assert.Equal(t, 20, p.LifeTotal)
		assert.Len(t, p.Hand, 7)
		assert.Equal(t, 53, p.LibraryCount)
	}

	// Opening-hand card IDs are deterministic.
	assert.Equal(t, "p1-draw-1", s.Players[0].Hand[0])
	assert.Equal(t, "p2-draw-7", s.Players[1].Hand[6])

	result := ad.ValidateState(s)
	assert.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidateStateRejectsCorruption(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")

	bad := s.Clone()
	bad.CurrentTurn.ActivePlayerID = "ghost"
	bad.Players[0].LibraryCount = -1
	result := ad.ValidateState(bad)
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 2)
}

func TestPhaseGating(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")

	// Playing a card is main-phase only.
	err := ad.ValidateAction(s, action("p1", state.ActionPlay, map[string]any{"cardId": "p1-draw-1"}))
	var vErr *state.ValidationError
	assert.True(t, errors.As(err, &vErr))

	// Draw is restricted to the active player.
	err = ad.ValidateAction(s, action("p2", state.ActionDraw, nil))
	assert.True(t, errors.As(err, &vErr))

	// Unknown players never act.
	err = ad.ValidateAction(s, action("ghost", state.ActionDraw, nil))
	assert.True(t, errors.As(err, &vErr))

	// The active player may draw during beginning.
	assert.NoError(t, ad.ValidateAction(s, action("p1", state.ActionDraw, nil)))

	// After advancing to precombat main, play becomes legal and draw does not.
	s2, err := ad.ApplyAction(s, action("p1", state.ActionAdvancePhase, nil))
	require.NoError(t, err)
	assert.Equal(t, string(MagicPhasePrecombatMain), s2.CurrentTurn.Phase)
	assert.NoError(t, ad.ValidateAction(s2, action("p1", state.ActionPlay, map[string]any{"cardId": "p1-draw-1"})))
	assert.Error(t, ad.ValidateAction(s2, action("p1", state.ActionDraw, nil)))
}

func TestApplyActionDoesNotMutateInput(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")
	before, err := s.Checksum()
	require.NoError(t, err)

	next, err := ad.ApplyAction(s, action("p1", state.ActionDraw, nil))
	require.NoError(t, err)
	assert.Len(t, next.Players[0].Hand, 8)

	after, err := s.Checksum()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPlayTapUntapCycle(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")
	s.CurrentTurn.Phase = string(MagicPhasePrecombatMain)

	s, err := ad.ApplyAction(s, action("p1", state.ActionPlay, map[string]any{"cardId": "p1-draw-1"}))
	require.NoError(t, err)
	card := s.Card("p1-draw-1")
	require.NotNil(t, card)
	assert.Equal(t, state.ZoneBattlefield, card.Zone)
	assert.Equal(t, "p1", card.ControllerID)
	assert.True(t, card.FaceUp)
	assert.NotContains(t, s.Players[0].Hand, "p1-draw-1")
	require.NoError(t, s.ValidateZones())

	s, err = ad.ApplyAction(s, action("p1", state.ActionTap, map[string]any{"cardId": "p1-draw-1"}))
	require.NoError(t, err)
	assert.True(t, s.Card("p1-draw-1").Tapped)

	// Tapping an already tapped card is rejected.
	err = ad.ValidateAction(s, action("p1", state.ActionTap, map[string]any{"cardId": "p1-draw-1"}))
	var vErr *state.ValidationError
	assert.True(t, errors.As(err, &vErr))

	s, err = ad.ApplyAction(s, action("p1", state.ActionUntap, map[string]any{"cardId": "p1-draw-1"}))
	require.NoError(t, err)
	assert.False(t, s.Card("p1-draw-1").Tapped)
}

func TestMoveToLibraryErasesIdentity(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")

	s, err := ad.ApplyAction(s, action("p1", state.ActionMoveZone,
		map[string]any{"cardId": "p1-draw-1", "toZone": state.ZoneLibrary}))
	require.NoError(t, err)

	assert.Nil(t, s.Card("p1-draw-1"))
	assert.Equal(t, 54, s.Players[0].LibraryCount)
	assert.NotContains(t, s.Players[0].Hand, "p1-draw-1")
	require.NoError(t, s.ValidateZones())
}

func TestStackLIFO(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")
	s.CurrentTurn.Phase = string(MagicPhasePrecombatMain)

	a1 := action("p1", state.ActionStackPush, map[string]any{"cardId": "p1-draw-1", "kind": "spell"})
	a1.ID = "eff-1"
	s, err := ad.ApplyAction(s, a1)
	require.NoError(t, err)

	a2 := action("p2", state.ActionStackPush, map[string]any{"cardId": "p2-draw-1", "kind": "spell"})
	a2.ID = "eff-2"
	s, err = ad.ApplyAction(s, a2)
	require.NoError(t, err)
	require.Len(t, s.Stack, 2)

	// Top of stack (last pushed) resolves first.
	s, err = ad.ApplyAction(s, action("p2", state.ActionStackResolve, nil))
	require.NoError(t, err)
	require.Len(t, s.Stack, 1)
	assert.Equal(t, "eff-1", s.Stack[0].ID)
	assert.Equal(t, state.ZoneGraveyard, s.Card("p2-draw-1").Zone)

	// Countering removes the remaining effect and buries the source.
	s, err = ad.ApplyAction(s, action("p2", state.ActionCounterSpell, map[string]any{"effectId": "eff-1"}))
	require.NoError(t, err)
	assert.Empty(t, s.Stack)
	assert.Equal(t, state.ZoneGraveyard, s.Card("p1-draw-1").Zone)
	require.NoError(t, s.ValidateZones())
}

func TestStackResolvePermanent(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")
	s.CurrentTurn.Phase = string(MagicPhasePrecombatMain)
	s.Cards["p1-draw-1"].Metadata = map[string]string{"permanent": "true"}

	push := action("p1", state.ActionStackPush, map[string]any{"cardId": "p1-draw-1"})
	push.ID = "eff-1"
	s, err := ad.ApplyAction(s, push)
	require.NoError(t, err)

	s, err = ad.ApplyAction(s, action("p1", state.ActionStackResolve, nil))
	require.NoError(t, err)
	assert.Equal(t, state.ZoneBattlefield, s.Card("p1-draw-1").Zone)
	assert.Contains(t, s.Battlefield.Permanents, "p1-draw-1")
}

func TestPassPriorityResolvesThenAdvances(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")
	s.CurrentTurn.Phase = string(MagicPhasePrecombatMain)

	push := action("p1", state.ActionStackPush, map[string]any{"cardId": "p1-draw-1"})
	push.ID = "eff-1"
	s, err := ad.ApplyAction(s, push)
	require.NoError(t, err)

	s, err = ad.ApplyAction(s, action("p1", state.ActionPassPriority, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, s.CurrentTurn.Passed)
	require.Len(t, s.Stack, 1)

	// Second pass completes the round: the stack resolves.
	s, err = ad.ApplyAction(s, action("p2", state.ActionPassPriority, nil))
	require.NoError(t, err)
	assert.Empty(t, s.Stack)
	assert.Empty(t, s.CurrentTurn.Passed)
	assert.Equal(t, string(MagicPhasePrecombatMain), s.CurrentTurn.Phase)

	// With an empty stack, a full pass round advances the phase instead.
	s, err = ad.ApplyAction(s, action("p1", state.ActionPassPriority, nil))
	require.NoError(t, err)
	s, err = ad.ApplyAction(s, action("p2", state.ActionPassPriority, nil))
	require.NoError(t, err)
	assert.Equal(t, string(MagicPhaseCombat), s.CurrentTurn.Phase)
}

func TestTurnRotationAndUntap(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2", "p3")
	s.CurrentTurn.Phase = string(MagicPhasePrecombatMain)

	s, err := ad.ApplyAction(s, action("p1", state.ActionPlay, map[string]any{"cardId": "p1-draw-1"}))
	require.NoError(t, err)
	s, err = ad.ApplyAction(s, action("p1", state.ActionTap, map[string]any{"cardId": "p1-draw-1"}))
	require.NoError(t, err)

	// Walk the remaining phases to wrap the turn.
	for s.CurrentTurn.TurnNumber == 1 {
		s, err = ad.AdvancePhase(s)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, s.CurrentTurn.TurnNumber)
	assert.Equal(t, "p2", s.CurrentTurn.ActivePlayerID)
	assert.Equal(t, string(MagicPhaseBeginning), s.CurrentTurn.Phase)

	// p1's permanent stays tapped until p1's own turn begins.
	assert.True(t, s.Card("p1-draw-1").Tapped)
	for s.CurrentTurn.ActivePlayerID != "p1" {
		s, err = ad.AdvancePhase(s)
		require.NoError(t, err)
	}
	assert.False(t, s.Card("p1-draw-1").Tapped)
}

func TestTurnRotationSkipsLostPlayers(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2", "p3")
	s.Players[1].HasLost = true

	var err error
	for s.CurrentTurn.TurnNumber == 1 {
		s, err = ad.AdvancePhase(s)
		require.NoError(t, err)
	}
	assert.Equal(t, "p3", s.CurrentTurn.ActivePlayerID)
}

func TestDeclareAttackersAndBlockers(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")
	s.CurrentTurn.Phase = string(MagicPhasePrecombatMain)

	s, err := ad.ApplyAction(s, action("p1", state.ActionPlay, map[string]any{"cardId": "p1-draw-1"}))
	require.NoError(t, err)
	s.CurrentTurn.Phase = string(MagicPhaseCombat)

	s, err = ad.ApplyAction(s, action("p1", state.ActionDeclareAttackers,
		map[string]any{"attackerIds": []string{"p1-draw-1"}, "defenderId": "p2"}))
	require.NoError(t, err)
	attacker := s.Card("p1-draw-1")
	assert.True(t, attacker.Tapped)
	assert.Equal(t, "p2", attacker.Metadata["attacking"])

	// A tapped creature cannot be declared again.
	err = ad.ValidateAction(s, action("p1", state.ActionDeclareAttackers,
		map[string]any{"attackerIds": []string{"p1-draw-1"}}))
	assert.Error(t, err)

	// Blockers may only be declared from your own battlefield.
	err = ad.ValidateAction(s, action("p2", state.ActionDeclareBlockers,
		map[string]any{"blockerIds": []string{"p1-draw-1"}}))
	assert.Error(t, err)
}

func TestCounterBookkeeping(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")

	s, err := ad.ApplyAction(s, action("p1", state.ActionAddCounter,
		map[string]any{"cardId": "p1-draw-1", "counter": "charge", "count": 3}))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Card("p1-draw-1").Counters["charge"])

	// Removal floors at zero and deletes the entry.
	s, err = ad.ApplyAction(s, action("p1", state.ActionRemoveCounter,
		map[string]any{"cardId": "p1-draw-1", "counter": "charge", "count": 5}))
	require.NoError(t, err)
	_, present := s.Card("p1-draw-1").Counters["charge"]
	assert.False(t, present)
}

func TestMagicWinByLifeDepletion(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")

	s, err := ad.ApplyAction(s, action("p1", state.ActionDamage,
		map[string]any{"targetId": "p2", "amount": 20}))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Players[1].LifeTotal)

	win := ad.CheckWinCondition(s)
	require.NotNil(t, win)
	assert.Equal(t, "p1", win.WinnerID)
	assert.Equal(t, "life_depleted", win.Condition)
}

func TestMagicWinByCommanderDamage(t *testing.T) {
	ad := NewMagicAdapter()
	s, err := ad.CreateInitialState(Config{
		SessionID: "s", PlayerIDs: []string{"p1", "p2"}, StartingLife: 40,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		s, err = ad.ApplyAction(s, action("p1", state.ActionDamage,
			map[string]any{"targetId": "p2", "amount": 7, "combat": true, "sourceId": "p1-draw-1"}))
		require.NoError(t, err)
	}
	// 21 accumulated from one source beats the remaining life total.
	assert.Positive(t, s.Players[1].LifeTotal)

	win := ad.CheckWinCondition(s)
	require.NotNil(t, win)
	assert.Equal(t, "p1", win.WinnerID)
	assert.Equal(t, "commander_damage", win.Condition)
}

func TestMagicWinByEmptyLibraryDraw(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")
	s.Players[0].LibraryCount = 0

	s, err := ad.ApplyAction(s, action("p1", state.ActionDraw, nil))
	require.NoError(t, err)
	assert.True(t, s.Players[0].HasLost)

	win := ad.CheckWinCondition(s)
	require.NotNil(t, win)
	assert.Equal(t, "p2", win.WinnerID)
	assert.Equal(t, "empty_library_draw", win.Condition)
}

func TestMagicWinByConcession(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2", "p3")

	s, err := ad.ApplyAction(s, action("p2", state.ActionConcede, nil))
	require.NoError(t, err)
	assert.Nil(t, ad.CheckWinCondition(s), "two players remain")

	s, err = ad.ApplyAction(s, action("p3", state.ActionConcede, nil))
	require.NoError(t, err)
	win := ad.CheckWinCondition(s)
	require.NotNil(t, win)
	assert.Equal(t, "p1", win.WinnerID)
	assert.Equal(t, "concede", win.Condition)
}

func TestPokemonKnockoutClaimsPrize(t *testing.T) {
	ad := NewPokemonAdapter()
	s, err := ad.CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1", "p2"}})
	require.NoError(t, err)

	// Each side starts with one active creature and six prizes.
	assert.Equal(t, state.ZoneBattlefield, s.Card("p1-active-1").Zone)
	assert.Equal(t, 6.0, s.Players[0].Resources["prizes_remaining"])

	s.CurrentTurn.Phase = string(PokemonPhaseAttack)
	s, err = ad.ApplyAction(s, action("p1", state.ActionDamage,
		map[string]any{"targetId": "p2-active-1", "amount": 60}))
	require.NoError(t, err)

	assert.Equal(t, state.ZoneGraveyard, s.Card("p2-active-1").Zone)
	assert.Equal(t, 5.0, s.Players[0].Resources["prizes_remaining"])

	// The defender still holds cards, so the knockout opens a replacement
	// window through their next turn instead of ending the game.
	assert.Nil(t, ad.CheckWinCondition(s))
	assert.Equal(t, 2.0, s.Players[1].Resources["replace_creature_by_turn"])
}

func TestPokemonKnockoutWithEmptyHandLosesImmediately(t *testing.T) {
	ad := NewPokemonAdapter()
	s, err := ad.CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1", "p2"}})
	require.NoError(t, err)

	// No cards in hand means no replacement is possible.
	for _, id := range s.Players[1].Hand {
		delete(s.Cards, id)
	}
	s.Players[1].Hand = nil

	s.CurrentTurn.Phase = string(PokemonPhaseAttack)
	s, err = ad.ApplyAction(s, action("p1", state.ActionDamage,
		map[string]any{"targetId": "p2-active-1", "amount": 60}))
	require.NoError(t, err)

	win := ad.CheckWinCondition(s)
	require.NotNil(t, win)
	assert.Equal(t, "p1", win.WinnerID)
	assert.Equal(t, "no_creatures_in_play", win.Condition)
}

func TestPokemonReplacementCreatureKeepsGameGoing(t *testing.T) {
	ad := NewPokemonAdapter()
	s, err := ad.CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1", "p2"}})
	require.NoError(t, err)

	s.CurrentTurn.Phase = string(PokemonPhaseAttack)
	s, err = ad.ApplyAction(s, action("p1", state.ActionDamage,
		map[string]any{"targetId": "p2-active-1", "amount": 60}))
	require.NoError(t, err)
	require.Nil(t, ad.CheckWinCondition(s))

	// Reach the defender's main phase on their own turn.
	for s.CurrentTurn.TurnNumber < 2 || s.CurrentTurn.Phase != string(PokemonPhaseMain) {
		s, err = ad.AdvancePhase(s)
		require.NoError(t, err)
	}
	require.Equal(t, "p2", s.CurrentTurn.ActivePlayerID)

	s, err = ad.ApplyAction(s, action("p2", state.ActionPlay, map[string]any{"cardId": "p2-draw-1"}))
	require.NoError(t, err)

	replacement := s.Card("p2-draw-1")
	require.NotNil(t, replacement)
	assert.Equal(t, state.ZoneBattlefield, replacement.Zone)
	assert.Equal(t, "true", replacement.Metadata["creature"])
	_, pending := s.Players[1].Resources["replace_creature_by_turn"]
	assert.False(t, pending, "replacement closes the window")
	assert.Nil(t, ad.CheckWinCondition(s))
}

func TestPokemonMissedReplacementWindowLoses(t *testing.T) {
	ad := NewPokemonAdapter()
	s, err := ad.CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1", "p2"}})
	require.NoError(t, err)

	s.CurrentTurn.Phase = string(PokemonPhaseAttack)
	s, err = ad.ApplyAction(s, action("p1", state.ActionDamage,
		map[string]any{"targetId": "p2-active-1", "amount": 60}))
	require.NoError(t, err)

	// The defender's turn 2 passes with no creature put into play.
	for s.CurrentTurn.TurnNumber < 3 {
		require.Nil(t, ad.CheckWinCondition(s))
		s, err = ad.AdvancePhase(s)
		require.NoError(t, err)
	}

	win := ad.CheckWinCondition(s)
	require.NotNil(t, win)
	assert.Equal(t, "p1", win.WinnerID)
	assert.Equal(t, "no_creatures_in_play", win.Condition)
}

func TestSimultaneousLossIsADraw(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")

	s.Players[0].LifeTotal = 0
	s.Players[1].LifeTotal = 0

	win := ad.CheckWinCondition(s)
	require.NotNil(t, win, "game must terminate when every player has lost")
	assert.Empty(t, win.WinnerID)
	assert.Equal(t, "draw", win.Condition)
}

func TestPokemonDamageBelowHPDoesNotKnockOut(t *testing.T) {
	ad := NewPokemonAdapter()
	s, err := ad.CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1", "p2"}})
	require.NoError(t, err)

	s.CurrentTurn.Phase = string(PokemonPhaseAttack)
	s, err = ad.ApplyAction(s, action("p1", state.ActionDamage,
		map[string]any{"targetId": "p2-active-1", "amount": 30}))
	require.NoError(t, err)

	assert.Equal(t, state.ZoneBattlefield, s.Card("p2-active-1").Zone)
	assert.Equal(t, 30, s.Card("p2-active-1").Counters["damage"])
	assert.Nil(t, ad.CheckWinCondition(s))
}

func TestPokemonAllPrizesClaimedWins(t *testing.T) {
	ad := NewPokemonAdapter()
	s, err := ad.CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1", "p2"}})
	require.NoError(t, err)

	s.Players[0].Resources["prizes_remaining"] = 0
	win := ad.CheckWinCondition(s)
	require.NotNil(t, win)
	assert.Equal(t, "p1", win.WinnerID)
	assert.Equal(t, "all_prizes_claimed", win.Condition)
}

func TestYugiohWinByLifePoints(t *testing.T) {
	ad := NewYugiohAdapter()
	s, err := ad.CreateInitialState(Config{SessionID: "s", PlayerIDs: []string{"p1", "p2"}})
	require.NoError(t, err)
	assert.Equal(t, 8000, s.Players[0].LifeTotal)
	assert.Len(t, s.Players[0].Hand, 5)
	assert.Equal(t, 35, s.Players[0].LibraryCount)

	s, err = ad.ApplyAction(s, action("p1", state.ActionDamage,
		map[string]any{"targetId": "p2", "amount": 8000}))
	require.NoError(t, err)

	win := ad.CheckWinCondition(s)
	require.NotNil(t, win)
	assert.Equal(t, "p1", win.WinnerID)
	assert.Equal(t, "life_points_depleted", win.Condition)
}

func TestPhaseCycles(t *testing.T) {
	assert.Equal(t, []Phase{
		MagicPhaseBeginning, MagicPhasePrecombatMain, MagicPhaseCombat,
		MagicPhasePostcombatMain, MagicPhaseEnding,
	}, NewMagicAdapter().Phases())
	assert.Equal(t, []Phase{
		PokemonPhaseDraw, PokemonPhaseMain, PokemonPhaseAttack, PokemonPhaseEnd,
	}, NewPokemonAdapter().Phases())
	assert.Equal(t, []Phase{
		YugiohPhaseDraw, YugiohPhaseStandby, YugiohPhaseMain1,
		YugiohPhaseBattle, YugiohPhaseMain2, YugiohPhaseEnd,
	}, NewYugiohAdapter().Phases())
}

func TestAvailableActionsRespectLegality(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")

	types := func(actions []state.GameStateAction) map[state.ActionType]int {
		out := make(map[state.ActionType]int)
		for _, a := range actions {
			out[a.Type]++
		}
		return out
	}

	// Active player during beginning: draw yes, play no.
	active := types(ad.AvailableActions(s, "p1"))
	assert.Equal(t, 1, active[state.ActionDraw])
	assert.Zero(t, active[state.ActionPlay])
	assert.Equal(t, 1, active[state.ActionAdvancePhase])

	// Opponent: no turn-bound actions.
	opponent := types(ad.AvailableActions(s, "p2"))
	assert.Zero(t, opponent[state.ActionDraw])
	assert.Zero(t, opponent[state.ActionAdvancePhase])
	assert.Equal(t, 1, opponent[state.ActionPassPriority])
	assert.Equal(t, 1, opponent[state.ActionConcede])

	// During main, each hand card is a play candidate.
	s.CurrentTurn.Phase = string(MagicPhasePrecombatMain)
	main := types(ad.AvailableActions(s, "p1"))
	assert.Equal(t, 7, main[state.ActionPlay])

	assert.Nil(t, ad.AvailableActions(s, "ghost"))
}

func TestAvailableActionsAllValidate(t *testing.T) {
	ad, s := newMagicGame(t, "p1", "p2")
	s.CurrentTurn.Phase = string(MagicPhasePrecombatMain)

	for _, a := range ad.AvailableActions(s, "p1") {
		assert.NoError(t, ad.ValidateAction(s, a), "action %s", a.Type)
	}
}
