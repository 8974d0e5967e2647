package adapter

import (
	"fmt"
	"time"

	"github.com/openduel/sync-server-go/internal/state"
)

// gameRules parameterizes the mechanics shared by the reference adapters:
// player-count bounds, starting totals, the phase cycle, and which phases
// permit which actions.
type gameRules struct {
	gameType     string
	minPlayers   int
	maxPlayers   int
	startingLife int
	deckSize     int
	handSize     int
	phases       []Phase
	// phaseGate restricts an action type to the listed phases for the
	// acting player. Absent entries mean any phase.
	phaseGate map[state.ActionType][]Phase
	// turnBound actions may only be taken by the active player.
	turnBound map[state.ActionType]bool
	// resources seeded per player at game start.
	resources map[string]float64
	// untapOnTurnStart untaps the incoming active player's permanents
	// when the phase cycle wraps.
	untapOnTurnStart bool
}

// createInitialState builds a version-0 state for the configured players.
func createInitialState(rules gameRules, cfg Config) (*state.TCGGameState, error) {
	n := len(cfg.PlayerIDs)
	if n < rules.minPlayers || n > rules.maxPlayers {
		return nil, &state.ConfigError{Reason: fmt.Sprintf(
			"%s supports %d-%d players, got %d", rules.gameType, rules.minPlayers, rules.maxPlayers, n)}
	}
	if cfg.SessionID == "" {
		return nil, &state.ConfigError{Reason: "session ID is required"}
	}
	seen := make(map[string]bool, n)
	for _, id := range cfg.PlayerIDs {
		if id == "" {
			return nil, &state.ConfigError{Reason: "empty player ID"}
		}
		if seen[id] {
			return nil, &state.ConfigError{Reason: fmt.Sprintf("duplicate player ID %s", id)}
		}
		seen[id] = true
	}

	life := rules.startingLife
	if cfg.StartingLife > 0 {
		life = cfg.StartingLife
	}

	s := &state.TCGGameState{
		GameStateBase: state.GameStateBase{
			Version:   0,
			Timestamp: time.Now().UTC(),
			GameType:  rules.gameType,
			SessionID: cfg.SessionID,
		},
		Players: make([]state.PlayerState, 0, n),
		CurrentTurn: state.TurnInfo{
			ActivePlayerID: cfg.PlayerIDs[0],
			Phase:          string(rules.phases[0]),
			TurnNumber:     1,
		},
		Stack:       []state.StackEffect{},
		Battlefield: state.Battlefield{Permanents: []string{}},
		Cards:       make(map[string]*state.CardReference),
	}

	for _, id := range cfg.PlayerIDs {
		p := state.PlayerState{
			ID:           id,
			Name:         id,
			LifeTotal:    life,
			Hand:         []string{},
			Graveyard:    []string{},
			LibraryCount: rules.deckSize,
			Exile:        []string{},
			Resources:    make(map[string]float64),
		}
		for k, v := range rules.resources {
			p.Resources[k] = v
		}
		for k, v := range cfg.Resources {
			p.Resources[k] = v
		}
		// Opening hand comes off the top of the deck with deterministic
		// instance IDs so replays reproduce the same card references.
		for j := 0; j < rules.handSize && p.LibraryCount > 0; j++ {
			p.LibraryCount--
			p.CardsDrawn++
			card := &state.CardReference{
				ID:      fmt.Sprintf("%s-draw-%d", id, p.CardsDrawn),
				OwnerID: id,
				Zone:    state.ZoneHand,
			}
			s.Cards[card.ID] = card
			p.Hand = append(p.Hand, card.ID)
		}
		s.Players = append(s.Players, p)
	}

	return s, nil
}

// validateState runs the structural checks shared by every game.
func validateState(rules gameRules, s *state.TCGGameState) ValidationResult {
	var errs []string
	if s.GameType != rules.gameType {
		errs = append(errs, fmt.Sprintf("game type is %q, want %q", s.GameType, rules.gameType))
	}
	if n := len(s.Players); n < rules.minPlayers || n > rules.maxPlayers {
		errs = append(errs, fmt.Sprintf("player count %d outside %d-%d", n, rules.minPlayers, rules.maxPlayers))
	}
	if s.Player(s.CurrentTurn.ActivePlayerID) == nil {
		errs = append(errs, fmt.Sprintf("active player %q does not exist", s.CurrentTurn.ActivePlayerID))
	}
	if !phaseExists(rules.phases, Phase(s.CurrentTurn.Phase)) {
		errs = append(errs, fmt.Sprintf("phase %q is not in the %s cycle", s.CurrentTurn.Phase, rules.gameType))
	}
	for i := range s.Players {
		if s.Players[i].LibraryCount < 0 {
			errs = append(errs, fmt.Sprintf("player %s has negative library count", s.Players[i].ID))
		}
	}
	if err := s.ValidateZones(); err != nil {
		errs = append(errs, err.Error())
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func phaseExists(cycle []Phase, p Phase) bool {
	for _, c := range cycle {
		if c == p {
			return true
		}
	}
	return false
}

// validateAction runs the checks every adapter must make: the game is not
// terminal, the actor exists and is still in the game, turn-bound actions
// come from the active player, the current phase permits the action, and
// referenced cards exist and are owned appropriately.
func validateAction(rules gameRules, s *state.TCGGameState, a state.GameStateAction) error {
	if s.Terminal() {
		return &state.ValidationError{Reason: "game is over"}
	}
	actor := s.Player(a.PlayerID)
	if actor == nil {
		return &state.ValidationError{Reason: fmt.Sprintf("player %s is not in this game", a.PlayerID)}
	}
	if actor.HasLost {
		return &state.ValidationError{Reason: fmt.Sprintf("player %s has already lost", a.PlayerID)}
	}
	if rules.turnBound[a.Type] && s.CurrentTurn.ActivePlayerID != a.PlayerID {
		return &state.ValidationError{Reason: fmt.Sprintf("%s requires the active turn", a.Type)}
	}
	if gate, gated := rules.phaseGate[a.Type]; gated && !phaseExists(gate, Phase(s.CurrentTurn.Phase)) {
		return &state.ValidationError{Reason: fmt.Sprintf("%s is not allowed during %s", a.Type, s.CurrentTurn.Phase)}
	}

	switch a.Type {
	case state.ActionPlay:
		card, err := actorCard(s, a, "cardId")
		if err != nil {
			return err
		}
		if card.Zone != state.ZoneHand || card.OwnerID != a.PlayerID {
			return &state.ValidationError{Reason: fmt.Sprintf("card %s is not in %s's hand", card.ID, a.PlayerID)}
		}
	case state.ActionTap, state.ActionUntap:
		card, err := actorCard(s, a, "cardId")
		if err != nil {
			return err
		}
		if card.Zone != state.ZoneBattlefield {
			return &state.ValidationError{Reason: fmt.Sprintf("card %s is not on the battlefield", card.ID)}
		}
		if a.Type == state.ActionTap && card.Tapped {
			return &state.ValidationError{Reason: fmt.Sprintf("card %s is already tapped", card.ID)}
		}
		if a.Type == state.ActionUntap && !card.Tapped {
			return &state.ValidationError{Reason: fmt.Sprintf("card %s is not tapped", card.ID)}
		}
	case state.ActionMoveZone:
		if _, err := actorCard(s, a, "cardId"); err != nil {
			return err
		}
		switch a.PayloadString("toZone") {
		case state.ZoneBattlefield, state.ZoneGraveyard, state.ZoneExile, state.ZoneHand,
			state.ZoneCommand, state.ZoneLibrary:
		default:
			return &state.ValidationError{Reason: fmt.Sprintf("unknown zone %q", a.PayloadString("toZone"))}
		}
	case state.ActionAddCounter, state.ActionRemoveCounter, state.ActionReveal:
		if _, err := actorCard(s, a, "cardId"); err != nil {
			return err
		}
	case state.ActionDamage:
		target := a.PayloadString("targetId")
		if target == "" {
			return &state.ValidationError{Reason: "damage requires a targetId"}
		}
		if s.Player(target) == nil && s.Card(target) == nil {
			return &state.ValidationError{Reason: fmt.Sprintf("damage target %s does not exist", target)}
		}
		if _, ok := a.PayloadFloat("amount"); !ok {
			return &state.ValidationError{Reason: "damage requires an amount"}
		}
	case state.ActionChangeLife:
		if _, ok := a.PayloadFloat("delta"); !ok {
			return &state.ValidationError{Reason: "change_life requires a delta"}
		}
		if target := a.PayloadString("targetId"); target != "" && s.Player(target) == nil {
			return &state.ValidationError{Reason: fmt.Sprintf("life target %s does not exist", target)}
		}
	case state.ActionCounterSpell:
		effectID := a.PayloadString("effectId")
		if findStackEffect(s, effectID) < 0 {
			return &state.ValidationError{Reason: fmt.Sprintf("stack effect %s does not exist", effectID)}
		}
	case state.ActionStackResolve:
		if len(s.Stack) == 0 {
			return &state.ValidationError{Reason: "the stack is empty"}
		}
	case state.ActionDeclareAttackers:
		for _, id := range a.PayloadStrings("attackerIds") {
			card := s.Card(id)
			if card == nil || card.Zone != state.ZoneBattlefield {
				return &state.ValidationError{Reason: fmt.Sprintf("attacker %s is not on the battlefield", id)}
			}
			if controllerOf(card) != a.PlayerID {
				return &state.ValidationError{Reason: fmt.Sprintf("attacker %s is not controlled by %s", id, a.PlayerID)}
			}
			if card.Tapped {
				return &state.ValidationError{Reason: fmt.Sprintf("attacker %s is tapped", id)}
			}
		}
	case state.ActionDeclareBlockers:
		for _, id := range a.PayloadStrings("blockerIds") {
			card := s.Card(id)
			if card == nil || card.Zone != state.ZoneBattlefield {
				return &state.ValidationError{Reason: fmt.Sprintf("blocker %s is not on the battlefield", id)}
			}
			if controllerOf(card) != a.PlayerID {
				return &state.ValidationError{Reason: fmt.Sprintf("blocker %s is not controlled by %s", id, a.PlayerID)}
			}
		}
	}

	return nil
}

// actorCard resolves the card named by the payload key, requiring it to
// exist in the card table.
func actorCard(s *state.TCGGameState, a state.GameStateAction, key string) (*state.CardReference, error) {
	id := a.PayloadString(key)
	if id == "" {
		return nil, &state.ValidationError{Reason: fmt.Sprintf("%s requires %s", a.Type, key)}
	}
	card := s.Card(id)
	if card == nil {
		return nil, &state.ValidationError{Reason: fmt.Sprintf("card %s does not exist", id)}
	}
	return card, nil
}

func controllerOf(card *state.CardReference) string {
	if card.ControllerID != "" {
		return card.ControllerID
	}
	return card.OwnerID
}

func findStackEffect(s *state.TCGGameState, id string) int {
	for i := range s.Stack {
		if s.Stack[i].ID == id {
			return i
		}
	}
	return -1
}

// applyAction applies one validated action to a clone of the state and
// returns the clone. Version is left untouched; the session manager owns
// version increments. All-or-nothing: any error leaves the input state
// unused by the caller.
func applyAction(rules gameRules, s *state.TCGGameState, a state.GameStateAction) (*state.TCGGameState, error) {
	next := s.Clone()
	actor := next.Player(a.PlayerID)

	switch a.Type {
	case state.ActionDraw:
		if err := drawCard(actor, next, a.PayloadString("cardName")); err != nil {
			return nil, err
		}

	case state.ActionPlay:
		card := next.Card(a.PayloadString("cardId"))
		dest := a.PayloadString("destination")
		if dest == "" {
			dest = state.ZoneBattlefield
		}
		card.FaceUp = true
		card.ControllerID = a.PlayerID
		moveCard(next, card, dest)

	case state.ActionTap:
		next.Card(a.PayloadString("cardId")).Tapped = true

	case state.ActionUntap:
		next.Card(a.PayloadString("cardId")).Tapped = false

	case state.ActionMoveZone:
		moveCard(next, next.Card(a.PayloadString("cardId")), a.PayloadString("toZone"))

	case state.ActionDamage:
		applyDamage(next, a)

	case state.ActionChangeLife:
		target := a.PayloadString("targetId")
		if target == "" {
			target = a.PlayerID
		}
		deltaLife, _ := a.PayloadFloat("delta")
		next.Player(target).LifeTotal += int(deltaLife)

	case state.ActionStackPush:
		eff := state.StackEffect{
			ID:           a.ID,
			Kind:         a.PayloadString("kind"),
			SourceCardID: a.PayloadString("cardId"),
			ControllerID: a.PlayerID,
			Description:  a.PayloadString("description"),
		}
		if eff.Kind == "" {
			eff.Kind = "spell"
		}
		if eff.SourceCardID != "" {
			card := next.Card(eff.SourceCardID)
			if card == nil {
				return nil, &state.ValidationError{Reason: fmt.Sprintf("card %s does not exist", eff.SourceCardID)}
			}
			card.FaceUp = true
			next.RemoveFromZone(card.ID)
			card.Zone = state.ZoneStack
		}
		next.Stack = append(next.Stack, eff)

	case state.ActionStackResolve:
		resolveTopOfStack(next)

	case state.ActionCounterSpell:
		idx := findStackEffect(next, a.PayloadString("effectId"))
		eff := next.Stack[idx]
		next.Stack = append(next.Stack[:idx], next.Stack[idx+1:]...)
		if eff.SourceCardID != "" {
			if card := next.Card(eff.SourceCardID); card != nil {
				moveCard(next, card, state.ZoneGraveyard)
			}
		}

	case state.ActionDeclareAttackers:
		defender := a.PayloadString("defenderId")
		for _, id := range a.PayloadStrings("attackerIds") {
			card := next.Card(id)
			card.Tapped = true
			setMetadata(card, "attacking", defender)
		}

	case state.ActionDeclareBlockers:
		attacker := a.PayloadString("attackerId")
		for _, id := range a.PayloadStrings("blockerIds") {
			setMetadata(next.Card(id), "blocking", attacker)
		}

	case state.ActionAddCounter:
		card := next.Card(a.PayloadString("cardId"))
		name := counterName(a)
		count, ok := a.PayloadInt("count")
		if !ok {
			count = 1
		}
		if card.Counters == nil {
			card.Counters = make(map[string]int)
		}
		card.Counters[name] += count

	case state.ActionRemoveCounter:
		card := next.Card(a.PayloadString("cardId"))
		name := counterName(a)
		count, ok := a.PayloadInt("count")
		if !ok {
			count = 1
		}
		if card.Counters != nil {
			card.Counters[name] -= count
			if card.Counters[name] <= 0 {
				delete(card.Counters, name)
			}
		}

	case state.ActionShuffle:
		actor.Resources["shuffles"]++

	case state.ActionReveal:
		next.Card(a.PayloadString("cardId")).FaceUp = true

	case state.ActionPassPriority:
		applyPassPriority(rules, next, a.PlayerID)

	case state.ActionAdvancePhase:
		advance(rules, next)

	case state.ActionConcede:
		actor.HasLost = true
		actor.LossReason = "concede"

	default:
		return nil, &state.ValidationError{Reason: fmt.Sprintf("unknown action type %q", a.Type)}
	}

	return next, nil
}

// drawCard takes the top card of the library. Instance IDs are derived
// from the per-player draw counter so replay is deterministic. Drawing
// from an empty library marks the player as lost; the win-condition check
// converts that into a terminal state.
func drawCard(p *state.PlayerState, s *state.TCGGameState, name string) error {
	if p.LibraryCount <= 0 {
		p.HasLost = true
		p.LossReason = "drew from empty library"
		return nil
	}
	p.LibraryCount--
	p.CardsDrawn++
	card := &state.CardReference{
		ID:      fmt.Sprintf("%s-draw-%d", p.ID, p.CardsDrawn),
		Name:    name,
		OwnerID: p.ID,
		Zone:    state.ZoneHand,
	}
	s.Cards[card.ID] = card
	p.Hand = append(p.Hand, card.ID)
	return nil
}

// moveCard relocates a card between zones, keeping the one-zone invariant.
// Moving to the library folds the instance back into the count-only zone:
// the reference is deleted and the owner's library count grows, so hidden
// information never reappears with a known identity.
func moveCard(s *state.TCGGameState, card *state.CardReference, toZone string) {
	s.RemoveFromZone(card.ID)

	if toZone == state.ZoneLibrary {
		if owner := s.Player(card.OwnerID); owner != nil {
			owner.LibraryCount++
		}
		for _, other := range s.Cards {
			removeAttachment(other, card.ID)
		}
		delete(s.Cards, card.ID)
		return
	}

	card.Zone = toZone
	switch toZone {
	case state.ZoneBattlefield:
		s.Battlefield.Permanents = append(s.Battlefield.Permanents, card.ID)
	case state.ZoneHand:
		if owner := s.Player(card.OwnerID); owner != nil {
			owner.Hand = append(owner.Hand, card.ID)
		}
	case state.ZoneGraveyard:
		card.Tapped = false
		clearCombatMetadata(card)
		if owner := s.Player(card.OwnerID); owner != nil {
			owner.Graveyard = append(owner.Graveyard, card.ID)
		}
	case state.ZoneExile:
		if owner := s.Player(card.OwnerID); owner != nil {
			owner.Exile = append(owner.Exile, card.ID)
		}
	case state.ZoneCommand:
		if owner := s.Player(card.OwnerID); owner != nil {
			owner.CommandZone = append(owner.CommandZone, card.ID)
		}
	}
}

func removeAttachment(card *state.CardReference, id string) {
	for i, att := range card.Attachments {
		if att == id {
			card.Attachments = append(card.Attachments[:i], card.Attachments[i+1:]...)
			return
		}
	}
}

func clearCombatMetadata(card *state.CardReference) {
	if card.Metadata != nil {
		delete(card.Metadata, "attacking")
		delete(card.Metadata, "blocking")
	}
}

func setMetadata(card *state.CardReference, key, value string) {
	if card.Metadata == nil {
		card.Metadata = make(map[string]string)
	}
	card.Metadata[key] = value
}

func counterName(a state.GameStateAction) string {
	if name := a.PayloadString("counter"); name != "" {
		return name
	}
	return "+1/+1"
}

// applyDamage routes damage to a player's life total or a card's damage
// counters. Combat damage against a player is additionally tracked per
// source for single-source accumulation rules.
func applyDamage(s *state.TCGGameState, a state.GameStateAction) {
	amount, _ := a.PayloadFloat("amount")
	target := a.PayloadString("targetId")

	if p := s.Player(target); p != nil {
		p.LifeTotal -= int(amount)
		if a.PayloadBool("combat") {
			source := a.PayloadString("sourceId")
			if source != "" {
				if p.Resources == nil {
					p.Resources = make(map[string]float64)
				}
				p.Resources["combat_damage_from_"+source] += amount
			}
		}
		return
	}
	if card := s.Card(target); card != nil {
		if card.Counters == nil {
			card.Counters = make(map[string]int)
		}
		card.Counters["damage"] += int(amount)
	}
}

// resolveTopOfStack pops the topmost effect (LIFO) and sends its source
// card to the battlefield or graveyard depending on whether it is a
// permanent.
func resolveTopOfStack(s *state.TCGGameState) {
	top := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	if top.SourceCardID == "" {
		return
	}
	card := s.Card(top.SourceCardID)
	if card == nil {
		return
	}
	if top.Metadata["permanent"] == "true" || card.Metadata["permanent"] == "true" {
		card.ControllerID = top.ControllerID
		moveCard(s, card, state.ZoneBattlefield)
	} else {
		moveCard(s, card, state.ZoneGraveyard)
	}
}

// applyPassPriority records a pass. Once every remaining player has
// passed, the top of the stack resolves if the stack is non-empty,
// otherwise the phase advances.
func applyPassPriority(rules gameRules, s *state.TCGGameState, playerID string) {
	for _, id := range s.CurrentTurn.Passed {
		if id == playerID {
			return
		}
	}
	s.CurrentTurn.Passed = append(s.CurrentTurn.Passed, playerID)

	remaining := s.RemainingPlayers()
	passed := make(map[string]bool, len(s.CurrentTurn.Passed))
	for _, id := range s.CurrentTurn.Passed {
		passed[id] = true
	}
	for _, id := range remaining {
		if !passed[id] {
			return
		}
	}

	s.CurrentTurn.Passed = nil
	if len(s.Stack) > 0 {
		resolveTopOfStack(s)
		return
	}
	advance(rules, s)
}

// advance moves to the next phase in the cycle. Advancing past the last
// phase increments the turn counter, rotates the active player to the
// next in turn order, and resets to the first phase.
func advance(rules gameRules, s *state.TCGGameState) {
	cur := Phase(s.CurrentTurn.Phase)
	idx := 0
	for i, p := range rules.phases {
		if p == cur {
			idx = i
			break
		}
	}

	s.CurrentTurn.Passed = nil
	if idx+1 < len(rules.phases) {
		s.CurrentTurn.Phase = string(rules.phases[idx+1])
		return
	}

	s.CurrentTurn.Phase = string(rules.phases[0])
	s.CurrentTurn.TurnNumber++
	next := s.NextPlayerID(s.CurrentTurn.ActivePlayerID)
	s.CurrentTurn.ActivePlayerID = next

	if rules.untapOnTurnStart {
		for _, id := range s.Battlefield.Permanents {
			card := s.Card(id)
			if card != nil && controllerOf(card) == next {
				card.Tapped = false
				clearCombatMetadata(card)
			}
		}
	}
}

// availableActions enumerates candidate actions for a player and keeps
// only those that pass validateAction.
func availableActions(rules gameRules, ad GameAdapter, s *state.TCGGameState, playerID string) []state.GameStateAction {
	actor := s.Player(playerID)
	if actor == nil {
		return nil
	}

	candidate := func(t state.ActionType, payload map[string]any) state.GameStateAction {
		return state.GameStateAction{
			Type:                 t,
			PlayerID:             playerID,
			Payload:              payload,
			PreviousStateVersion: s.Version,
		}
	}

	var candidates []state.GameStateAction
	candidates = append(candidates,
		candidate(state.ActionDraw, nil),
		candidate(state.ActionAdvancePhase, nil),
		candidate(state.ActionPassPriority, nil),
		candidate(state.ActionConcede, nil),
	)
	for _, id := range actor.Hand {
		candidates = append(candidates, candidate(state.ActionPlay, map[string]any{"cardId": id}))
	}
	for _, id := range s.Battlefield.Permanents {
		card := s.Card(id)
		if card == nil || controllerOf(card) != playerID {
			continue
		}
		if card.Tapped {
			candidates = append(candidates, candidate(state.ActionUntap, map[string]any{"cardId": id}))
		} else {
			candidates = append(candidates, candidate(state.ActionTap, map[string]any{"cardId": id}))
		}
	}
	if len(s.Stack) > 0 {
		candidates = append(candidates, candidate(state.ActionStackResolve, nil))
	}

	var legal []state.GameStateAction
	for _, c := range candidates {
		if ad.ValidateAction(s, c) == nil {
			legal = append(legal, c)
		}
	}
	return legal
}

// decideWinner returns a WinResult once every player but one has a loss
// condition. The reported condition is the first loser's in turn order so
// the result is deterministic when several players lose at once. When
// every player loses simultaneously the game still terminates, as a draw
// with no winner.
func decideWinner(s *state.TCGGameState, lost map[string]string) *WinResult {
	if len(s.Players) > 0 && len(lost) == len(s.Players) {
		return &WinResult{Condition: "draw"}
	}
	if len(lost) != len(s.Players)-1 {
		return nil
	}
	var winner string
	condition := "last_player_standing"
	for i := range s.Players {
		id := s.Players[i].ID
		if c, ok := lost[id]; ok {
			if condition == "last_player_standing" {
				condition = c
			}
			continue
		}
		winner = id
	}
	if winner == "" {
		return nil
	}
	return &WinResult{WinnerID: winner, Condition: condition}
}

// lossConditionFromReason maps recorded loss reasons to win conditions.
func lossConditionFromReason(reason string) string {
	switch reason {
	case "concede":
		return "concede"
	case "drew from empty library":
		return "empty_library_draw"
	default:
		return reason
	}
}
