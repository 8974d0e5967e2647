package session

import "github.com/openduel/sync-server-go/internal/state"

// Outcome describes what happened to a submitted action.
type Outcome string

const (
	// OutcomeApplied: the action applied directly against the current version.
	OutcomeApplied Outcome = "applied"
	// OutcomeTransformed: concurrent actions intervened but the action
	// still applied (independent or commutative with all of them).
	OutcomeTransformed Outcome = "transformed"
	// OutcomeStaleNoop: a concurrent action won the same target;
	// first-committed wins and this action became a harmless no-op.
	OutcomeStaleNoop Outcome = "stale_noop"
)

type relation int

const (
	relationIndependent relation = iota
	relationCommutative
	relationConflicting
)

// commutativeTypes apply cleanly in any order: numeric deltas combine.
var commutativeTypes = map[state.ActionType]bool{
	state.ActionChangeLife:    true,
	state.ActionDamage:        true,
	state.ActionAddCounter:    true,
	state.ActionRemoveCounter: true,
}

// combatDeclarations mutate disjoint per-player combat assignments, so
// declarations from different players are independent even when they name
// the same defending object.
var combatDeclarations = map[state.ActionType]bool{
	state.ActionDeclareAttackers: true,
	state.ActionDeclareBlockers:  true,
}

// classify decides how an incoming action relates to one already
// committed since the incoming action's base version.
func classify(incoming, committed state.GameStateAction) relation {
	if commutativeTypes[incoming.Type] && commutativeTypes[committed.Type] {
		return relationCommutative
	}
	if combatDeclarations[incoming.Type] && combatDeclarations[committed.Type] &&
		incoming.PlayerID != committed.PlayerID {
		return relationIndependent
	}

	if overlaps(targetsOf(incoming), targetsOf(committed)) {
		return relationConflicting
	}

	// Untargeted game-level actions from the same player collide with
	// themselves: a duplicate advance_phase or pass_priority intends the
	// same single step the committed one already took.
	if incoming.PlayerID == committed.PlayerID && incoming.Type == committed.Type &&
		len(targetsOf(incoming)) == 0 && untargetedOnce[incoming.Type] {
		return relationConflicting
	}

	return relationIndependent
}

// untargetedOnce marks game-level actions where a concurrent duplicate
// from the same player represents the same intent, not a second step.
var untargetedOnce = map[state.ActionType]bool{
	state.ActionAdvancePhase: true,
	state.ActionPassPriority: true,
	state.ActionStackResolve: true,
	state.ActionConcede:      true,
}

// targetsOf extracts the object identities an action mutates.
func targetsOf(a state.GameStateAction) []string {
	var out []string
	for _, key := range []string{"cardId", "targetId", "effectId"} {
		if v := a.PayloadString(key); v != "" {
			out = append(out, v)
		}
	}
	out = append(out, a.PayloadStrings("attackerIds")...)
	out = append(out, a.PayloadStrings("blockerIds")...)
	return out
}

func overlaps(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if set[v] {
			return true
		}
	}
	return false
}

// transformAgainst rewrites an incoming action in light of every action
// committed since its base version, in chronological order. It returns
// the (possibly unchanged) action and whether it collapsed to a no-op.
// Committed actions that themselves collapsed to no-ops mutated nothing
// and never shadow a later submission.
func transformAgainst(incoming state.GameStateAction, committed []state.GameStateAction) (state.GameStateAction, Outcome) {
	outcome := OutcomeTransformed
	for _, c := range committed {
		if c.PayloadBool("noop") {
			continue
		}
		if classify(incoming, c) == relationConflicting {
			return incoming, OutcomeStaleNoop
		}
	}
	return incoming, outcome
}
