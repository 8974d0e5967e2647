package state

import "time"

// ActionType enumerates the closed set of player action kinds.
type ActionType string

const (
	ActionDraw             ActionType = "draw"
	ActionPlay             ActionType = "play"
	ActionTap              ActionType = "tap"
	ActionUntap            ActionType = "untap"
	ActionCounterSpell     ActionType = "counter"
	ActionDamage           ActionType = "damage"
	ActionMoveZone         ActionType = "move_zone"
	ActionStackPush        ActionType = "stack_push"
	ActionStackResolve     ActionType = "stack_resolve"
	ActionDeclareAttackers ActionType = "declare_attackers"
	ActionDeclareBlockers  ActionType = "declare_blockers"
	ActionChangeLife       ActionType = "change_life"
	ActionAddCounter       ActionType = "add_counter"
	ActionRemoveCounter    ActionType = "remove_counter"
	ActionShuffle          ActionType = "shuffle"
	ActionReveal           ActionType = "reveal"
	ActionPassPriority     ActionType = "pass_priority"
	ActionAdvancePhase     ActionType = "advance_phase"
	ActionConcede          ActionType = "concede"
)

// GameStateAction is a player-submitted action. PreviousStateVersion is the
// version the submitter believed was current; ResultingStateVersion is
// filled in by the session manager once the action is accepted.
type GameStateAction struct {
	ID                    string         `json:"id"`
	Type                  ActionType     `json:"type"`
	PlayerID              string         `json:"playerId"`
	Timestamp             time.Time      `json:"timestamp"`
	Payload               map[string]any `json:"payload,omitempty"`
	PreviousStateVersion  int64          `json:"previousStateVersion"`
	ResultingStateVersion int64          `json:"resultingStateVersion,omitempty"`
}

// Clone returns a deep copy of the action.
func (a GameStateAction) Clone() GameStateAction {
	cp := a
	if a.Payload != nil {
		cp.Payload = make(map[string]any, len(a.Payload))
		for k, v := range a.Payload {
			cp.Payload[k] = v
		}
	}
	return cp
}

// PayloadString reads a string payload field.
func (a GameStateAction) PayloadString(key string) string {
	if v, ok := a.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// PayloadFloat reads a numeric payload field. JSON decoding yields float64
// for all numbers, but int values set in-process are accepted too.
func (a GameStateAction) PayloadFloat(key string) (float64, bool) {
	switch v := a.Payload[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// PayloadInt reads a numeric payload field as an int.
func (a GameStateAction) PayloadInt(key string) (int, bool) {
	f, ok := a.PayloadFloat(key)
	return int(f), ok
}

// PayloadBool reads a boolean payload field.
func (a GameStateAction) PayloadBool(key string) bool {
	if v, ok := a.Payload[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// PayloadStrings reads a string-list payload field. Both []string and
// []any (the JSON decoding of an array) are accepted.
func (a GameStateAction) PayloadStrings(key string) []string {
	switch v := a.Payload[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// SetPayload sets a payload field, allocating the map if needed.
func (a *GameStateAction) SetPayload(key string, value any) {
	if a.Payload == nil {
		a.Payload = make(map[string]any)
	}
	a.Payload[key] = value
}
