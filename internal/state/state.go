package state

import (
	"fmt"
	"time"
)

// Zone names. A card reference lives in exactly one zone at a time;
// zone membership is tracked by ID lists, card data lives in the flat
// card table on TCGGameState.
const (
	ZoneLibrary     = "library"
	ZoneHand        = "hand"
	ZoneBattlefield = "battlefield"
	ZoneGraveyard   = "graveyard"
	ZoneStack       = "stack"
	ZoneExile       = "exile"
	ZoneCommand     = "command"
)

// GameStateBase carries the version metadata shared by every game state.
// Version increases by exactly one per accepted action; two states with
// equal SessionID and equal Version must be structurally identical.
type GameStateBase struct {
	Version        int64     `json:"version"`
	Timestamp      time.Time `json:"timestamp"`
	LastModifiedBy string    `json:"lastModifiedBy"`
	GameType       string    `json:"gameType"`
	SessionID      string    `json:"sessionId"`
}

// TurnInfo tracks whose turn it is and where in the turn cycle we are.
type TurnInfo struct {
	ActivePlayerID string   `json:"activePlayerId"`
	Phase          string   `json:"phase"`
	Step           string   `json:"step,omitempty"`
	TurnNumber     int      `json:"turnNumber"`
	Passed         []string `json:"passed,omitempty"`
}

// StackEffect is a pending effect on the stack. Top of stack (last element)
// resolves first. Pure data; resolution semantics belong to the adapter.
type StackEffect struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	SourceCardID string            `json:"sourceCardId,omitempty"`
	ControllerID string            `json:"controllerId"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Battlefield holds the in-play permanents as a flat list of card IDs.
type Battlefield struct {
	Permanents []string `json:"permanents"`
}

// CardReference is a per-instance card object. ID owns identity; Name is
// descriptive and withheld in opaque zones. Attachments reference other
// cards by ID against the state's card table, so attachment cycles never
// become ownership cycles.
type CardReference struct {
	ID           string            `json:"id"`
	Name         string            `json:"name,omitempty"`
	OwnerID      string            `json:"ownerId"`
	ControllerID string            `json:"controllerId,omitempty"`
	Zone         string            `json:"zone"`
	Tapped       bool              `json:"tapped"`
	FaceUp       bool              `json:"faceUp"`
	Counters     map[string]int    `json:"counters,omitempty"`
	Attachments  []string          `json:"attachments,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// PlayerState holds one player's zones and totals. The library is exposed
// only as a count so its contents never leak to an opposing client;
// CardsDrawn feeds deterministic IDs for drawn cards.
type PlayerState struct {
	ID           string             `json:"id"`
	Name         string             `json:"name,omitempty"`
	LifeTotal    int                `json:"lifeTotal"`
	Hand         []string           `json:"hand"`
	Graveyard    []string           `json:"graveyard"`
	LibraryCount int                `json:"libraryCount"`
	CardsDrawn   int                `json:"cardsDrawn"`
	Exile        []string           `json:"exile"`
	CommandZone  []string           `json:"commandZone,omitempty"`
	Resources    map[string]float64 `json:"resources,omitempty"`
	HasLost      bool               `json:"hasLost"`
	LossReason   string             `json:"lossReason,omitempty"`
}

// TCGGameState is the authoritative, versioned representation of a session.
// Players are in turn order. Cards is the flat table owning every card
// instance; zone lists reference it by ID.
type TCGGameState struct {
	GameStateBase
	Players      []PlayerState             `json:"players"`
	CurrentTurn  TurnInfo                  `json:"currentTurn"`
	Stack        []StackEffect             `json:"stack"`
	Battlefield  Battlefield               `json:"battlefield"`
	Cards        map[string]*CardReference `json:"cards"`
	WinnerID     string                    `json:"winnerId,omitempty"`
	WinCondition string                    `json:"winCondition,omitempty"`
}

// Terminal reports whether a win condition has been recorded. A terminal
// state rejects all further mutating actions.
func (s *TCGGameState) Terminal() bool {
	return s.WinnerID != "" || s.WinCondition != ""
}

// Player returns the player with the given ID, or nil.
func (s *TCGGameState) Player(id string) *PlayerState {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// Card returns the card instance with the given ID, or nil.
func (s *TCGGameState) Card(id string) *CardReference {
	return s.Cards[id]
}

// NextPlayerID returns the next player in turn order after the given one,
// skipping players who have lost. Returns the same player if nobody else
// remains.
func (s *TCGGameState) NextPlayerID(after string) string {
	n := len(s.Players)
	start := 0
	for i := range s.Players {
		if s.Players[i].ID == after {
			start = i
			break
		}
	}
	for off := 1; off <= n; off++ {
		p := &s.Players[(start+off)%n]
		if !p.HasLost {
			return p.ID
		}
	}
	return after
}

// RemainingPlayers returns the IDs of players who have not lost.
func (s *TCGGameState) RemainingPlayers() []string {
	var out []string
	for i := range s.Players {
		if !s.Players[i].HasLost {
			out = append(out, s.Players[i].ID)
		}
	}
	return out
}

// ValidateZones checks that every card appears in exactly one zone list and
// that its Zone field agrees with the list holding it.
func (s *TCGGameState) ValidateZones() error {
	seen := make(map[string]string, len(s.Cards))

	note := func(cardID, zone string) error {
		if prev, dup := seen[cardID]; dup {
			return fmt.Errorf("card %s appears in both %s and %s", cardID, prev, zone)
		}
		seen[cardID] = zone
		card, ok := s.Cards[cardID]
		if !ok {
			return fmt.Errorf("zone %s references unknown card %s", zone, cardID)
		}
		if card.Zone != zone {
			return fmt.Errorf("card %s is listed in %s but marked as %s", cardID, zone, card.Zone)
		}
		return nil
	}

	for _, id := range s.Battlefield.Permanents {
		if err := note(id, ZoneBattlefield); err != nil {
			return err
		}
	}
	for pi := range s.Players {
		p := &s.Players[pi]
		for _, id := range p.Hand {
			if err := note(id, ZoneHand); err != nil {
				return err
			}
		}
		for _, id := range p.Graveyard {
			if err := note(id, ZoneGraveyard); err != nil {
				return err
			}
		}
		for _, id := range p.Exile {
			if err := note(id, ZoneExile); err != nil {
				return err
			}
		}
		for _, id := range p.CommandZone {
			if err := note(id, ZoneCommand); err != nil {
				return err
			}
		}
	}
	for _, eff := range s.Stack {
		if eff.SourceCardID == "" {
			continue
		}
		if err := note(eff.SourceCardID, ZoneStack); err != nil {
			return err
		}
	}

	for id, card := range s.Cards {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("card %s (zone %s) is not listed in any zone", id, card.Zone)
		}
	}
	return nil
}

// RemoveFromZone removes a card ID from whatever zone list currently holds
// it. Returns false if the card was not found in any list.
func (s *TCGGameState) RemoveFromZone(cardID string) bool {
	if removeID(&s.Battlefield.Permanents, cardID) {
		return true
	}
	for pi := range s.Players {
		p := &s.Players[pi]
		if removeID(&p.Hand, cardID) || removeID(&p.Graveyard, cardID) ||
			removeID(&p.Exile, cardID) || removeID(&p.CommandZone, cardID) {
			return true
		}
	}
	for i := range s.Stack {
		if s.Stack[i].SourceCardID == cardID {
			s.Stack = append(s.Stack[:i], s.Stack[i+1:]...)
			return true
		}
	}
	return false
}

func removeID(list *[]string, id string) bool {
	for i, v := range *list {
		if v == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}
