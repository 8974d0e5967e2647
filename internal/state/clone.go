package state

// Clone returns a deep copy of the card reference.
func (c *CardReference) Clone() *CardReference {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Counters != nil {
		cp.Counters = make(map[string]int, len(c.Counters))
		for k, v := range c.Counters {
			cp.Counters[k] = v
		}
	}
	cp.Attachments = append([]string(nil), c.Attachments...)
	if c.Metadata != nil {
		cp.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// Clone returns a deep copy of the player state.
func (p *PlayerState) Clone() PlayerState {
	cp := *p
	cp.Hand = append([]string(nil), p.Hand...)
	cp.Graveyard = append([]string(nil), p.Graveyard...)
	cp.Exile = append([]string(nil), p.Exile...)
	cp.CommandZone = append([]string(nil), p.CommandZone...)
	if p.Resources != nil {
		cp.Resources = make(map[string]float64, len(p.Resources))
		for k, v := range p.Resources {
			cp.Resources[k] = v
		}
	}
	return cp
}

func (e StackEffect) clone() StackEffect {
	cp := e
	if e.Metadata != nil {
		cp.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}

// Clone returns a deep copy of the full game state. Adapters receive and
// return clones; no component mutates a snapshot another component holds.
func (s *TCGGameState) Clone() *TCGGameState {
	if s == nil {
		return nil
	}
	cp := *s

	cp.Players = make([]PlayerState, len(s.Players))
	for i := range s.Players {
		cp.Players[i] = s.Players[i].Clone()
	}

	cp.Stack = make([]StackEffect, len(s.Stack))
	for i := range s.Stack {
		cp.Stack[i] = s.Stack[i].clone()
	}

	cp.Battlefield.Permanents = append([]string(nil), s.Battlefield.Permanents...)
	cp.CurrentTurn.Passed = append([]string(nil), s.CurrentTurn.Passed...)

	cp.Cards = make(map[string]*CardReference, len(s.Cards))
	for id, card := range s.Cards {
		cp.Cards[id] = card.Clone()
	}

	return &cp
}
