package state

// ViewFor returns a redacted copy of the state suitable for sending to a
// single player. Opposing hands are reduced to face-down ID stubs and
// face-down cards anywhere lose their identity; libraries are count-only
// in the model itself so nothing extra is needed there.
func (s *TCGGameState) ViewFor(playerID string) *TCGGameState {
	view := s.Clone()

	hidden := make(map[string]bool)
	for pi := range view.Players {
		p := &view.Players[pi]
		if p.ID == playerID {
			continue
		}
		for _, id := range p.Hand {
			hidden[id] = true
		}
	}

	for id, card := range view.Cards {
		conceal := hidden[id] || (!card.FaceUp && card.OwnerID != playerID)
		if !conceal {
			continue
		}
		view.Cards[id] = &CardReference{
			ID:      card.ID,
			OwnerID: card.OwnerID,
			Zone:    card.Zone,
			FaceUp:  false,
		}
	}

	return view
}
