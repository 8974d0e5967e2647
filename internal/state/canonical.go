package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CanonicalJSON returns the deterministic serialization of the state.
// encoding/json emits struct fields in declaration order and map keys
// sorted, so identical states always serialize to identical bytes. This
// form is the input to delta computation, compression-ratio sizing, and
// checksums.
func (s *TCGGameState) CanonicalJSON() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize state: %w", err)
	}
	return b, nil
}

// Checksum computes the SHA-256 hash of the canonical serialization.
// Used to detect divergence between replicas without shipping full states.
func (s *TCGGameState) Checksum() (string, error) {
	b, err := s.CanonicalJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// FromCanonicalJSON reconstructs a state from its canonical serialization.
func FromCanonicalJSON(data []byte) (*TCGGameState, error) {
	var s TCGGameState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to deserialize state: %w", err)
	}
	return &s, nil
}
