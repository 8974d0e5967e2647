package delta

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/openduel/sync-server-go/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseState() *state.TCGGameState {
	return &state.TCGGameState{
		GameStateBase: state.GameStateBase{
			Version:   10,
			Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			GameType:  "magic",
			SessionID: "session-1",
		},
		Players: []state.PlayerState{
			{ID: "p1", LifeTotal: 20, Hand: []string{"c1"}, Graveyard: []string{}, Exile: []string{}, LibraryCount: 53},
			{ID: "p2", LifeTotal: 20, Hand: []string{}, Graveyard: []string{}, Exile: []string{}, LibraryCount: 53},
		},
		CurrentTurn: state.TurnInfo{ActivePlayerID: "p1", Phase: "beginning", TurnNumber: 1},
		Stack:       []state.StackEffect{},
		Battlefield: state.Battlefield{Permanents: []string{}},
		Cards: map[string]*state.CardReference{
			"c1": {ID: "c1", Name: "Bear", OwnerID: "p1", Zone: state.ZoneHand},
		},
	}
}

func mustCanonical(t *testing.T, s *state.TCGGameState) []byte {
	t.Helper()
	b, err := s.CanonicalJSON()
	require.NoError(t, err)
	return b
}

func TestCreateAndApplyRoundTrip(t *testing.T) {
	oldState := baseState()
	newState := oldState.Clone()
	newState.Version = 11
	newState.Players[0].LifeTotal = 17
	newState.Players[0].Hand = []string{}
	newState.Battlefield.Permanents = []string{"c1"}
	newState.Cards["c1"].Zone = state.ZoneBattlefield
	newState.Cards["c1"].FaceUp = true
	newState.Cards["c1"].Tapped = true

	d, err := Create(oldState, newState)
	require.NoError(t, err)
	assert.NotEmpty(t, d)

	patched, err := Apply(oldState, d)
	require.NoError(t, err)
	assert.Equal(t, mustCanonical(t, newState), mustCanonical(t, patched))

	// The input state is never mutated.
	assert.Equal(t, 20, oldState.Players[0].LifeTotal)
	assert.Equal(t, state.ZoneHand, oldState.Cards["c1"].Zone)
}

func TestCreateIsDeterministic(t *testing.T) {
	oldState := baseState()
	newState := oldState.Clone()
	newState.Version = 11
	newState.Players[1].LifeTotal = 15
	newState.Cards["c2"] = &state.CardReference{ID: "c2", Name: "Bolt", OwnerID: "p2", Zone: state.ZoneHand}
	newState.Players[1].Hand = []string{"c2"}

	first, err := Create(oldState, newState)
	require.NoError(t, err)
	second, err := Create(oldState, newState)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestCreateIdenticalStatesYieldsEmptyDelta(t *testing.T) {
	s := baseState()
	d, err := Create(s, s.Clone())
	require.NoError(t, err)
	assert.Empty(t, d)

	patched, err := Apply(s, d)
	require.NoError(t, err)
	assert.Equal(t, mustCanonical(t, s), mustCanonical(t, patched))
}

func TestCreateHandlesCardRemoval(t *testing.T) {
	oldState := baseState()
	newState := oldState.Clone()
	// Card folded back into the count-only library.
	delete(newState.Cards, "c1")
	newState.Players[0].Hand = []string{}
	newState.Players[0].LibraryCount = 54

	d, err := Create(oldState, newState)
	require.NoError(t, err)

	patched, err := Apply(oldState, d)
	require.NoError(t, err)
	assert.Equal(t, mustCanonical(t, newState), mustCanonical(t, patched))
	assert.Nil(t, patched.Card("c1"))
}

func TestPointerEscaping(t *testing.T) {
	assert.Equal(t, "a~1b~0c", escapePointer("a/b~c"))
	assert.Equal(t, "a/b~c", unescapePointer("a~1b~0c"))

	oldState := baseState()
	newState := oldState.Clone()
	newState.Cards["odd/id~1"] = &state.CardReference{ID: "odd/id~1", OwnerID: "p1", Zone: state.ZoneExile}
	newState.Players[0].Exile = []string{"odd/id~1"}

	d, err := Create(oldState, newState)
	require.NoError(t, err)

	patched, err := Apply(oldState, d)
	require.NoError(t, err)
	assert.Equal(t, mustCanonical(t, newState), mustCanonical(t, patched))
}

func TestApplyFailsOnMissingPath(t *testing.T) {
	s := baseState()

	_, err := Apply(s, Delta{{Op: OpRemove, Path: "/cards/missing"}})
	var conflict *state.PatchConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "/cards/missing", conflict.Path)

	_, err = Apply(s, Delta{{Op: OpReplace, Path: "/players/5/lifeTotal", Value: 1}})
	assert.True(t, errors.As(err, &conflict))
}

func TestApplyFailsOnFailedTest(t *testing.T) {
	s := baseState()

	_, err := Apply(s, Delta{{Op: OpTest, Path: "/version", Value: float64(99)}})
	var conflict *state.PatchConflictError
	require.True(t, errors.As(err, &conflict))

	// A passing test is a no-op.
	patched, err := Apply(s, Delta{{Op: OpTest, Path: "/version", Value: float64(10)}})
	require.NoError(t, err)
	assert.Equal(t, mustCanonical(t, s), mustCanonical(t, patched))
}

func TestApplyFailsOnUnknownOp(t *testing.T) {
	s := baseState()
	_, err := Apply(s, Delta{{Op: "merge", Path: "/version", Value: 11}})
	var conflict *state.PatchConflictError
	assert.True(t, errors.As(err, &conflict))
}

func TestApplyMoveAndCopy(t *testing.T) {
	s := baseState()
	s.Players[1].LifeTotal = 5

	patched, err := Apply(s, Delta{
		{Op: OpCopy, From: "/players/0/lifeTotal", Path: "/players/1/lifeTotal"},
		{Op: OpMove, From: "/players/0/hand/0", Path: "/players/1/hand/-"},
	})
	require.NoError(t, err)
	assert.Equal(t, 20, patched.Players[1].LifeTotal)
	assert.Empty(t, patched.Players[0].Hand)
	assert.Equal(t, []string{"c1"}, patched.Players[1].Hand)
}

func TestMergeEquivalentToSequentialApply(t *testing.T) {
	s0 := baseState()

	s1 := s0.Clone()
	s1.Version = 11
	s1.Players[0].LifeTotal = 18

	s2 := s1.Clone()
	s2.Version = 12
	s2.Players[0].LifeTotal = 15
	s2.Players[1].Hand = []string{"c2"}
	s2.Cards["c2"] = &state.CardReference{ID: "c2", OwnerID: "p2", Zone: state.ZoneHand}

	d1, err := Create(s0, s1)
	require.NoError(t, err)
	d2, err := Create(s1, s2)
	require.NoError(t, err)

	merged := Merge([]Delta{d1, d2})
	patched, err := Apply(s0, merged)
	require.NoError(t, err)
	assert.Equal(t, mustCanonical(t, s2), mustCanonical(t, patched))
}

func TestMergeSquashesAdjacentReplaces(t *testing.T) {
	merged := Merge([]Delta{
		{{Op: OpReplace, Path: "/version", Value: 11}},
		{{Op: OpReplace, Path: "/version", Value: 12}},
	})
	require.Len(t, merged, 1)
	assert.Equal(t, 12, merged[0].Value)
}

func TestCompressionRatio(t *testing.T) {
	oldState := baseState()
	newState := oldState.Clone()
	newState.Version = 11
	newState.Players[0].LifeTotal = 19

	d, err := Create(oldState, newState)
	require.NoError(t, err)

	ratio, err := CompressionRatio(newState, d)
	require.NoError(t, err)
	assert.Greater(t, ratio, 0.5)
	assert.LessOrEqual(t, ratio, 1.0)

	// A delta carrying the whole state compresses poorly.
	tree, err := toTree(newState)
	require.NoError(t, err)
	ratio, err = CompressionRatio(newState, Delta{{Op: OpReplace, Path: "", Value: tree}})
	require.NoError(t, err)
	assert.Less(t, ratio, 0.0)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	oldState := baseState()
	newState := oldState.Clone()
	newState.Version = 11
	newState.Players[0].LifeTotal = 12

	d, err := Create(oldState, newState)
	require.NoError(t, err)

	wire, err := Encode(d)
	require.NoError(t, err)
	decoded, err := Decode(wire)
	require.NoError(t, err)

	patched, err := Apply(oldState, decoded)
	require.NoError(t, err)
	assert.Equal(t, mustCanonical(t, newState), mustCanonical(t, patched))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not zstd"))
	assert.Error(t, err)
}
