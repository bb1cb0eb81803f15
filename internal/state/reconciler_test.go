package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordgrid/live/internal/protocol"
)

func statusPtr(s protocol.GameStatus) *protocol.GameStatus { return &s }
func intPtr(n int) *int                                    { return &n }
func strPtr(s string) *string                              { return &s }

func finishedState() protocol.GameState {
	tp := 200
	return protocol.GameState{
		RoomID:     "r1",
		GameStatus: protocol.StatusFinished,
		Players: []protocol.Player{
			{ID: "A", Name: "ana", Score: 10},
			{ID: "B", Name: "bo", Score: 20},
		},
		FinalScores: map[string]protocol.FinalScore{
			"A": {Score: 10},
		},
		TotalPoints: &tp,
		WordsByLength: &protocol.WordsByLength{
			Format: protocol.WordsFormatFinal,
			Final:  map[int]map[string]protocol.WordData{3: {"CAT": {Score: 3}}},
		},
	}
}

func TestApplySnapshotReplacesWholesale(t *testing.T) {
	r := NewReconciler()
	r.ApplySnapshot(finishedState())
	r.ApplySnapshot(protocol.GameState{RoomID: "r2", GameStatus: protocol.StatusWaiting})

	st := r.Snapshot()
	assert.Equal(t, "r2", st.RoomID)
	assert.Nil(t, st.FinalScores, "snapshot replaces, it does not merge")
	assert.Empty(t, st.Players)
}

func TestApplyEmptyDeltaIsIdempotent(t *testing.T) {
	r := NewReconciler()
	r.ApplySnapshot(finishedState())
	before := r.Snapshot()

	r.ApplyDelta(protocol.GameDelta{})

	assert.Equal(t, before, r.Snapshot())
}

func TestTimerDeltaPreservesFinalScores(t *testing.T) {
	r := NewReconciler()
	r.ApplySnapshot(finishedState())

	r.ApplyDelta(protocol.GameDelta{TimeRemaining: intPtr(5)})

	st := r.Snapshot()
	require.NotNil(t, st.TimeRemaining)
	assert.Equal(t, 5, *st.TimeRemaining)
	require.Contains(t, st.FinalScores, "A")
	assert.Equal(t, 10, st.FinalScores["A"].Score)
	require.NotNil(t, st.TotalPoints)
	assert.Equal(t, 200, *st.TotalPoints)
	require.NotNil(t, st.WordsByLength)
	assert.True(t, st.WordsByLength.IsFinal())
}

func TestStatusPlayingClearsRoundResults(t *testing.T) {
	r := NewReconciler()
	r.ApplySnapshot(finishedState())

	r.ApplyDelta(protocol.GameDelta{GameStatus: statusPtr(protocol.StatusPlaying)})

	st := r.Snapshot()
	assert.Equal(t, protocol.StatusPlaying, st.GameStatus)
	assert.Nil(t, st.FinalScores)
	assert.Nil(t, st.TotalPoints)
	assert.Nil(t, st.WordsByLength)
}

func TestDeltaOmittingBoardKeepsBoard(t *testing.T) {
	board := protocol.Board{{"C", "A", "T", "S"}, {"D", "O", "G", "S"}, {"B", "I", "R", "D"}, {"F", "I", "S", "H"}}
	r := NewReconciler()
	r.ApplySnapshot(protocol.GameState{GameStatus: protocol.StatusPlaying, Board: board})

	r.ApplyDelta(protocol.GameDelta{TimeRemaining: intPtr(30)})

	assert.Equal(t, board, r.Snapshot().Board)
}

func TestIncomingBoardAlwaysWins(t *testing.T) {
	oldBoard := protocol.Board{{"A"}}
	newBoard := protocol.Board{{"Z"}}
	r := NewReconciler()
	r.ApplySnapshot(protocol.GameState{GameStatus: protocol.StatusPlaying, Board: oldBoard})

	r.ApplyDelta(protocol.GameDelta{Board: newBoard})

	assert.Equal(t, newBoard, r.Snapshot().Board)
}

func TestFinalWordsSurviveSimpleReplacement(t *testing.T) {
	r := NewReconciler()
	r.ApplySnapshot(finishedState())

	// A stale in-play word list must not downgrade the detailed results.
	r.ApplyDelta(protocol.GameDelta{
		WordsByLength: &protocol.WordsByLength{
			Format: protocol.WordsFormatSimple,
			Simple: map[int][]string{3: {"CAT"}},
		},
	})

	st := r.Snapshot()
	require.NotNil(t, st.WordsByLength)
	assert.True(t, st.WordsByLength.IsFinal())
	assert.Equal(t, 3, st.WordsByLength.Final[3]["CAT"].Score)
}

func TestNewRoundAcceptsFreshSimpleWords(t *testing.T) {
	r := NewReconciler()
	r.ApplySnapshot(finishedState())

	fresh := &protocol.WordsByLength{
		Format: protocol.WordsFormatSimple,
		Simple: map[int][]string{4: {"BIRD"}},
	}
	r.ApplyDelta(protocol.GameDelta{
		GameStatus:    statusPtr(protocol.StatusPlaying),
		WordsByLength: fresh,
	})
	// Results cleared on round start; the next delta's word list sticks.
	r.ApplyDelta(protocol.GameDelta{WordsByLength: fresh})

	st := r.Snapshot()
	require.NotNil(t, st.WordsByLength)
	assert.False(t, st.WordsByLength.IsFinal())
	assert.Equal(t, []string{"BIRD"}, st.WordsByLength.Simple[4])
}

func TestBoardArrivingWhileWaitingPublishesPreviousBoard(t *testing.T) {
	board := protocol.Board{{"C", "A", "T", "S"}}
	r := NewReconciler()
	r.ApplySnapshot(protocol.GameState{RoomID: "r1", GameStatus: protocol.StatusWaiting})
	require.Nil(t, r.PreviousBoard())

	r.ApplyDelta(protocol.GameDelta{Board: board})

	assert.Equal(t, board, r.PreviousBoard())
}

func TestBoardArrivingWhilePlayingDoesNotTouchPreviousBoard(t *testing.T) {
	r := NewReconciler()
	r.ApplySnapshot(protocol.GameState{GameStatus: protocol.StatusPlaying})

	r.ApplyDelta(protocol.GameDelta{Board: protocol.Board{{"A"}}})

	assert.Nil(t, r.PreviousBoard())
}

func TestApplyScoreUpdateTouchesOnlyTargetPlayer(t *testing.T) {
	r := NewReconciler()
	r.ApplySnapshot(finishedState())

	r.ApplyScoreUpdate(map[string]int{"B": 99})

	st := r.Snapshot()
	assert.Equal(t, 10, st.Players[0].Score)
	assert.Equal(t, 99, st.Players[1].Score)
}

func TestApplyScoreUpdateUnknownPlayerIsNoop(t *testing.T) {
	r := NewReconciler()
	r.ApplySnapshot(finishedState())
	before := r.Snapshot()

	r.ApplyScoreUpdate(map[string]int{"nobody": 1})

	assert.Equal(t, before.Players, r.Snapshot().Players)
}

func TestApplyFinalScoresIsAtomic(t *testing.T) {
	r := NewReconciler()
	r.ApplySnapshot(protocol.GameState{GameStatus: protocol.StatusPlaying})

	updates, unsub := r.Subscribe()
	defer unsub()

	tp := 300
	r.ApplyFinalScores(protocol.FinalScores{
		FinalScores: map[string]protocol.FinalScore{"A": {Score: 42}},
		TotalPoints: &tp,
		WordsByLength: &protocol.WordsByLength{
			Format: protocol.WordsFormatFinal,
			Final:  map[int]map[string]protocol.WordData{5: {"SNARK": {Score: 25}}},
		},
	})

	// A single notification carries status and scores together.
	st := <-updates
	assert.Equal(t, protocol.StatusFinished, st.GameStatus)
	require.Contains(t, st.FinalScores, "A")
	assert.Equal(t, 42, st.FinalScores["A"].Score)
	require.NotNil(t, st.TotalPoints)
	assert.Equal(t, 300, *st.TotalPoints)

	select {
	case extra := <-updates:
		t.Fatalf("expected one notification, got a second: %+v", extra)
	default:
	}
}

func TestResetDiscardsSession(t *testing.T) {
	r := NewReconciler()
	r.ApplySnapshot(finishedState())
	r.ApplyDelta(protocol.GameDelta{GameStatus: statusPtr(protocol.StatusWaiting), Board: protocol.Board{{"A"}}})
	require.NotNil(t, r.PreviousBoard())

	r.Reset()

	assert.Equal(t, protocol.GameState{}, r.Snapshot())
	assert.Nil(t, r.PreviousBoard())
}

func TestSubscribeDeliversAndUnsubscribes(t *testing.T) {
	r := NewReconciler()
	updates, unsub := r.Subscribe()

	r.ApplyDelta(protocol.GameDelta{RoomID: strPtr("r9")})
	st := <-updates
	assert.Equal(t, "r9", st.RoomID)

	unsub()
	_, open := <-updates
	assert.False(t, open, "channel should close on unsubscribe")
}
