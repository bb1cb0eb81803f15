package state

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wordgrid/live/internal/protocol"
)

// Reconciler owns the canonical GameState for a session and folds inbound
// updates into it. Apply* methods are called from the connection's read
// loop; Snapshot and Subscribe are safe from any goroutine.
type Reconciler struct {
	mu        sync.RWMutex
	st        protocol.GameState
	prevBoard protocol.Board

	subMu   sync.Mutex
	subs    map[int]chan protocol.GameState
	nextSub int
}

func NewReconciler() *Reconciler {
	return &Reconciler{subs: make(map[int]chan protocol.GameState)}
}

// Snapshot returns a read copy of the current state. Callers must not
// mutate the maps or slices it carries.
func (r *Reconciler) Snapshot() protocol.GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st
}

// PreviousBoard is the board of the last completed round, shown faded
// between rounds. Nil until a board has carried over into a waiting state.
func (r *Reconciler) PreviousBoard() protocol.Board {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prevBoard
}

// Subscribe registers for state updates. Slow subscribers miss
// intermediate states rather than blocking the read loop; the latest state
// is always available via Snapshot. The returned func unsubscribes.
func (r *Reconciler) Subscribe() (<-chan protocol.GameState, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan protocol.GameState, 8)
	r.subs[id] = ch

	return ch, func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		if _, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(ch)
		}
	}
}

func (r *Reconciler) notify(st protocol.GameState) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for id, ch := range r.subs {
		select {
		case ch <- st:
		default:
			log.Debug().Int("subscriber", id).Msg("subscriber slow, dropping state update")
		}
	}
}

// ApplySnapshot replaces the canonical state wholesale. This is the only
// operation that replaces rather than merges.
func (r *Reconciler) ApplySnapshot(st protocol.GameState) {
	r.mu.Lock()
	r.st = st
	next := r.st
	r.mu.Unlock()
	r.notify(next)
}

// ApplyDelta shallow-merges a partial update onto the current state.
// Absent fields mean "unchanged". The merge preserves round results so
// that, for example, final scores survive a delta that only moves the
// timer, and clears them when a delta flips the status to playing (a new
// round has begun).
func (r *Reconciler) ApplyDelta(d protocol.GameDelta) {
	r.mu.Lock()
	prior := r.st
	cur := prior

	if d.RoomID != nil {
		cur.RoomID = *d.RoomID
	}
	if d.Players != nil {
		cur.Players = d.Players
	}
	if d.CurrentPlayerID != nil {
		cur.CurrentPlayerID = *d.CurrentPlayerID
	}
	if d.GameStatus != nil {
		cur.GameStatus = *d.GameStatus
	}
	if d.GameRoundID != nil {
		cur.GameRoundID = *d.GameRoundID
	}
	if d.CurrentRound != nil {
		cur.CurrentRound = *d.CurrentRound
	}
	if d.TimeRemaining != nil {
		cur.TimeRemaining = d.TimeRemaining
	}
	if d.InitialTimer != nil {
		cur.InitialTimer = d.InitialTimer
	}
	if d.Board != nil {
		// An incoming board always wins: late joiners receive the board
		// mid-round and must not have it vetoed by stale local state.
		cur.Board = d.Board
	}
	if d.BoardWords != nil {
		cur.BoardWords = d.BoardWords
	}
	if d.FinalScores != nil {
		cur.FinalScores = d.FinalScores
	}
	if d.TotalPoints != nil {
		cur.TotalPoints = d.TotalPoints
	}
	if d.WordsByLength != nil {
		cur.WordsByLength = d.WordsByLength
	}
	if d.Boojum != nil {
		cur.Boojum = *d.Boojum
	}
	if d.Snark != nil {
		cur.Snark = *d.Snark
	}
	if d.BoojumBonus != nil {
		cur.BoojumBonus = d.BoojumBonus
	}
	if d.OneShot != nil {
		cur.OneShot = *d.OneShot
	}

	switch {
	case cur.GameStatus == protocol.StatusPlaying && prior.FinalScores != nil:
		// New round: results from the previous round are gone.
		cur.FinalScores = nil
		cur.TotalPoints = nil
		cur.WordsByLength = nil

	case cur.GameStatus == protocol.StatusFinished || cur.GameStatus == protocol.StatusWaiting:
		// Between rounds the detailed word list must survive deltas that
		// carry the in-play shape or nothing at all.
		if prior.WordsByLength.IsFinal() {
			cur.WordsByLength = prior.WordsByLength
		}
	}

	if prior.Board == nil && cur.Board != nil && cur.GameStatus == protocol.StatusWaiting {
		r.prevBoard = cur.Board
	}

	r.st = cur
	next := r.st
	r.mu.Unlock()
	r.notify(next)
}

// ApplyScoreUpdate updates the scores of the listed players in place,
// leaving every other player untouched.
func (r *Reconciler) ApplyScoreUpdate(scores map[string]int) {
	r.mu.Lock()
	if len(r.st.Players) == 0 || len(scores) == 0 {
		r.mu.Unlock()
		return
	}

	players := make([]protocol.Player, len(r.st.Players))
	copy(players, r.st.Players)
	for i := range players {
		if score, ok := scores[players[i].ID]; ok {
			players[i].Score = score
		}
	}
	r.st.Players = players
	next := r.st
	r.mu.Unlock()
	r.notify(next)
}

// ApplyFinalScores records the end-of-round results as one merge, so no
// observer can see a finished status without its final scores.
func (r *Reconciler) ApplyFinalScores(msg protocol.FinalScores) {
	r.mu.Lock()
	r.st.GameStatus = protocol.StatusFinished
	r.st.FinalScores = msg.FinalScores
	if msg.TotalPoints != nil {
		r.st.TotalPoints = msg.TotalPoints
	}
	if msg.WordsByLength != nil {
		r.st.WordsByLength = msg.WordsByLength
	}
	next := r.st
	r.mu.Unlock()
	r.notify(next)
}

// Reset discards the session's state, e.g. when the consumer navigates to
// a different room.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.st = protocol.GameState{}
	r.prevBoard = nil
	next := r.st
	r.mu.Unlock()
	r.notify(next)
}
