package client

import (
	"sync"
	"time"

	"github.com/wordgrid/live/internal/protocol"
)

// SequenceTracker remembers the highest sequence number seen for the
// active room. After a reconnect the client asks the server to resend
// everything past that point; before the first update it falls back to a
// wall-clock timestamp.
type SequenceTracker struct {
	mu     sync.Mutex
	roomID string
	last   int64
	seen   bool
}

func NewSequenceTracker(roomID string) *SequenceTracker {
	return &SequenceTracker{roomID: roomID}
}

// Observe records a server-assigned sequence number. Zero means the frame
// carried none. Out-of-order values never move the cursor backwards.
func (t *SequenceTracker) Observe(seq int64) {
	if seq == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seen || seq > t.last {
		t.last = seq
		t.seen = true
	}
}

// Last returns the highest observed sequence number, if any.
func (t *SequenceTracker) Last() (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.seen
}

// Reset clears tracking when the session moves to a different room.
func (t *SequenceTracker) Reset(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roomID = roomID
	t.last = 0
	t.seen = false
}

// ResyncMessage builds the resync request sent right after a (re)connect.
func (t *SequenceTracker) ResyncMessage(now time.Time) protocol.Resync {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seen {
		seq := t.last
		return protocol.Resync{LastSeq: &seq}
	}
	ts := now.UnixMilli()
	return protocol.Resync{LastTimestamp: &ts}
}
