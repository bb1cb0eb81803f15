package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceTrackerKeepsHighestSeq(t *testing.T) {
	tr := NewSequenceTracker("room1")

	_, seen := tr.Last()
	assert.False(t, seen)

	tr.Observe(3)
	tr.Observe(7)
	tr.Observe(5) // stale, must not move the cursor back

	last, seen := tr.Last()
	assert.True(t, seen)
	assert.EqualValues(t, 7, last)
}

func TestSequenceTrackerIgnoresZero(t *testing.T) {
	tr := NewSequenceTracker("room1")
	tr.Observe(0)
	_, seen := tr.Last()
	assert.False(t, seen)
}

func TestResyncMessageUsesSeqWhenSeen(t *testing.T) {
	tr := NewSequenceTracker("room1")
	tr.Observe(42)

	msg := tr.ResyncMessage(time.Now())
	require.NotNil(t, msg.LastSeq)
	assert.EqualValues(t, 42, *msg.LastSeq)
	assert.Nil(t, msg.LastTimestamp)
}

func TestResyncMessageFallsBackToTimestamp(t *testing.T) {
	tr := NewSequenceTracker("room1")
	now := time.Unix(1724500000, 0)

	msg := tr.ResyncMessage(now)
	assert.Nil(t, msg.LastSeq)
	require.NotNil(t, msg.LastTimestamp)
	assert.EqualValues(t, now.UnixMilli(), *msg.LastTimestamp)
}

func TestResetClearsCursor(t *testing.T) {
	tr := NewSequenceTracker("room1")
	tr.Observe(9)
	tr.Reset("room2")

	_, seen := tr.Last()
	assert.False(t, seen)
}
