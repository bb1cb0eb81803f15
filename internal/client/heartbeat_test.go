package client

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatSendsPingEveryIntervalWhileOpen(t *testing.T) {
	clk := clockwork.NewFakeClock()
	var pings atomic.Int32
	h := &heartbeatMonitor{
		clock:    clk,
		interval: time.Second,
		state:    func() ConnState { return StateOpen },
		sendPing: func() error { pings.Add(1); return nil },
		forceClose: func(reason string) {
			t.Errorf("unexpected force close: %s", reason)
		},
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		h.run(stop)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		clk.BlockUntil(1)
		clk.Advance(time.Second)
	}

	require.Eventually(t, func() bool { return pings.Load() >= 4 },
		2*time.Second, 10*time.Millisecond,
		"5s of heartbeat at 1s interval must produce at least 4 pings")

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestHeartbeatSendFailureForcesClose(t *testing.T) {
	clk := clockwork.NewFakeClock()
	closed := make(chan string, 1)
	h := &heartbeatMonitor{
		clock:      clk,
		interval:   time.Second,
		state:      func() ConnState { return StateOpen },
		sendPing:   func() error { return errors.New("broken pipe") },
		forceClose: func(reason string) { closed <- reason },
	}

	stop := make(chan struct{})
	defer close(stop)
	go h.run(stop)

	clk.BlockUntil(1)
	clk.Advance(time.Second)

	select {
	case reason := <-closed:
		assert.Equal(t, "heartbeat send failed", reason)
	case <-time.After(time.Second):
		t.Fatal("expected force close after failed send")
	}
}

func TestHeartbeatStopsOnceConnectionClosed(t *testing.T) {
	clk := clockwork.NewFakeClock()
	h := &heartbeatMonitor{
		clock:    clk,
		interval: time.Second,
		state:    func() ConnState { return StateClosed },
		sendPing: func() error {
			t.Error("must not ping a closed connection")
			return nil
		},
		forceClose: func(reason string) {
			t.Errorf("unexpected force close: %s", reason)
		},
	}

	stop := make(chan struct{})
	defer close(stop)
	done := make(chan struct{})
	go func() {
		h.run(stop)
		close(done)
	}()

	clk.BlockUntil(1)
	clk.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on closed connection")
	}
}

func TestHeartbeatTimesOutWhenNotOpenForTooLong(t *testing.T) {
	clk := clockwork.NewFakeClock()
	closed := make(chan string, 1)
	h := &heartbeatMonitor{
		clock:      clk,
		interval:   time.Second,
		state:      func() ConnState { return StateReconnecting },
		sendPing:   func() error { return nil },
		forceClose: func(reason string) { closed <- reason },
	}

	stop := make(chan struct{})
	defer close(stop)
	go h.run(stop)

	// Two intervals of silence are tolerated; the third is a timeout.
	for i := 0; i < 3; i++ {
		select {
		case reason := <-closed:
			require.Equal(t, 2, i, "timed out too early: %s", reason)
			return
		default:
		}
		clk.BlockUntil(1)
		clk.Advance(time.Second)
	}

	select {
	case reason := <-closed:
		assert.Equal(t, "heartbeat timeout", reason)
	case <-time.After(time.Second):
		t.Fatal("expected heartbeat timeout")
	}
}
