package client

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// heartbeatMonitor probes an open connection at a fixed interval so that a
// silently-dead socket gets torn down instead of lingering until the next
// write. It only requires the transport to stay writable; the peer is not
// expected to answer each ping.
type heartbeatMonitor struct {
	clock    clockwork.Clock
	interval time.Duration

	state      func() ConnState
	sendPing   func() error
	forceClose func(reason string)
}

// run ticks until the stop channel closes or the connection dies. Each
// tick: send a ping on an open socket, stop once the socket is closing or
// closed, and otherwise declare a timeout when no ping has gone out for
// twice the interval.
func (h *heartbeatMonitor) run(stop <-chan struct{}) {
	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()

	lastSent := h.clock.Now()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			switch h.state() {
			case StateOpen:
				if err := h.sendPing(); err != nil {
					log.Warn().Err(err).Msg("heartbeat send failed, closing connection")
					h.forceClose("heartbeat send failed")
					return
				}
				lastSent = h.clock.Now()
			case StateClosing, StateClosed:
				return
			default:
				if h.clock.Since(lastSent) > 2*h.interval {
					log.Warn().
						Dur("since_last_ping", h.clock.Since(lastSent)).
						Msg("heartbeat timeout, closing connection")
					h.forceClose("heartbeat timeout")
					return
				}
			}
		}
	}
}
