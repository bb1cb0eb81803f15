package client

import (
	"math/rand"
	"time"
)

// Reconnect delays never drop below this, jitter included.
const minBackoff = 250 * time.Millisecond

// ReconnectPolicy computes the delay before reconnect attempt n as
// initial*2^n, capped at Max, with +/-JitterFrac spread so that a fleet of
// clients does not stampede a recovering server.
type ReconnectPolicy struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int
	JitterFrac  float64
}

// Exhausted reports whether the attempt budget is spent. Reconnection is
// then abandoned until an explicit Reconnect call.
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}

// Delay returns the backoff delay for the given attempt count.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	d := p.Initial
	for i := 0; i < attempt && d < p.Max; i++ {
		d *= 2
	}
	if d > p.Max {
		d = p.Max
	}
	if p.JitterFrac > 0 {
		spread := 1 - p.JitterFrac + 2*p.JitterFrac*rand.Float64()
		d = time.Duration(float64(d) * spread)
	}
	if d > p.Max {
		d = p.Max
	}
	if d < minBackoff {
		d = minBackoff
	}
	return d
}
