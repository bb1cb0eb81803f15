package client

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Options configures a session Manager. Start from DefaultOptions; a
// HeartbeatInterval of 0 disables the heartbeat monitor entirely.
type Options struct {
	// URL is the WebSocket endpoint, e.g. wss://play.example.com/ws.
	URL string

	// Token is appended to the URL as a query parameter. Empty for guest
	// sessions.
	Token string

	// RoomID is joined immediately after every successful open.
	RoomID string

	MaxReconnectAttempts int
	InitialBackoff       time.Duration
	MaxBackoff           time.Duration
	HeartbeatInterval    time.Duration
	WriteTimeout         time.Duration

	// PauseWhenHidden suppresses scheduled reconnects while the embedding
	// UI reports itself hidden.
	PauseWhenHidden bool

	// Clock drives every timer in the session. Tests inject a fake.
	Clock clockwork.Clock
}

func DefaultOptions() Options {
	return Options{
		MaxReconnectAttempts: 10,
		InitialBackoff:       time.Second,
		MaxBackoff:           30 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		WriteTimeout:         10 * time.Second,
		PauseWhenHidden:      true,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = 10
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}
