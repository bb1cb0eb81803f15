package client

// ConnState is the connection lifecycle phase for a session. Exactly one
// value holds at a time.
type ConnState int

const (
	StateClosed ConnState = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateClosing
)

func (s ConnState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}
