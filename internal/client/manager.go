package client

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/wordgrid/live/internal/protocol"
	"github.com/wordgrid/live/internal/state"
)

// Close codes the server uses to reject a session outright. No reconnect
// is attempted after these; the user has to act.
const (
	CloseUnauthorized = 4001
	CloseForbidden    = 4003
)

// ErrAttemptsExhausted is returned by Connect once the reconnect budget is
// spent. Reconnect clears it.
var ErrAttemptsExhausted = errors.New("reconnect attempts exhausted")

// Manager owns the single WebSocket for a session: it sequences
// connect/open/dispatch/close, drives the heartbeat monitor and the
// reconnect policy, and feeds decoded updates into the state reconciler.
// No other component writes to the socket.
type Manager struct {
	opts   Options
	policy ReconnectPolicy
	clock  clockwork.Clock
	rec    *state.Reconciler
	seq    *SequenceTracker
	dialer *websocket.Dialer

	mu          sync.Mutex
	st          ConnState
	conn        *websocket.Conn
	gen         int
	attempts    int
	manual      bool
	online      bool
	visible     bool
	hbStop      chan struct{}
	retryCancel chan struct{}

	writeMu sync.Mutex

	events chan protocol.InboundMessage
}

func NewManager(opts Options, rec *state.Reconciler) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		opts: opts,
		policy: ReconnectPolicy{
			Initial:     opts.InitialBackoff,
			Max:         opts.MaxBackoff,
			MaxAttempts: opts.MaxReconnectAttempts,
			JitterFrac:  0.2,
		},
		clock:   opts.Clock,
		rec:     rec,
		seq:     NewSequenceTracker(opts.RoomID),
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		st:      StateClosed,
		online:  true,
		visible: true,
		events:  make(chan protocol.InboundMessage, 64),
	}
}

// State returns the current connection state.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st
}

// Events carries the inbound messages that are not folded into GameState:
// chat, score-in-chat announcements, application errors, UI hints. Slow
// consumers lose messages rather than stalling the read loop.
func (m *Manager) Events() <-chan protocol.InboundMessage {
	return m.events
}

// Connect opens a fresh socket for the session, tearing down any previous
// one first. It is a no-op while the session is manually closed, offline,
// or hidden with PauseWhenHidden set.
func (m *Manager) Connect() error {
	m.mu.Lock()
	switch {
	case m.manual:
		m.mu.Unlock()
		log.Debug().Msg("connect suppressed: session closed by caller")
		return nil
	case !m.online:
		m.mu.Unlock()
		log.Debug().Msg("connect suppressed: offline")
		return nil
	case !m.visible && m.opts.PauseWhenHidden:
		m.mu.Unlock()
		log.Debug().Msg("connect suppressed: hidden")
		return nil
	}
	if m.policy.Exhausted(m.attempts) {
		m.setStateLocked(StateClosed)
		m.mu.Unlock()
		log.Warn().Int("attempts", m.opts.MaxReconnectAttempts).Msg("not connecting: attempts exhausted")
		return ErrAttemptsExhausted
	}

	m.teardownLocked()
	m.setStateLocked(StateConnecting)
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	wsURL, err := m.dialURL()
	if err != nil {
		m.mu.Lock()
		m.setStateLocked(StateClosed)
		m.mu.Unlock()
		return err
	}

	conn, _, err := m.dialer.Dial(wsURL, nil)

	m.mu.Lock()
	if gen != m.gen || m.manual {
		// Superseded while dialing; a newer socket owns the session.
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Str("url", m.opts.URL).Msg("dial failed")
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return err
	}

	m.conn = conn
	m.attempts = 0
	m.setStateLocked(StateOpen)
	var hbStop chan struct{}
	if m.opts.HeartbeatInterval > 0 {
		hbStop = make(chan struct{})
		m.hbStop = hbStop
	}
	m.mu.Unlock()

	log.Info().Str("room_id", m.opts.RoomID).Msg("connected")

	go m.readLoop(conn, gen)
	if hbStop != nil {
		hb := &heartbeatMonitor{
			clock:    m.clock,
			interval: m.opts.HeartbeatInterval,
			state:    m.State,
			sendPing: func() error {
				return m.writeMessage(conn, protocol.Ping{})
			},
			forceClose: func(reason string) {
				m.forceClose(gen, reason)
			},
		}
		go hb.run(hbStop)
	}

	// State recovery: join the room, then ask for everything missed since
	// the last seen sequence number.
	if err := m.writeMessage(conn, protocol.JoinRoom{RoomID: m.opts.RoomID}); err != nil {
		log.Warn().Err(err).Msg("join after open failed")
	} else if err := m.writeMessage(conn, m.seq.ResyncMessage(m.clock.Now())); err != nil {
		log.Warn().Err(err).Msg("resync after open failed")
	}
	return nil
}

// Close shuts the session down and disables reconnection until Reconnect
// is called. All timers are cleared before it returns.
func (m *Manager) Close() {
	m.mu.Lock()
	m.manual = true
	m.cancelRetryLocked()
	m.stopHeartbeatLocked()
	conn := m.conn
	m.conn = nil
	if conn != nil {
		m.setStateLocked(StateClosing)
		m.gen++
	}
	m.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(m.opts.WriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
	}

	m.mu.Lock()
	m.setStateLocked(StateClosed)
	m.mu.Unlock()
	log.Info().Msg("session closed")
}

// Reconnect clears the manual-close flag and the attempt counter, then
// forces a fresh connection attempt.
func (m *Manager) Reconnect() error {
	m.mu.Lock()
	m.manual = false
	m.attempts = 0
	m.mu.Unlock()
	return m.Connect()
}

// Send encodes and writes a message on the open socket. Messages sent
// while the socket is not open are dropped with a warning: callers race
// the connection state and that is not an error.
func (m *Manager) Send(msg protocol.OutboundMessage) error {
	m.mu.Lock()
	conn, st := m.conn, m.st
	m.mu.Unlock()

	if st != StateOpen || conn == nil {
		log.Warn().
			Str("state", st.String()).
			Str("message", fmt.Sprintf("%T", msg)).
			Msg("dropping outbound message, socket not open")
		return nil
	}
	return m.writeMessage(conn, msg)
}

// SwitchRoom moves the session to another room, discarding the previous
// room's state and sequence cursor.
func (m *Manager) SwitchRoom(roomID string) error {
	m.mu.Lock()
	old := m.opts.RoomID
	m.opts.RoomID = roomID
	conn, st := m.conn, m.st
	m.mu.Unlock()

	m.seq.Reset(roomID)
	m.rec.Reset()

	if st != StateOpen || conn == nil {
		return nil
	}
	if old != "" {
		if err := m.writeMessage(conn, protocol.LeaveRoom{RoomID: old}); err != nil {
			return err
		}
	}
	if err := m.writeMessage(conn, protocol.JoinRoom{RoomID: roomID}); err != nil {
		return err
	}
	return m.writeMessage(conn, m.seq.ResyncMessage(m.clock.Now()))
}

// SetOnline reflects the host environment's network reachability. Going
// offline closes any open socket immediately and suppresses reconnects;
// coming back online resets the attempt counter and reconnects.
func (m *Manager) SetOnline(online bool) {
	m.mu.Lock()
	m.online = online
	if !online {
		m.cancelRetryLocked()
		m.stopHeartbeatLocked()
		conn := m.conn
		m.conn = nil
		if conn != nil {
			m.gen++
		}
		m.setStateLocked(StateClosed)
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		log.Info().Msg("offline, connection closed")
		return
	}
	m.attempts = 0
	manual, st := m.manual, m.st
	m.mu.Unlock()

	if !manual && st == StateClosed {
		go m.Connect()
	}
}

// SetVisible reflects the embedding UI's visibility. Hiding cancels a
// pending reconnect without touching an open socket; becoming visible
// retries immediately if the session went closed in the meantime.
func (m *Manager) SetVisible(visible bool) {
	m.mu.Lock()
	m.visible = visible
	if !visible {
		if m.retryCancel != nil {
			m.cancelRetryLocked()
			m.setStateLocked(StateClosed)
		}
		m.mu.Unlock()
		return
	}
	manual, online, st := m.manual, m.online, m.st
	m.mu.Unlock()

	if !manual && online && st == StateClosed {
		go m.Connect()
	}
}

func (m *Manager) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleSocketClosed(gen, err)
			return
		}
		m.handleFrame(data)
	}
}

func (m *Manager) handleFrame(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		// One bad frame never takes the connection down.
		log.Warn().Err(err).Msg("dropping frame")
		return
	}

	switch v := msg.(type) {
	case protocol.StateSnapshot:
		m.seq.Observe(v.Seq)
		m.rec.ApplySnapshot(v.State)
	case protocol.DeltaUpdate:
		m.seq.Observe(v.Seq)
		m.rec.ApplyDelta(v.Delta)
	case protocol.ScoreUpdate:
		m.seq.Observe(v.Seq)
		m.rec.ApplyScoreUpdate(v.Scores)
	case protocol.FinalScores:
		m.seq.Observe(v.Seq)
		m.rec.ApplyFinalScores(v)
	case protocol.Pong:
		// Liveness is judged on the write side; nothing to record.
	case protocol.ChatMessage:
		m.seq.Observe(v.Seq)
		m.deliver(msg)
	default:
		m.deliver(msg)
	}
}

func (m *Manager) deliver(msg protocol.InboundMessage) {
	select {
	case m.events <- msg:
	default:
		log.Warn().Str("message", fmt.Sprintf("%T", msg)).Msg("event buffer full, dropping message")
	}
}

func (m *Manager) handleSocketClosed(gen int, err error) {
	m.mu.Lock()
	if gen != m.gen {
		// A stale socket's read loop unwinding after teardown.
		m.mu.Unlock()
		return
	}
	m.stopHeartbeatLocked()
	m.conn = nil

	if m.manual {
		m.setStateLocked(StateClosed)
		m.mu.Unlock()
		return
	}

	var ce *websocket.CloseError
	if errors.As(err, &ce) && (ce.Code == CloseUnauthorized || ce.Code == CloseForbidden) {
		log.Warn().Int("code", ce.Code).Str("reason", ce.Text).Msg("server rejected session, not reconnecting")
		m.setStateLocked(StateClosed)
		m.mu.Unlock()
		return
	}

	log.Warn().Err(err).Msg("connection lost")
	m.scheduleReconnectLocked()
	m.mu.Unlock()
}

func (m *Manager) scheduleReconnectLocked() {
	if m.manual || !m.online || (!m.visible && m.opts.PauseWhenHidden) {
		m.setStateLocked(StateClosed)
		return
	}
	if m.policy.Exhausted(m.attempts) {
		log.Warn().Int("attempts", m.attempts).Msg("reconnect attempts exhausted, giving up")
		m.setStateLocked(StateClosed)
		return
	}

	delay := m.policy.Delay(m.attempts)
	m.attempts++
	m.setStateLocked(StateReconnecting)
	m.cancelRetryLocked()

	timer := m.clock.NewTimer(delay)
	cancel := make(chan struct{})
	m.retryCancel = cancel
	log.Info().Dur("delay", delay).Int("attempt", m.attempts).Msg("reconnect scheduled")

	go func() {
		select {
		case <-timer.Chan():
			m.Connect()
		case <-cancel:
			stopAndDrainTimer(timer)
		}
	}()
}

// forceClose tears down the current socket from outside the read loop,
// e.g. on heartbeat failure. The read loop then unblocks with an error and
// runs the normal abnormal-close path.
func (m *Manager) forceClose(gen int, reason string) {
	m.mu.Lock()
	if gen != m.gen || m.conn == nil {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.mu.Unlock()

	log.Warn().Str("reason", reason).Msg("force closing connection")
	conn.Close()
}

func (m *Manager) writeMessage(conn *websocket.Conn, msg protocol.OutboundMessage) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(m.opts.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (m *Manager) teardownLocked() {
	m.cancelRetryLocked()
	m.stopHeartbeatLocked()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}

func (m *Manager) stopHeartbeatLocked() {
	if m.hbStop != nil {
		close(m.hbStop)
		m.hbStop = nil
	}
}

func (m *Manager) cancelRetryLocked() {
	if m.retryCancel != nil {
		close(m.retryCancel)
		m.retryCancel = nil
	}
}

func (m *Manager) setStateLocked(st ConnState) {
	if m.st == st {
		return
	}
	log.Debug().Str("from", m.st.String()).Str("to", st.String()).Msg("connection state change")
	m.st = st
}

func (m *Manager) dialURL() (string, error) {
	u, err := url.Parse(m.opts.URL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	q := u.Query()
	q.Set("token", m.opts.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// stopAndDrainTimer stops a timer and drains its channel so the waiting
// goroutine cannot leak a stale fire.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
