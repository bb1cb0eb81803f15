// Package wstest provides a scripted WebSocket server for exercising the
// client connection layer in tests: it records every frame the client
// sends, lets tests push arbitrary frames back, and can drop or reject
// connections on demand.
package wstest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Server struct {
	httpSrv  *httptest.Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	current *websocket.Conn
	tokens  []string
	frames  [][]byte

	frameCh chan []byte
	connCh  chan struct{}
}

func NewServer() *Server {
	s := &Server{
		frameCh: make(chan []byte, 64),
		connCh:  make(chan struct{}, 8),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.httpSrv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL is the ws:// endpoint clients dial.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.httpSrv.URL, "http")
}

func (s *Server) Close() {
	s.mu.Lock()
	if s.current != nil {
		s.current.Close()
		s.current = nil
	}
	s.mu.Unlock()
	s.httpSrv.Close()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.current != nil {
		s.current.Close()
	}
	s.current = conn
	s.tokens = append(s.tokens, r.URL.Query().Get("token"))
	s.mu.Unlock()

	select {
	case s.connCh <- struct{}{}:
	default:
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.frames = append(s.frames, data)
		s.mu.Unlock()
		select {
		case s.frameCh <- data:
		default:
		}
	}
}

// Push writes a frame to the currently connected client.
func (s *Server) Push(data []byte) error {
	s.mu.Lock()
	conn := s.current
	s.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Drop severs the current connection without a close handshake, which the
// client observes as an abnormal close.
func (s *Server) Drop() {
	s.mu.Lock()
	conn := s.current
	s.current = nil
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Reject performs a proper close handshake with the given close code, e.g.
// an authentication rejection.
func (s *Server) Reject(code int, reason string) {
	s.mu.Lock()
	conn := s.current
	s.current = nil
	s.mu.Unlock()
	if conn == nil {
		return
	}
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}

// WaitConn blocks until a client connects, or the timeout elapses.
func (s *Server) WaitConn(timeout time.Duration) bool {
	select {
	case <-s.connCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// NextFrame blocks until the client sends a frame, or the timeout elapses.
func (s *Server) NextFrame(timeout time.Duration) ([]byte, bool) {
	select {
	case data := <-s.frameCh:
		return data, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Frames returns a copy of every frame received so far, across all
// connections in order.
func (s *Server) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

// Tokens returns the token query parameter of each connection in order.
func (s *Server) Tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}
