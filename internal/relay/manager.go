// Package relay owns the WebSocket link from the agent to the Leo bridge:
// it dials, redials with exponential backoff, and forwards outbound
// frames only while the link is open.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HiteshGorana/Leo/pkg/protocol"
)

// State of the bridge connection. There is one connection per process;
// transitions drive the visible ON/OFF status surface.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
)

// Handler consumes raw inbound frames while the connection is open.
type Handler func(ctx context.Context, data []byte)

// StateListener observes connection state transitions.
type StateListener func(State)

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second

	// maxFrameSize bounds inbound command frames (64KB). Commands are
	// small; anything larger is a framing error.
	maxFrameSize = 64 * 1024

	sendBuffer = 256
)

// wsConn is the slice of *websocket.Conn the manager uses. Tests
// substitute an in-memory implementation.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithBackoff sets the reconnect backoff parameters.
func WithBackoff(b *Backoff) Option {
	return func(m *Manager) { m.backoff = b }
}

// WithGreeting sets the hello text sent on each successful connect.
func WithGreeting(text string) Option {
	return func(m *Manager) { m.greeting = text }
}

// Manager owns the bridge connection for the life of the process.
type Manager struct {
	endpoint string
	handler  Handler
	logger   *slog.Logger
	backoff  *Backoff
	greeting string

	dial func(ctx context.Context) (wsConn, error)

	mu        sync.Mutex
	state     State
	send      chan []byte // nil unless open
	listeners []StateListener
}

// New creates a Manager dialing endpoint. Inbound frames go to handler.
func New(endpoint string, handler Handler, opts ...Option) *Manager {
	m := &Manager{
		endpoint: endpoint,
		handler:  handler,
		logger:   slog.Default(),
		backoff:  NewBackoff(DefaultFloor, DefaultCap),
		greeting: "Leo Link agent connected",
		state:    StateClosed,
	}
	m.dial = func(ctx context.Context) (wsConn, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetHandler installs the inbound frame handler. Callers that need the
// Manager as their sender set it after construction; it must be set
// before Run.
func (m *Manager) SetHandler(h Handler) {
	m.handler = h
}

// OnStateChange registers a listener for state transitions.
func (m *Manager) OnStateChange(l StateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run dials and re-dials the bridge until ctx is cancelled. Dial errors
// and connection closes take the same backoff path; neither is fatal.
func (m *Manager) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		m.setState(StateConnecting)
		conn, err := m.dial(ctx)
		if err != nil {
			m.setState(StateClosed)
			delay := m.backoff.Next()
			m.logger.Warn("bridge dial failed", "endpoint", m.endpoint, "retryIn", delay, "error", err)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		send := make(chan []byte, sendBuffer)
		m.mu.Lock()
		m.send = send
		m.mu.Unlock()
		m.setState(StateOpen)
		m.backoff.Reset()
		m.logger.Info("bridge connected", "endpoint", m.endpoint)

		go writePump(conn, send)
		m.Send(protocol.NewHello(m.greeting))

		m.readLoop(ctx, conn)

		// Detach the channel under mu before closing it. Send only
		// pushes while holding mu and re-reads m.send, so once nil is
		// visible no send on the closed channel can happen.
		m.mu.Lock()
		m.send = nil
		m.mu.Unlock()
		close(send)
		conn.Close()
		m.setState(StateClosed)

		delay := m.backoff.Next()
		m.logger.Info("bridge disconnected", "retryIn", delay)
		if !sleep(ctx, delay) {
			return
		}
	}
}

// Send forwards one outbound frame. It is a silent drop, not a queue,
// unless the connection is open; callers get no delivery guarantee. Safe
// to call from overlapping command executions: each frame is written
// whole by the single write pump.
func (m *Manager) Send(msg *protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("marshal outbound message failed", "error", err)
		return
	}

	// The push happens under mu so Run cannot detach and close the
	// channel between the state check and the send.
	m.mu.Lock()
	if m.state != StateOpen || m.send == nil {
		m.mu.Unlock()
		m.logger.Debug("link not open, dropping outbound message", "type", msg.Type)
		return
	}
	var dropped bool
	select {
	case m.send <- data:
	default:
		dropped = true
	}
	m.mu.Unlock()
	if dropped {
		m.logger.Warn("send buffer full, dropping message", "type", msg.Type)
	}
}

// readLoop reads frames until the connection fails or ctx is cancelled.
func (m *Manager) readLoop(ctx context.Context, conn wsConn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warn("bridge read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		if m.handler != nil {
			m.handler(ctx, data)
		}
	}
}

// writePump writes queued frames and keepalive pings until send closes or
// a write fails.
func writePump(conn wsConn, send <-chan []byte) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	listeners := make([]StateListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l(s)
	}
}

// sleep waits for d unless ctx ends first. Returns false when cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// Probe opens a short-lived connection to endpoint and closes it again,
// reporting whether the bridge is reachable. Used by the status surface.
func Probe(ctx context.Context, endpoint string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	return conn.Close()
}
