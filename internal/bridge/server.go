// Package bridge is the command side of the link: it accepts the relay
// agent's WebSocket connection, forwards commands to it, and persists
// screenshot and moment results to disk.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/HiteshGorana/Leo/pkg/protocol"
)

const (
	writeTimeout     = 10 * time.Second
	readTimeout      = 60 * time.Second
	pingInterval     = 30 * time.Second
	maxWSMessageSize = 512 * 1024
	sendBuffer       = 256
)

const searchURLFormat = "https://www.google.com/search?q=%s"

// ResultHandler observes every frame the agent sends.
type ResultHandler func(msg *AgentMessage, raw []byte)

// AgentMessage is a decoded inbound frame. Data stays raw because its
// shape depends on the action.
type AgentMessage struct {
	Type    string          `json:"type"`
	Action  protocol.Action `json:"action"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Server accepts one agent connection at a time and relays commands to it.
type Server struct {
	addr    string
	limiter *RateLimiter
	store   *MomentStore
	logger  *slog.Logger
	handler ResultHandler

	upgrader websocket.Upgrader
	srv      *http.Server
	ln       net.Listener

	mu    sync.Mutex
	agent *agentConn
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMomentStore sets where screenshot and moment results are persisted.
func WithMomentStore(store *MomentStore) ServerOption {
	return func(s *Server) { s.store = store }
}

// WithRateLimiter bounds how fast commands may be sent to the agent.
func WithRateLimiter(rl *RateLimiter) ServerOption {
	return func(s *Server) { s.limiter = rl }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithResultHandler registers an observer for inbound agent frames.
func WithResultHandler(h ResultHandler) ServerOption {
	return func(s *Server) { s.handler = h }
}

// NewServer creates a bridge server listening on addr once started.
func NewServer(addr string, opts ...ServerOption) *Server {
	s := &Server{
		addr:   addr,
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins accepting agent connections. It returns once the listener
// is bound.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	s.srv = &http.Server{Addr: s.addr, Handler: mux}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bridge listen on %s: %w", s.addr, err)
	}
	s.ln = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("bridge server stopped", "error", err)
		}
	}()

	s.logger.Info("bridge listening", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the listener and any live agent connection down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.agent != nil {
		s.agent.close()
		s.agent = nil
	}
	s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Addr returns the bound listen address, or the configured address when
// not started.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Connected reports whether an agent is currently attached.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agent != nil
}

// Send relays a command to the connected agent. Search commands are
// rewritten to open a search results page; the agent never sees "search".
func (s *Server) Send(cmd *protocol.Command) error {
	cmd, err := RewriteSearch(cmd)
	if err != nil {
		return err
	}

	s.mu.Lock()
	agent := s.agent
	s.mu.Unlock()

	if agent == nil {
		return fmt.Errorf("no browser connected")
	}
	if s.limiter != nil && !s.limiter.Allow(agent.id) {
		return fmt.Errorf("command rate limit exceeded")
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	return agent.trySend(data)
}

// RewriteSearch converts a search command into an open command pointing
// at a search results URL. Non-search commands pass through untouched.
func RewriteSearch(cmd *protocol.Command) (*protocol.Command, error) {
	if cmd.Action != protocol.ActionSearch {
		return cmd, nil
	}
	if cmd.Query == "" {
		return nil, fmt.Errorf("query required for search")
	}
	return &protocol.Command{
		Action: protocol.ActionOpen,
		URL:    fmt.Sprintf(searchURLFormat, url.QueryEscape(cmd.Query)),
	}, nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	a := &agentConn{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	s.mu.Lock()
	if s.agent != nil {
		s.logger.Info("replacing agent connection", "old", s.agent.id, "new", a.id)
		s.agent.close()
	}
	s.agent = a
	s.mu.Unlock()

	s.logger.Info("agent connected", "connection", a.id, "remote", r.RemoteAddr)

	go a.writePump(s.logger)
	a.readPump(func(data []byte) { s.handleFrame(a.id, data) }, s.logger)

	s.mu.Lock()
	if s.agent == a {
		s.agent = nil
	}
	s.mu.Unlock()
	s.logger.Info("agent disconnected", "connection", a.id)
}

// handleFrame decodes one inbound agent frame, persists screenshot and
// moment results, and notifies the result handler.
func (s *Server) handleFrame(connID string, data []byte) {
	var msg AgentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("undecodable agent frame", "connection", connID, "error", err)
		return
	}

	if msg.Type == protocol.TypeResult {
		s.persistResult(&msg)
	}

	if s.handler != nil {
		s.handler(&msg, data)
	}
}

func (s *Server) persistResult(msg *AgentMessage) {
	if s.store == nil {
		return
	}

	switch msg.Action {
	case protocol.ActionScreenshot:
		dataURL, ok := screenshotPayload(msg.Data)
		if !ok {
			return
		}
		if _, err := s.store.SaveScreenshot(dataURL); err != nil {
			s.logger.Error("save screenshot failed", "error", err)
		}

	case protocol.ActionMoment:
		var moment struct {
			Screenshot string          `json:"screenshot"`
			Page       json.RawMessage `json:"page"`
		}
		if err := json.Unmarshal(msg.Data, &moment); err != nil || moment.Screenshot == "" {
			return
		}
		var page struct {
			Title string `json:"title"`
		}
		_ = json.Unmarshal(moment.Page, &page)
		if _, err := s.store.SaveMoment(page.Title, moment.Screenshot, moment.Page); err != nil {
			s.logger.Error("save moment failed", "error", err)
		}
	}
}

// screenshotPayload accepts both a bare data-URL string and an object
// with a screenshot field.
func screenshotPayload(data json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		return s, true
	}
	var obj struct {
		Screenshot string `json:"screenshot"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Screenshot != "" {
		return obj.Screenshot, true
	}
	return "", false
}

// agentConn is a single agent WebSocket connection.
type agentConn struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func (a *agentConn) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	close(a.send)
}

// trySend queues one outbound frame without blocking. The push shares a
// mutex with close so a frame can never land on a closed channel.
func (a *agentConn) trySend(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("agent connection closed")
	}
	select {
	case a.send <- data:
		return nil
	default:
		return fmt.Errorf("agent send buffer full")
	}
}

// readPump reads frames until the connection drops.
func (a *agentConn) readPump(handle func([]byte), logger *slog.Logger) {
	defer a.conn.Close()

	a.conn.SetReadLimit(maxWSMessageSize)
	a.conn.SetReadDeadline(time.Now().Add(readTimeout))
	a.conn.SetPongHandler(func(string) error {
		a.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, data, err := a.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", "connection", a.id, "error", err)
			}
			return
		}
		a.conn.SetReadDeadline(time.Now().Add(readTimeout))
		handle(data)
	}
}

// writePump writes frames and pings until the send channel closes.
func (a *agentConn) writePump(logger *slog.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		a.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-a.send:
			if !ok {
				a.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			a.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := a.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			a.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := a.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
