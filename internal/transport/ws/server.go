package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/auth"
	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
	"github.com/ShreyaaMaityy/SyncFlow/internal/hub"
	"github.com/ShreyaaMaityy/SyncFlow/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	SendQueueSize   int
	MaxMessageSize  int64
	AllowedOrigins  []string // empty allows any origin
}

func (c *Config) setDefaults() {
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = 1024
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = 1024
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 1 << 20
	}
}

type PresenceSvc interface {
	Join(connID, workspaceID, participantID string) error
	Leave(connID string)
}

type MutationSvc interface {
	Relay(senderConnID, workspaceID string, kind service.MutationKind, payload json.RawMessage) error
}

type ChatSvc interface {
	OnMessage(ctx context.Context, senderConnID, workspaceID, text string, raw json.RawMessage) error
}

type SnapshotSvc interface {
	Push(workspaceID string, g domain.Graph) error
}

type TokenVerifier interface {
	Participant(token string) (string, error)
}

type Deps struct {
	Registry  *hub.Registry
	Presence  PresenceSvc
	Mutations MutationSvc
	Chat      ChatSvc
	Snapshots SnapshotSvc
	Verifier  TokenVerifier // optional
}

type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	deps     Deps

	done     chan struct{}
	stopOnce sync.Once
	active   sync.WaitGroup
}

func NewServer(cfg Config, d Deps) *Server {
	cfg.setDefaults()
	s := &Server{
		cfg:  cfg,
		deps: d,
		done: make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

// HandleWS serves GET /ws. The workspace is chosen later by join-workspace.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.done:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	var participant string
	if s.deps.Verifier != nil {
		if token := auth.TokenFromRequest(r); token != "" {
			p, err := s.deps.Verifier.Participant(token)
			if err != nil {
				slog.Warn("ws token rejected", "remote", r.RemoteAddr, "err", err)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			participant = p
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	s.active.Add(1)
	defer s.active.Done()

	c := newWsConn(uuid.NewString(), conn, s.cfg.SendQueueSize)
	c.participant = participant
	s.deps.Registry.Register(c)
	slog.Debug("ws connected", "conn", c.id, "remote", r.RemoteAddr)

	go s.writeLoop(c)
	s.readLoop(r.Context(), c)

	s.deps.Presence.Leave(c.id)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "conn", c.id, "err", err)
	}
	slog.Debug("ws disconnected", "conn", c.id)
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	c.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("ws read failed", "conn", c.id, "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))

		var msg hub.Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("ws frame dropped", "conn", c.id, "err", err)
			continue
		}
		if err := s.dispatch(ctx, c, msg); err != nil {
			slog.Warn("ws event dropped", "conn", c.id, "event", msg.Type, "err", err)
		}
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("ws write failed", "conn", c.id, "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				_ = c.Close()
				return
			}
		case <-s.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = c.Close()
			return
		case <-c.closed:
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, c *wsConn, msg hub.Inbound) error {
	switch msg.Type {
	case hub.EventJoinWorkspace:
		var p joinPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return s.deps.Presence.Join(c.id, p.WorkspaceID, s.participantFor(c, p.ParticipantID))

	case hub.EventNodeChange:
		var p nodesPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return s.relay(c, p.routed, service.NodesReplaced, p.Nodes)

	case hub.EventEdgesChange:
		var p edgesPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return s.relay(c, p.routed, service.EdgesReplaced, p.Edges)

	case hub.EventNewEdge:
		var p newEdgePayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return s.relay(c, p.routed, service.EdgeAdded, p.Params)

	case hub.EventEdgeDeleted:
		var p edgeIDsPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return s.relay(c, p.routed, service.EdgesDeleted, p.EdgeIDs)

	case hub.EventNodeDeleted:
		var p nodeIDsPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return s.relay(c, p.routed, service.NodesDeleted, p.NodeIDs)

	case hub.EventCursorMove:
		var p routed
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		return s.relay(c, p, service.CursorMoved, msg.Payload)

	case hub.EventChatMessage:
		// only the routing fields are read; peers get the frame as sent
		var p chatPayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("%w: empty chat message", domain.ErrMalformedPayload)
		}
		ws, err := s.workspaceOf(c, p.WorkspaceID)
		if err != nil {
			return err
		}
		return s.deps.Chat.OnMessage(ctx, c.id, ws, p.Text, msg.Payload)

	case hub.EventSaveWorkspace:
		var p savePayload
		if err := decode(msg.Payload, &p); err != nil {
			return err
		}
		g := domain.Graph{Nodes: p.Nodes, Edges: p.Edges}
		if err := g.Validate(); err != nil {
			return err
		}
		ws, err := s.workspaceOf(c, p.WorkspaceID)
		if err != nil {
			return err
		}
		return s.deps.Snapshots.Push(ws, g)

	default:
		return fmt.Errorf("%w: unknown event %q", domain.ErrMalformedPayload, msg.Type)
	}
}

func (s *Server) relay(c *wsConn, r routed, kind service.MutationKind, payload json.RawMessage) error {
	ws, err := s.workspaceOf(c, r.WorkspaceID)
	if err != nil {
		return err
	}
	return s.deps.Mutations.Relay(c.id, ws, kind, payload)
}

// workspaceOf resolves the room an event belongs to. The sender must have
// joined, and a payload naming any other room is refused.
func (s *Server) workspaceOf(c *wsConn, fromPayload string) (string, error) {
	b, ok := s.deps.Registry.Binding(c.id)
	if !ok || !b.Joined() {
		return "", domain.ErrNotJoined
	}
	if fromPayload != "" && fromPayload != b.WorkspaceID {
		return "", fmt.Errorf("%w: joined %q, event names %q", domain.ErrNotJoined, b.WorkspaceID, fromPayload)
	}
	return b.WorkspaceID, nil
}

// participantFor picks the verified token identity, then the one the client
// asked for, then a generated one.
func (s *Server) participantFor(c *wsConn, requested string) string {
	switch {
	case c.participant != "":
		return c.participant
	case requested != "":
		return requested
	default:
		return generateParticipantID()
	}
}

func generateParticipantID() string {
	return "user-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// Shutdown sends a going-away close frame to every connection and waits for
// their handlers to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })

	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decode(payload json.RawMessage, dst any) error {
	if !domain.Present(payload) {
		return fmt.Errorf("%w: missing payload", domain.ErrMalformedPayload)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return errors.Join(domain.ErrMalformedPayload, err)
	}
	return nil
}
