package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
	"github.com/ShreyaaMaityy/SyncFlow/internal/hub"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type recConn struct {
	id string

	mu     sync.Mutex
	frames []frame
}

func (c *recConn) ID() string { return c.id }

func (c *recConn) Send(data []byte) error {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.mu.Lock()
	c.frames = append(c.frames, f)
	c.mu.Unlock()
	return nil
}

func (c *recConn) received() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame(nil), c.frames...)
}

func (c *recConn) types() []string {
	var out []string
	for _, f := range c.received() {
		out = append(out, f.Type)
	}
	return out
}

func (c *recConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

type room struct {
	reg    *hub.Registry
	router *hub.Router
}

func newRoom() *room {
	reg := hub.NewRegistry()
	return &room{reg: reg, router: hub.NewRouter(reg)}
}

// join registers connections and binds them to the workspace without presence traffic.
func (r *room) join(t *testing.T, workspaceID string, ids ...string) []*recConn {
	t.Helper()
	conns := make([]*recConn, len(ids))
	for i, id := range ids {
		conns[i] = &recConn{id: id}
		r.reg.Register(conns[i])
		if _, err := r.reg.Bind(id, workspaceID, "p-"+id); err != nil {
			t.Fatalf("bind %s: %v", id, err)
		}
	}
	return conns
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func chatText(t *testing.T, f frame) string {
	t.Helper()
	var m domain.ChatMessage
	if err := json.Unmarshal(f.Payload, &m); err != nil {
		t.Fatalf("decode chat payload: %v", err)
	}
	return m.Text
}

func rawChat(t *testing.T, m domain.ChatMessage) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("encode chat: %v", err)
	}
	return b
}

type designerFunc func(ctx context.Context, prompt string) (domain.AIReply, error)

func (f designerFunc) Generate(ctx context.Context, prompt string) (domain.AIReply, error) {
	return f(ctx, prompt)
}
