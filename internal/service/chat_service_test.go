package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
	"github.com/ShreyaaMaityy/SyncFlow/internal/hub"

	"github.com/benbjohnson/clock"
)

func waitChat(t *testing.T, svc *ChatService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Wait(ctx); err != nil {
		t.Fatalf("ai command did not finish: %v", err)
	}
}

func TestChatPlainMessageSkipsSender(t *testing.T) {
	r := newRoom()
	conns := r.join(t, "ws-1", "a", "b")
	svc := NewChatService(r.router, nil)

	msg := domain.ChatMessage{ID: "m1", ParticipantID: "alice", Text: "hello @ai", Timestamp: "10:00:00"}
	if err := svc.OnMessage(context.Background(), "a", "ws-1", msg.Text, rawChat(t, msg)); err != nil {
		t.Fatalf("on message: %v", err)
	}

	if got := conns[0].received(); len(got) != 0 {
		t.Fatalf("sender got its own chat back: %v", got)
	}
	got := conns[1].received()
	if len(got) != 1 || chatText(t, got[0]) != "hello @ai" {
		t.Fatalf("unexpected frames for peer: %v", got)
	}
}

func TestChatAIDesignScenario(t *testing.T) {
	r := newRoom()
	conns := r.join(t, "ws-1", "a", "b")

	var prompt string
	design := domain.Graph{
		Nodes: json.RawMessage(`[{"id":"1","type":"clientNode","position":{"x":0,"y":0},"data":{"label":"Client"}}]`),
		Edges: json.RawMessage(`[{"id":"e1","source":"1","target":"2","animated":true}]`),
	}
	designer := designerFunc(func(_ context.Context, p string) (domain.AIReply, error) {
		prompt = p
		return domain.DesignReply{Graph: design}, nil
	})
	mock := clock.NewMock()
	svc := NewChatService(r.router, designer, WithChatClock(mock))

	msg := domain.ChatMessage{ID: "m1", ParticipantID: "alice", Text: "@ai draw a client-server system"}
	if err := svc.OnMessage(context.Background(), "a", "ws-1", msg.Text, rawChat(t, msg)); err != nil {
		t.Fatalf("on message: %v", err)
	}
	waitChat(t, svc)

	if prompt != "draw a client-server system" {
		t.Fatalf("prompt = %q", prompt)
	}

	want := []string{hub.EventChatMessage, hub.EventChatMessage, hub.EventChatMessage, hub.EventLoadWorkspace}
	for _, c := range conns {
		frames := c.received()
		if len(frames) != len(want) {
			t.Fatalf("%s got %v, want %v", c.id, c.types(), want)
		}
		for i, w := range want {
			if frames[i].Type != w {
				t.Fatalf("%s frame %d = %s, want %s", c.id, i, frames[i].Type, w)
			}
		}
		if chatText(t, frames[0]) != msg.Text {
			t.Fatalf("first frame must be the original command")
		}
		if chatText(t, frames[1]) != MsgProcessing || chatText(t, frames[2]) != MsgDesignReady {
			t.Fatalf("unexpected system messages: %q, %q", chatText(t, frames[1]), chatText(t, frames[2]))
		}

		var sys domain.ChatMessage
		_ = json.Unmarshal(frames[2].Payload, &sys)
		if sys.ParticipantID != domain.AIParticipant || sys.ID == "" {
			t.Fatalf("system message identity = %+v", sys)
		}

		var g domain.Graph
		if err := json.Unmarshal(frames[3].Payload, &g); err != nil {
			t.Fatalf("decode load-workspace: %v", err)
		}
		if string(g.Nodes) != string(design.Nodes) || string(g.Edges) != string(design.Edges) {
			t.Fatalf("load-workspace payload = %+v", g)
		}
	}
}

func TestChatAIReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply domain.AIReply
		err   error
		want  string
	}{
		{"chat answer", domain.ChatReply{Text: "Hi there"}, nil, "Hi there"},
		{"rate limited", nil, fmt.Errorf("gemini: %w", domain.ErrAIRateLimited), MsgRateLimited},
		{"generic failure", nil, errors.New("boom"), MsgAIFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRoom()
			conns := r.join(t, "ws", "a", "b")
			svc := NewChatService(r.router, designerFunc(func(context.Context, string) (domain.AIReply, error) {
				return tt.reply, tt.err
			}))

			_ = svc.OnMessage(context.Background(), "a", "ws", "@ai hi", rawChat(t, domain.ChatMessage{Text: "@ai hi"}))
			waitChat(t, svc)

			for _, c := range conns {
				frames := c.received()
				if len(frames) != 3 {
					t.Fatalf("%s got %v", c.id, c.types())
				}
				if got := chatText(t, frames[2]); got != tt.want {
					t.Fatalf("%s reply = %q, want %q", c.id, got, tt.want)
				}
			}
		})
	}
}

func TestChatAIWithoutDesigner(t *testing.T) {
	r := newRoom()
	a := r.join(t, "ws", "a")[0]
	svc := NewChatService(r.router, nil)

	_ = svc.OnMessage(context.Background(), "a", "ws", "@ai", rawChat(t, domain.ChatMessage{Text: "@ai"}))
	waitChat(t, svc)

	frames := a.received()
	if len(frames) != 3 || chatText(t, frames[2]) != MsgAIFailed {
		t.Fatalf("unexpected frames: %v", a.types())
	}
}

func TestChatAITimeout(t *testing.T) {
	r := newRoom()
	a := r.join(t, "ws", "a")[0]
	svc := NewChatService(r.router, designerFunc(func(ctx context.Context, _ string) (domain.AIReply, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", domain.ErrAIFailed, ctx.Err())
	}), WithAITimeout(20*time.Millisecond))

	_ = svc.OnMessage(context.Background(), "a", "ws", "@ai design", rawChat(t, domain.ChatMessage{Text: "@ai design"}))
	waitChat(t, svc)

	frames := a.received()
	if len(frames) != 3 || chatText(t, frames[2]) != MsgAIFailed {
		t.Fatalf("unexpected frames: %v", a.types())
	}
}

func TestChatRequiresWorkspace(t *testing.T) {
	svc := NewChatService(newRoom().router, nil)
	if err := svc.OnMessage(context.Background(), "a", "", "hi", rawChat(t, domain.ChatMessage{Text: "hi"})); !errors.Is(err, domain.ErrNotJoined) {
		t.Fatalf("expected ErrNotJoined, got %v", err)
	}
}

func TestChatRelaysPayloadVerbatim(t *testing.T) {
	r := newRoom()
	conns := r.join(t, "ws-1", "a", "b")
	svc := NewChatService(r.router, designerFunc(func(context.Context, string) (domain.AIReply, error) {
		return domain.ChatReply{Text: "ok"}, nil
	}))

	plain := json.RawMessage(`{"id":42,"participantId":"alice","text":"hi","timestamp":1718000000,"color":"#f00"}`)
	if err := svc.OnMessage(context.Background(), "a", "ws-1", "hi", plain); err != nil {
		t.Fatalf("on message: %v", err)
	}
	if got := conns[1].received(); len(got) != 1 || string(got[0].Payload) != string(plain) {
		t.Fatalf("peer got %v", got)
	}

	conns[1].reset()
	command := json.RawMessage(`{"id":"m2","text":"@ai hi","reactions":["+1"]}`)
	if err := svc.OnMessage(context.Background(), "a", "ws-1", "@ai hi", command); err != nil {
		t.Fatalf("on command: %v", err)
	}
	waitChat(t, svc)
	for _, c := range conns {
		frames := c.received()
		if len(frames) == 0 || string(frames[0].Payload) != string(command) {
			t.Fatalf("%s did not get the command as sent: %v", c.id, frames)
		}
	}

	if err := svc.OnMessage(context.Background(), "a", "ws-1", "hi", nil); !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}
