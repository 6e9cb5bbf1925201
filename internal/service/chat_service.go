package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
	"github.com/ShreyaaMaityy/SyncFlow/internal/hub"

	"github.com/benbjohnson/clock"
)

const (
	MsgProcessing  = "Analyzing requirements and generating system design..."
	MsgDesignReady = "Design generated! Updating canvas."
	MsgRateLimited = "The AI Architect is currently at its free-tier limit. Please try again in a minute."
	MsgAIFailed    = "Sorry, I failed to generate the design. Please check the server logs (API Key?)."
)

// ChatService relays room chat and runs @ai commands.
type ChatService struct {
	router   Broadcaster
	designer Designer
	clock    clock.Clock
	timeout  time.Duration // 0 = wait for the AI service as long as it takes

	inflight sync.WaitGroup
}

type ChatOption func(*ChatService)

func WithChatClock(c clock.Clock) ChatOption {
	return func(s *ChatService) { s.clock = c }
}

func WithAITimeout(d time.Duration) ChatOption {
	return func(s *ChatService) { s.timeout = d }
}

func NewChatService(router Broadcaster, designer Designer, opts ...ChatOption) *ChatService {
	s := &ChatService{
		router:   router,
		designer: designer,
		clock:    clock.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OnMessage relays a chat message exactly as the sender wrote it; text is the
// message's text field, used only to spot commands. Plain messages go to
// everyone but the sender. Commands are echoed to the whole room and answered
// asynchronously; the answer reaches whoever is in the room when it arrives.
func (s *ChatService) OnMessage(ctx context.Context, senderConnID, workspaceID, text string, raw json.RawMessage) error {
	if workspaceID == "" {
		return domain.ErrNotJoined
	}
	if !domain.Present(raw) {
		return fmt.Errorf("%w: empty chat payload", domain.ErrMalformedPayload)
	}

	if !domain.IsAICommand(text) {
		s.router.Broadcast(workspaceID, hub.EventChatMessage, raw, senderConnID)
		return nil
	}

	s.router.Broadcast(workspaceID, hub.EventChatMessage, raw, "")
	s.say(workspaceID, MsgProcessing)

	prompt := domain.AIPrompt(text)
	ctx = context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.runCommand(ctx, workspaceID, prompt)
	}()
	return nil
}

func (s *ChatService) runCommand(ctx context.Context, workspaceID, prompt string) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.clock.Now()
	reply, err := s.generate(ctx, prompt)
	if err != nil {
		slog.Error("ai command failed",
			"workspace", workspaceID, "dur_ms", s.clock.Since(start).Milliseconds(), "err", err)
		if errors.Is(err, domain.ErrAIRateLimited) {
			s.say(workspaceID, MsgRateLimited)
		} else {
			s.say(workspaceID, MsgAIFailed)
		}
		return
	}

	switch r := reply.(type) {
	case domain.ChatReply:
		s.say(workspaceID, r.Text)
	case domain.DesignReply:
		g := r.Graph.Normalize()
		s.say(workspaceID, MsgDesignReady)
		s.router.Broadcast(workspaceID, hub.EventLoadWorkspace, g, "")
	default:
		slog.Error("ai command: unexpected reply", "workspace", workspaceID, "reply", reply)
		s.say(workspaceID, MsgAIFailed)
	}
	slog.Info("ai command done", "workspace", workspaceID, "dur_ms", s.clock.Since(start).Milliseconds())
}

func (s *ChatService) generate(ctx context.Context, prompt string) (domain.AIReply, error) {
	if s.designer == nil {
		return nil, domain.ErrAIFailed
	}
	return s.designer.Generate(ctx, prompt)
}

func (s *ChatService) say(workspaceID, text string) {
	s.router.Broadcast(workspaceID, hub.EventChatMessage, domain.NewSystemMessage(text, s.clock.Now()), "")
}

// Wait blocks until running AI commands finish or ctx is done.
func (s *ChatService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
