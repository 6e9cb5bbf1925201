package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
)

const (
	replyChat   = "chat"
	replyDesign = "design"
)

type envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// ParseReply decodes the model's JSON answer into a chat or design reply.
// Markdown fences around the JSON are tolerated.
func ParseReply(text string) (domain.AIReply, error) {
	var env envelope
	if err := json.Unmarshal([]byte(stripFences(text)), &env); err != nil {
		return nil, fmt.Errorf("%w: decode reply: %v", domain.ErrAIFailed, err)
	}

	switch env.Type {
	case replyChat:
		var s string
		if err := json.Unmarshal(env.Content, &s); err != nil {
			// some answers come back as an object; show it as is
			s = string(env.Content)
		}
		return domain.ChatReply{Text: s}, nil

	case replyDesign:
		var g domain.Graph
		if err := json.Unmarshal(env.Content, &g); err != nil {
			return nil, fmt.Errorf("%w: decode design: %v", domain.ErrAIFailed, err)
		}
		// the design is forwarded as the model wrote it; only the arrays are checked
		g = g.Normalize()
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrAIFailed, err)
		}
		return domain.DesignReply{Graph: g}, nil

	default:
		return nil, fmt.Errorf("%w: unknown reply type %q", domain.ErrAIFailed, env.Type)
	}
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
