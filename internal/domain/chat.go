package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AICommandPrefix marks a chat message as a command for the AI collaborator.
const AICommandPrefix = "@ai"

// AIParticipant is the identity system chat messages are sent under.
const AIParticipant = "AI Architect"

type ChatMessage struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participantId"`
	Text          string `json:"text"`
	Timestamp     string `json:"timestamp"`
}

// IsAICommand reports whether text starts with the command prefix.
func IsAICommand(text string) bool {
	return strings.HasPrefix(text, AICommandPrefix)
}

// AIPrompt strips the command prefix and surrounding whitespace.
func AIPrompt(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, AICommandPrefix))
}

// NewSystemMessage builds a chat message authored by the AI participant.
func NewSystemMessage(text string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:            uuid.NewString(),
		ParticipantID: AIParticipant,
		Text:          text,
		Timestamp:     now.Format("15:04:05"),
	}
}
