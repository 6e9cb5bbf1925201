package hub

import "encoding/json"

// Wire events exchanged with editor clients.
const (
	EventJoinWorkspace  = "join-workspace"
	EventUserListUpdate = "user-list-update"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventNodeChange     = "node-change"
	EventEdgesChange    = "edges-change"
	EventNewEdge        = "new-edge"
	EventEdgeDeleted    = "edge-deleted"
	EventNodeDeleted    = "node-deleted"
	EventChatMessage    = "chat-message"
	EventCursorMove     = "cursor-move"
	EventLoadWorkspace  = "load-workspace"
	EventSaveWorkspace  = "save-workspace"
)

// Message is the outbound envelope.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Inbound keeps the payload raw so relayed events go out byte-for-byte.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func Encode(event string, payload any) ([]byte, error) {
	return json.Marshal(Message{Type: event, Payload: payload})
}
