package domain

type PresenceEntry struct {
	ParticipantID string `json:"participantId"`
	ConnectionID  string `json:"connectionId"`
}

// Binding is what a connection is attached to once it has joined.
type Binding struct {
	WorkspaceID   string
	ParticipantID string
}

func (b Binding) Joined() bool {
	return b.WorkspaceID != ""
}
