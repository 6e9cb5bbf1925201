package service

import (
	"encoding/json"
	"fmt"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
	"github.com/ShreyaaMaityy/SyncFlow/internal/hub"
)

type MutationKind string

const (
	NodesReplaced MutationKind = "nodes-replaced"
	EdgesReplaced MutationKind = "edges-replaced"
	EdgeAdded     MutationKind = "edge-added"
	EdgesDeleted  MutationKind = "edges-deleted"
	NodesDeleted  MutationKind = "nodes-deleted"
	CursorMoved   MutationKind = "cursor-moved"
)

var mutationEvents = map[MutationKind]string{
	NodesReplaced: hub.EventNodeChange,
	EdgesReplaced: hub.EventEdgesChange,
	EdgeAdded:     hub.EventNewEdge,
	EdgesDeleted:  hub.EventEdgeDeleted,
	NodesDeleted:  hub.EventNodeDeleted,
	CursorMoved:   hub.EventCursorMove,
}

// MutationService forwards graph edits to the rest of the room untouched.
// Conflicting edits resolve as last applied wins on each client.
type MutationService struct {
	router Broadcaster
}

func NewMutationService(router Broadcaster) *MutationService {
	return &MutationService{router: router}
}

func (s *MutationService) Relay(senderConnID, workspaceID string, kind MutationKind, payload json.RawMessage) error {
	event, ok := mutationEvents[kind]
	if !ok {
		return fmt.Errorf("%w: unknown mutation kind %q", domain.ErrMalformedPayload, kind)
	}
	if workspaceID == "" {
		return domain.ErrNotJoined
	}
	if !domain.Present(payload) {
		return fmt.Errorf("%w: %s without payload", domain.ErrMalformedPayload, event)
	}

	s.router.Broadcast(workspaceID, event, payload, senderConnID)
	return nil
}
