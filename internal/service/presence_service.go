package service

import (
	"log/slog"
	"sync"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
	"github.com/ShreyaaMaityy/SyncFlow/internal/hub"
)

// PresenceService keeps every room's roster in sync with the registry.
// mu orders membership changes with the roster broadcasts they cause, so a
// roster is never queued after a newer one for the same room.
type PresenceService struct {
	reg    *hub.Registry
	router Broadcaster

	mu sync.Mutex
}

func NewPresenceService(reg *hub.Registry, router Broadcaster) *PresenceService {
	return &PresenceService{reg: reg, router: router}
}

// Join binds the connection to the workspace and notifies the room. When the
// connection was already in another room, that room is told it left.
func (s *PresenceService) Join(connID, workspaceID, participantID string) error {
	if workspaceID == "" {
		return domain.ErrMalformedPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.reg.Bind(connID, workspaceID, participantID)
	if err != nil {
		return err
	}
	if prev.Joined() && prev.WorkspaceID != workspaceID {
		s.announceLeft(connID, prev)
	}

	s.router.Broadcast(workspaceID, hub.EventUserJoined, domain.PresenceEntry{
		ParticipantID: participantID,
		ConnectionID:  connID,
	}, "")
	s.broadcastRoster(workspaceID)

	slog.Info("participant joined", "workspace", workspaceID, "participant", participantID, "conn", connID)
	return nil
}

// Leave drops the connection from the registry; unjoined connections are a no-op.
func (s *PresenceService) Leave(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.reg.Unregister(connID)
	if !ok {
		return
	}
	s.announceLeft(connID, b)
	slog.Info("participant left", "workspace", b.WorkspaceID, "participant", b.ParticipantID, "conn", connID)
}

func (s *PresenceService) Roster(workspaceID string) []domain.PresenceEntry {
	return s.reg.Roster(workspaceID)
}

func (s *PresenceService) announceLeft(connID string, b domain.Binding) {
	s.router.Broadcast(b.WorkspaceID, hub.EventUserLeft, domain.PresenceEntry{
		ParticipantID: b.ParticipantID,
		ConnectionID:  connID,
	}, "")
	s.broadcastRoster(b.WorkspaceID)
}

func (s *PresenceService) broadcastRoster(workspaceID string) {
	s.router.Broadcast(workspaceID, hub.EventUserListUpdate, s.reg.Roster(workspaceID), "")
}
