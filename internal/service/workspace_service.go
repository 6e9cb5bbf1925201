package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"

	"github.com/benbjohnson/clock"
)

const maxWorkspaceName = 200

type WorkspaceService struct {
	store WorkspaceStore
	rec   *Reconciler
	clock clock.Clock
}

func NewWorkspaceService(store WorkspaceStore, rec *Reconciler) *WorkspaceService {
	return &WorkspaceService{store: store, rec: rec, clock: rec.clock}
}

// Get returns the stored snapshot, or an unsaved empty workspace when the
// store has none.
func (s *WorkspaceService) Get(ctx context.Context, workspaceID string) (*domain.Snapshot, error) {
	if workspaceID == "" {
		return nil, domain.ErrMalformedPayload
	}
	snap, err := s.store.Get(ctx, workspaceID)
	if errors.Is(err, domain.ErrWorkspaceNotFound) {
		return domain.NewSnapshot(workspaceID), nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Save hands the graph to the reconciler; the write happens after the debounce.
func (s *WorkspaceService) Save(workspaceID string, g domain.Graph) error {
	return s.rec.Push(workspaceID, g)
}

// Rename sets the display name of an existing workspace and returns it.
func (s *WorkspaceService) Rename(ctx context.Context, workspaceID, name string) (*domain.Snapshot, error) {
	name = strings.TrimSpace(name)
	if workspaceID == "" || name == "" {
		return nil, fmt.Errorf("%w: workspace id and name are required", domain.ErrMalformedPayload)
	}
	if len(name) > maxWorkspaceName {
		return nil, fmt.Errorf("%w: name longer than %d bytes", domain.ErrMalformedPayload, maxWorkspaceName)
	}
	if err := s.store.Rename(ctx, workspaceID, name, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, workspaceID)
}

// Delete removes the workspace and any save still waiting for its debounce.
func (s *WorkspaceService) Delete(ctx context.Context, workspaceID string) error {
	if workspaceID == "" {
		return domain.ErrMalformedPayload
	}
	discarded := s.rec.Discard(workspaceID)
	err := s.store.Delete(ctx, workspaceID)
	if errors.Is(err, domain.ErrWorkspaceNotFound) && discarded {
		// never persisted, but the pending save was the workspace
		err = nil
	}
	if err == nil {
		slog.Info("workspace deleted", "workspace", workspaceID)
	}
	return err
}

func (s *WorkspaceService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
