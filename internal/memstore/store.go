// Package memstore keeps workspace snapshots in process memory. Used when no
// durable backend is configured and in tests.
package memstore

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
)

type Store struct {
	mu    sync.RWMutex
	items map[string]domain.Snapshot
}

func New() *Store {
	return &Store{items: make(map[string]domain.Snapshot)}
}

func (s *Store) Get(_ context.Context, workspaceID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.items[workspaceID]
	if !ok {
		return nil, domain.ErrWorkspaceNotFound
	}
	return clone(snap), nil
}

// Upsert keeps the stored name and overwrites nodes, edges and lastUpdated.
func (s *Store) Upsert(ctx context.Context, workspaceID string, g domain.Graph, lastUpdated time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g = g.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.items[workspaceID]
	if !ok {
		snap = *domain.NewSnapshot(workspaceID)
	}
	snap.Nodes = bytes.Clone(g.Nodes)
	snap.Edges = bytes.Clone(g.Edges)
	snap.LastUpdated = lastUpdated
	s.items[workspaceID] = snap
	return nil
}

func (s *Store) Rename(_ context.Context, workspaceID, name string, lastUpdated time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.items[workspaceID]
	if !ok {
		return domain.ErrWorkspaceNotFound
	}
	snap.Name = name
	snap.LastUpdated = lastUpdated
	s.items[workspaceID] = snap
	return nil
}

func (s *Store) Delete(_ context.Context, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[workspaceID]; !ok {
		return domain.ErrWorkspaceNotFound
	}
	delete(s.items, workspaceID)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func clone(s domain.Snapshot) *domain.Snapshot {
	s.Nodes = bytes.Clone(s.Nodes)
	s.Edges = bytes.Clone(s.Edges)
	return &s
}
