package service

import (
	"context"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
)

// Broadcaster fans an event out to a workspace room.
type Broadcaster interface {
	Broadcast(workspaceID, event string, payload any, exclude string) int
}

// Designer turns a free-text prompt into a chat answer or a full design.
type Designer interface {
	Generate(ctx context.Context, prompt string) (domain.AIReply, error)
}

type SnapshotWriter interface {
	Upsert(ctx context.Context, workspaceID string, g domain.Graph, lastUpdated time.Time) error
}

// WorkspaceStore is the durable key-value store keyed by workspace id.
type WorkspaceStore interface {
	SnapshotWriter
	Get(ctx context.Context, workspaceID string) (*domain.Snapshot, error)
	// Rename and Delete return domain.ErrWorkspaceNotFound for absent workspaces.
	Rename(ctx context.Context, workspaceID, name string, lastUpdated time.Time) error
	Delete(ctx context.Context, workspaceID string) error
	Ping(ctx context.Context) error
}
