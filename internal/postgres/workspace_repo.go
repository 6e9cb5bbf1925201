package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	workspace_id TEXT PRIMARY KEY,
	name         TEXT        NOT NULL DEFAULT 'Untitled Workspace',
	nodes        JSONB       NOT NULL DEFAULT '[]'::jsonb,
	edges        JSONB       NOT NULL DEFAULT '[]'::jsonb,
	last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type WorkspaceRepository struct {
	db *pgxpool.Pool
}

func NewWorkspaceRepository(db *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

func (r *WorkspaceRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *WorkspaceRepository) Get(ctx context.Context, workspaceID string) (*domain.Snapshot, error) {
	var (
		s            domain.Snapshot
		nodes, edges []byte
	)
	query := `SELECT workspace_id, name, nodes, edges, last_updated FROM workspaces WHERE workspace_id=$1`
	err := r.db.QueryRow(ctx, query, workspaceID).
		Scan(&s.WorkspaceID, &s.Name, &nodes, &edges, &s.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkspaceNotFound
		}
		return nil, err
	}
	s.Nodes, s.Edges = nodes, edges
	return &s, nil
}

// Upsert creates the workspace if absent, else overwrites nodes, edges and
// last_updated. The name is only set on insert.
func (r *WorkspaceRepository) Upsert(ctx context.Context, workspaceID string, g domain.Graph, lastUpdated time.Time) error {
	g = g.Normalize()
	query := `
		INSERT INTO workspaces (workspace_id, name, nodes, edges, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workspace_id) DO UPDATE
		SET nodes = EXCLUDED.nodes,
		    edges = EXCLUDED.edges,
		    last_updated = EXCLUDED.last_updated`
	_, err := r.db.Exec(ctx, query,
		workspaceID, domain.DefaultWorkspaceName, []byte(g.Nodes), []byte(g.Edges), lastUpdated)
	return err
}

func (r *WorkspaceRepository) Rename(ctx context.Context, workspaceID, name string, lastUpdated time.Time) error {
	query := `UPDATE workspaces SET name=$2, last_updated=$3 WHERE workspace_id=$1`
	tag, err := r.db.Exec(ctx, query, workspaceID, name, lastUpdated)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkspaceNotFound
	}
	return nil
}

func (r *WorkspaceRepository) Delete(ctx context.Context, workspaceID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM workspaces WHERE workspace_id=$1`, workspaceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWorkspaceNotFound
	}
	return nil
}

func (r *WorkspaceRepository) Ping(ctx context.Context) error {
	return Ping(ctx, r.db)
}
