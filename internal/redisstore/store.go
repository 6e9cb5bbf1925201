// Package redisstore keeps workspace snapshots in Redis hashes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	fieldName        = "name"
	fieldNodes       = "nodes"
	fieldEdges       = "edges"
	fieldLastUpdated = "lastUpdated"
)

type Store struct {
	client *redis.Client
	prefix string
}

// New parses a redis:// URL. The server is not contacted until first use.
func New(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewWithClient(redis.NewClient(opts)), nil
}

func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, prefix: "workspace:"}
}

func (s *Store) key(workspaceID string) string {
	return s.prefix + workspaceID
}

func (s *Store) Get(ctx context.Context, workspaceID string) (*domain.Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, s.key(workspaceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrWorkspaceNotFound
	}

	snap := domain.NewSnapshot(workspaceID)
	if name := fields[fieldName]; name != "" {
		snap.Name = name
	}
	if v, ok := fields[fieldNodes]; ok {
		snap.Nodes = []byte(v)
	}
	if v, ok := fields[fieldEdges]; ok {
		snap.Edges = []byte(v)
	}
	if v := fields[fieldLastUpdated]; v != "" {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			snap.LastUpdated = ts
		}
	}
	return snap, nil
}

// Upsert writes the graph atomically; the name is only set when the hash is new.
func (s *Store) Upsert(ctx context.Context, workspaceID string, g domain.Graph, lastUpdated time.Time) error {
	g = g.Normalize()
	key := s.key(workspaceID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldName, domain.DefaultWorkspaceName)
		pipe.HSet(ctx, key,
			fieldNodes, string(g.Nodes),
			fieldEdges, string(g.Edges),
			fieldLastUpdated, lastUpdated.UTC().Format(time.RFC3339Nano),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", workspaceID, err)
	}
	return nil
}

// Rename updates name and lastUpdated only if the hash exists. WATCH aborts
// the transaction when the key changes between the check and the write.
func (s *Store) Rename(ctx context.Context, workspaceID, name string, lastUpdated time.Time) error {
	key := s.key(workspaceID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrWorkspaceNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldName, name,
				fieldLastUpdated, lastUpdated.UTC().Format(time.RFC3339Nano),
			)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, domain.ErrWorkspaceNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("rename %s: %w", workspaceID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, workspaceID string) error {
	n, err := s.client.Del(ctx, s.key(workspaceID)).Result()
	if err != nil {
		return fmt.Errorf("delete %s: %w", workspaceID, err)
	}
	if n == 0 {
		return domain.ErrWorkspaceNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
