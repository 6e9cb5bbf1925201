package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
)

var ErrReconcilerClosed = errors.New("reconciler closed")

const (
	DefaultDebounce     = 2 * time.Second
	DefaultWriteTimeout = 10 * time.Second

	flushConcurrency = 8
)

type ReconcilerConfig struct {
	Debounce     time.Duration
	WriteTimeout time.Duration
	Clock        clock.Clock
}

type pendingWrite struct {
	timer *clock.Timer
	graph domain.Graph
}

// Reconciler persists pushed snapshots with a trailing-edge debounce: only the
// last push in a quiet window per workspace reaches the store. Failed writes
// are logged and dropped.
type Reconciler struct {
	store        SnapshotWriter
	clock        clock.Clock
	debounce     time.Duration
	writeTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingWrite
	closed  bool
	writes  sync.WaitGroup
}

func NewReconciler(store SnapshotWriter, cfg ReconcilerConfig) *Reconciler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Reconciler{
		store:        store,
		clock:        cfg.Clock,
		debounce:     cfg.Debounce,
		writeTimeout: cfg.WriteTimeout,
		pending:      make(map[string]*pendingWrite),
	}
}

// Push replaces whatever is pending for the workspace and re-arms its timer.
// A graph missing nodes or edges is refused so it cannot blank the stored one.
func (r *Reconciler) Push(workspaceID string, g domain.Graph) error {
	if workspaceID == "" {
		return fmt.Errorf("%w: missing workspace id", domain.ErrMalformedPayload)
	}
	if err := g.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrReconcilerClosed
	}
	if prev, ok := r.pending[workspaceID]; ok {
		prev.timer.Stop()
	}
	p := &pendingWrite{graph: g}
	p.timer = r.clock.AfterFunc(r.debounce, func() { r.fire(workspaceID, p) })
	r.pending[workspaceID] = p
	return nil
}

func (r *Reconciler) fire(workspaceID string, p *pendingWrite) {
	r.mu.Lock()
	if r.pending[workspaceID] != p {
		// superseded or flushed
		r.mu.Unlock()
		return
	}
	delete(r.pending, workspaceID)
	r.writes.Add(1)
	r.mu.Unlock()

	defer r.writes.Done()
	_ = r.write(context.Background(), workspaceID, p.graph)
}

func (r *Reconciler) write(ctx context.Context, workspaceID string, g domain.Graph) error {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if err := r.store.Upsert(ctx, workspaceID, g, r.clock.Now()); err != nil {
		slog.Error("snapshot upsert failed", "workspace", workspaceID, "err", err)
		return fmt.Errorf("upsert %s: %w", workspaceID, err)
	}
	slog.Debug("snapshot persisted", "workspace", workspaceID)
	return nil
}

// Discard drops the pending snapshot for the workspace, if any.
func (r *Reconciler) Discard(workspaceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[workspaceID]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(r.pending, workspaceID)
	return true
}

// Pending reports how many workspaces have an armed timer.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Close stops accepting pushes, writes every pending snapshot immediately and
// waits for writes already in flight.
func (r *Reconciler) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	batch := r.pending
	r.pending = make(map[string]*pendingWrite)
	for _, p := range batch {
		p.timer.Stop()
	}
	r.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(flushConcurrency)
	for id, p := range batch {
		g.Go(func() error { return r.write(ctx, id, p.graph) })
	}
	err := g.Wait()

	done := make(chan struct{})
	go func() {
		r.writes.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}

	if len(batch) > 0 {
		slog.Info("reconciler flushed", "workspaces", len(batch), "err", err)
	}
	return err
}
