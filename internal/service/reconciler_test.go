package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
	"github.com/ShreyaaMaityy/SyncFlow/internal/memstore"

	"github.com/benbjohnson/clock"
)

type upsertCall struct {
	workspaceID string
	graph       domain.Graph
	at          time.Time
}

type recordingStore struct {
	mu    sync.Mutex
	calls []upsertCall
	err   error
}

func (s *recordingStore) Upsert(_ context.Context, workspaceID string, g domain.Graph, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, upsertCall{workspaceID, g, at})
	return s.err
}

func (s *recordingStore) upserts() []upsertCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]upsertCall(nil), s.calls...)
}

func graphOf(nodes string) domain.Graph {
	return domain.Graph{Nodes: json.RawMessage(nodes), Edges: json.RawMessage(`[]`)}
}

func TestReconcilerCoalescesBurst(t *testing.T) {
	mock := clock.NewMock()
	store := &recordingStore{}
	rec := NewReconciler(store, ReconcilerConfig{Debounce: 2 * time.Second, Clock: mock})

	for i, nodes := range []string{`[1]`, `[1,2]`, `[1,2,3]`} {
		if err := rec.Push("ws", graphOf(nodes)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
		mock.Add(time.Second) // inside the quiet window
	}
	if n := len(store.upserts()); n != 0 {
		t.Fatalf("write happened before the window closed: %d", n)
	}

	mock.Add(time.Second)
	waitFor(t, "debounced write", func() bool { return len(store.upserts()) == 1 })

	call := store.upserts()[0]
	if call.workspaceID != "ws" || string(call.graph.Nodes) != `[1,2,3]` {
		t.Fatalf("unexpected write %+v", call)
	}
	if rec.Pending() != 0 {
		t.Fatalf("timer slot not cleared, pending=%d", rec.Pending())
	}

	mock.Add(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if n := len(store.upserts()); n != 1 {
		t.Fatalf("expected exactly one write, got %d", n)
	}
}

func TestReconcilerSpacedPushesWriteEach(t *testing.T) {
	mock := clock.NewMock()
	store := &recordingStore{}
	rec := NewReconciler(store, ReconcilerConfig{Debounce: 2 * time.Second, Clock: mock})

	_ = rec.Push("ws", graphOf(`[1]`))
	mock.Add(3 * time.Second)
	waitFor(t, "first write", func() bool { return len(store.upserts()) == 1 })

	_ = rec.Push("ws", graphOf(`[2]`))
	mock.Add(3 * time.Second)
	waitFor(t, "second write", func() bool { return len(store.upserts()) == 2 })

	if got := string(store.upserts()[1].graph.Nodes); got != `[2]` {
		t.Fatalf("second write nodes = %s", got)
	}
}

func TestReconcilerWorkspacesAreIndependent(t *testing.T) {
	mock := clock.NewMock()
	store := &recordingStore{}
	rec := NewReconciler(store, ReconcilerConfig{Debounce: 2 * time.Second, Clock: mock})

	_ = rec.Push("ws-1", graphOf(`[1]`))
	mock.Add(time.Second)
	_ = rec.Push("ws-2", graphOf(`[2]`))
	mock.Add(time.Second)

	waitFor(t, "ws-1 write", func() bool { return len(store.upserts()) == 1 })
	if got := store.upserts()[0].workspaceID; got != "ws-1" {
		t.Fatalf("first write for %s", got)
	}
	mock.Add(time.Second)
	waitFor(t, "ws-2 write", func() bool { return len(store.upserts()) == 2 })
}

func TestReconcilerFailureIsNotRetried(t *testing.T) {
	mock := clock.NewMock()
	store := &recordingStore{err: errors.New("db down")}
	rec := NewReconciler(store, ReconcilerConfig{Debounce: time.Second, Clock: mock})

	_ = rec.Push("ws", graphOf(`[1]`))
	mock.Add(time.Second)
	waitFor(t, "failed write", func() bool { return len(store.upserts()) == 1 })

	mock.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)
	if n := len(store.upserts()); n != 1 {
		t.Fatalf("failed write was retried: %d calls", n)
	}
	if rec.Pending() != 0 {
		t.Fatal("failed write must not re-arm the timer")
	}
}

func TestReconcilerMissingWorkspaceIsCreated(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	store := memstore.New()
	rec := NewReconciler(store, ReconcilerConfig{Clock: mock})
	svc := NewWorkspaceService(store, rec)

	snap, err := svc.Get(ctx, "missing-id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Name != domain.DefaultWorkspaceName || string(snap.Nodes) != `[]` {
		t.Fatalf("unexpected default workspace %+v", snap)
	}
	if store.Len() != 0 {
		t.Fatal("reading an absent workspace must not persist it")
	}

	if err := svc.Save("missing-id", graphOf(`[{"id":"n1"}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	mock.Add(DefaultDebounce)
	waitFor(t, "upsert", func() bool { return store.Len() == 1 })

	snap, err = store.Get(ctx, "missing-id")
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if string(snap.Nodes) != `[{"id":"n1"}]` || !snap.LastUpdated.Equal(mock.Now()) {
		t.Fatalf("unexpected record %+v", snap)
	}
}

func TestReconcilerCloseFlushes(t *testing.T) {
	mock := clock.NewMock()
	store := &recordingStore{}
	rec := NewReconciler(store, ReconcilerConfig{Debounce: time.Hour, Clock: mock})

	_ = rec.Push("ws-1", graphOf(`[1]`))
	_ = rec.Push("ws-2", graphOf(`[2]`))

	if err := rec.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := len(store.upserts()); n != 2 {
		t.Fatalf("expected 2 flushed writes, got %d", n)
	}
	if err := rec.Push("ws-1", graphOf(`[3]`)); !errors.Is(err, ErrReconcilerClosed) {
		t.Fatalf("push after close: %v", err)
	}

	mock.Add(2 * time.Hour)
	time.Sleep(20 * time.Millisecond)
	if n := len(store.upserts()); n != 2 {
		t.Fatalf("stopped timers fired after close: %d writes", n)
	}
}

func TestReconcilerRejectsEmptyWorkspace(t *testing.T) {
	rec := NewReconciler(&recordingStore{}, ReconcilerConfig{Clock: clock.NewMock()})
	if err := rec.Push("", domain.EmptyGraph()); !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestReconcilerRefusesIncompleteGraph(t *testing.T) {
	ctx := context.Background()
	mock := clock.NewMock()
	store := memstore.New()
	seeded := domain.Graph{Nodes: json.RawMessage(`[{"id":"n1"}]`), Edges: json.RawMessage(`[]`)}
	_ = store.Upsert(ctx, "ws-1", seeded, mock.Now())
	rec := NewReconciler(store, ReconcilerConfig{Clock: mock})

	for _, g := range []domain.Graph{
		{},
		{Nodes: json.RawMessage(`[]`)},
		{Edges: json.RawMessage(`[]`)},
		{Nodes: json.RawMessage(`null`), Edges: json.RawMessage(`[]`)},
	} {
		if err := rec.Push("ws-1", g); !errors.Is(err, domain.ErrMalformedPayload) {
			t.Fatalf("push %+v: expected ErrMalformedPayload, got %v", g, err)
		}
	}
	if rec.Pending() != 0 {
		t.Fatalf("refused push armed a timer")
	}

	mock.Add(DefaultDebounce)
	snap, _ := store.Get(ctx, "ws-1")
	if string(snap.Nodes) != `[{"id":"n1"}]` {
		t.Fatalf("stored nodes changed to %s", snap.Nodes)
	}
}

func TestReconcilerDiscard(t *testing.T) {
	mock := clock.NewMock()
	store := &recordingStore{}
	rec := NewReconciler(store, ReconcilerConfig{Debounce: time.Second, Clock: mock})

	_ = rec.Push("ws-1", graphOf(`[1]`))
	_ = rec.Push("ws-2", graphOf(`[2]`))
	if !rec.Discard("ws-1") {
		t.Fatal("discard of a pending workspace reported nothing")
	}
	if rec.Discard("ws-1") {
		t.Fatal("second discard reported a pending write")
	}

	mock.Add(time.Second)
	waitFor(t, "ws-2 write", func() bool { return len(store.upserts()) == 1 })
	time.Sleep(20 * time.Millisecond)
	if calls := store.upserts(); len(calls) != 1 || calls[0].workspaceID != "ws-2" {
		t.Fatalf("unexpected writes %+v", calls)
	}
}
