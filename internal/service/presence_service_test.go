package service

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
	"github.com/ShreyaaMaityy/SyncFlow/internal/hub"
)

func lastRoster(t *testing.T, c *recConn) []domain.PresenceEntry {
	t.Helper()
	frames := c.received()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Type == hub.EventUserListUpdate {
			var roster []domain.PresenceEntry
			if err := json.Unmarshal(frames[i].Payload, &roster); err != nil {
				t.Fatalf("decode roster: %v", err)
			}
			return roster
		}
	}
	t.Fatalf("%s got no roster update", c.id)
	return nil
}

func TestPresenceJoinAndLeave(t *testing.T) {
	r := newRoom()
	svc := NewPresenceService(r.reg, r.router)

	a, b := &recConn{id: "a"}, &recConn{id: "b"}
	r.reg.Register(a)
	r.reg.Register(b)

	if err := svc.Join("a", "ws-1", "alice"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := svc.Join("b", "ws-1", "bob"); err != nil {
		t.Fatalf("join b: %v", err)
	}

	// presence broadcasts include the joiner
	for _, c := range []*recConn{a, b} {
		if got := lastRoster(t, c); len(got) != 2 {
			t.Fatalf("%s roster = %+v, want 2 entries", c.id, got)
		}
	}

	a.reset()
	svc.Leave("b")

	if got := a.types(); len(got) != 2 || got[0] != hub.EventUserLeft || got[1] != hub.EventUserListUpdate {
		t.Fatalf("unexpected events after leave: %v", got)
	}
	roster := lastRoster(t, a)
	if len(roster) != 1 || roster[0] != (domain.PresenceEntry{ParticipantID: "alice", ConnectionID: "a"}) {
		t.Fatalf("roster after leave = %+v", roster)
	}
}

func TestPresenceRebindRefreshesOldRoom(t *testing.T) {
	r := newRoom()
	svc := NewPresenceService(r.reg, r.router)
	stay, mover := &recConn{id: "stay"}, &recConn{id: "mover"}
	r.reg.Register(stay)
	r.reg.Register(mover)

	_ = svc.Join("stay", "ws-1", "s")
	_ = svc.Join("mover", "ws-1", "m")
	stay.reset()

	if err := svc.Join("mover", "ws-2", "m"); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if got := lastRoster(t, stay); len(got) != 1 || got[0].ConnectionID != "stay" {
		t.Fatalf("old room roster = %+v", got)
	}
	if got := svc.Roster("ws-2"); len(got) != 1 || got[0].ConnectionID != "mover" {
		t.Fatalf("new room roster = %+v", got)
	}
}

func TestPresenceErrors(t *testing.T) {
	r := newRoom()
	svc := NewPresenceService(r.reg, r.router)

	if err := svc.Join("ghost", "ws-1", "x"); !errors.Is(err, domain.ErrUnknownConnection) {
		t.Fatalf("expected ErrUnknownConnection, got %v", err)
	}
	r.reg.Register(&recConn{id: "c"})
	if err := svc.Join("c", "", "x"); !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	svc.Leave("c") // never joined
	svc.Leave("c")
}

// stallingRouter records roster broadcasts and can hold the first one back
// until released.
type stallingRouter struct {
	mu      sync.Mutex
	rosters [][]domain.PresenceEntry
	armed   bool
	stalled chan struct{}
	release chan struct{}
}

func (r *stallingRouter) Broadcast(_, event string, payload any, _ string) int {
	if event != hub.EventUserListUpdate {
		return 0
	}
	r.mu.Lock()
	stall := r.armed
	r.armed = false
	r.mu.Unlock()

	if stall {
		close(r.stalled)
		<-r.release
	}

	r.mu.Lock()
	r.rosters = append(r.rosters, payload.([]domain.PresenceEntry))
	r.mu.Unlock()
	return 1
}

func (r *stallingRouter) last() []domain.PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rosters) == 0 {
		return nil
	}
	return r.rosters[len(r.rosters)-1]
}

func TestPresenceRostersAreDeliveredInOrder(t *testing.T) {
	reg := hub.NewRegistry()
	router := &stallingRouter{stalled: make(chan struct{}), release: make(chan struct{})}
	svc := NewPresenceService(reg, router)
	for _, id := range []string{"w", "x", "y"} {
		reg.Register(&recConn{id: id})
	}
	if err := svc.Join("w", "ws-1", "watcher"); err != nil {
		t.Fatalf("join w: %v", err)
	}

	router.mu.Lock()
	router.armed = true
	router.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = svc.Join("x", "ws-1", "xavier")
	}()
	<-router.stalled // x's roster is computed and held back
	go func() {
		defer wg.Done()
		_ = svc.Join("y", "ws-1", "yara")
	}()
	time.Sleep(50 * time.Millisecond) // let y race the held roster
	close(router.release)
	wg.Wait()

	want := reg.Roster("ws-1")
	got := router.last()
	if len(got) != len(want) || len(want) != 3 {
		t.Fatalf("last roster delivered = %+v, registry has %+v", got, want)
	}
}

func TestPresenceConcurrentChurnEndsConsistent(t *testing.T) {
	r := newRoom()
	svc := NewPresenceService(r.reg, r.router)
	watcher := &recConn{id: "watcher"}
	r.reg.Register(watcher)
	_ = svc.Join("watcher", "ws-1", "w")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		c := &recConn{id: id}
		r.reg.Register(c)
		wg.Add(1)
		go func(leave bool) {
			defer wg.Done()
			_ = svc.Join(id, "ws-1", "p-"+id)
			if leave {
				svc.Leave(id)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	got := lastRoster(t, watcher)
	want := svc.Roster("ws-1")
	if len(got) != len(want) || len(want) != 11 {
		t.Fatalf("watcher roster has %d entries, registry has %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
