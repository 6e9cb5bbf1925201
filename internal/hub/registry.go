// Package hub tracks live connections and the workspace rooms they joined.
package hub

import (
	"sort"
	"sync"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
)

// Conn is a live client connection. Send must not block on network I/O.
type Conn interface {
	ID() string
	Send(data []byte) error
}

type entry struct {
	conn    Conn
	binding domain.Binding
	seq     uint64 // join order, keeps rosters stable
}

// Registry owns the connection table and the room index behind one lock.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*entry
	rooms map[string]map[string]*entry // workspaceID -> connID -> entry
	seq   uint64
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*entry),
		rooms: make(map[string]map[string]*entry),
	}
}

func (r *Registry) Register(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.ID()]; ok {
		return
	}
	r.conns[c.ID()] = &entry{conn: c}
}

// Bind attaches a registered connection to a workspace. Rebinding moves the
// connection out of its previous room; the previous binding is returned.
func (r *Registry) Bind(connID, workspaceID, participantID string) (domain.Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return domain.Binding{}, domain.ErrUnknownConnection
	}

	prev := e.binding
	if prev.Joined() {
		r.leaveLocked(connID, prev.WorkspaceID)
	}

	r.seq++
	e.seq = r.seq
	e.binding = domain.Binding{WorkspaceID: workspaceID, ParticipantID: participantID}

	room, ok := r.rooms[workspaceID]
	if !ok {
		room = make(map[string]*entry)
		r.rooms[workspaceID] = room
	}
	room[connID] = e

	return prev, nil
}

// Unregister forgets the connection and returns its binding, if it had one.
func (r *Registry) Unregister(connID string) (domain.Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return domain.Binding{}, false
	}
	delete(r.conns, connID)

	if !e.binding.Joined() {
		return domain.Binding{}, false
	}
	r.leaveLocked(connID, e.binding.WorkspaceID)
	return e.binding, true
}

func (r *Registry) leaveLocked(connID, workspaceID string) {
	room, ok := r.rooms[workspaceID]
	if !ok {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, workspaceID)
	}
}

func (r *Registry) Binding(connID string) (domain.Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok {
		return domain.Binding{}, false
	}
	return e.binding, true
}

// Members returns a copy of the room's connections in join order.
func (r *Registry) Members(workspaceID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.sortedLocked(workspaceID)
	out := make([]Conn, len(entries))
	for i, e := range entries {
		out[i] = e.conn
	}
	return out
}

// Roster returns one presence entry per joined connection, in join order.
func (r *Registry) Roster(workspaceID string) []domain.PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.sortedLocked(workspaceID)
	out := make([]domain.PresenceEntry, len(entries))
	for i, e := range entries {
		out[i] = domain.PresenceEntry{
			ParticipantID: e.binding.ParticipantID,
			ConnectionID:  e.conn.ID(),
		}
	}
	return out
}

func (r *Registry) sortedLocked(workspaceID string) []*entry {
	room := r.rooms[workspaceID]
	entries := make([]*entry, 0, len(room))
	for _, e := range room {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	return entries
}

// Stats returns the number of live connections and non-empty rooms.
func (r *Registry) Stats() (conns, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns), len(r.rooms)
}
