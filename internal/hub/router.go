package hub

import (
	"log/slog"
)

// Router fans events out to the members of a room.
type Router struct {
	reg *Registry
}

func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg}
}

func (rt *Router) MembersOf(workspaceID string) []Conn {
	return rt.reg.Members(workspaceID)
}

// Broadcast delivers event to every member of the room except exclude.
// An empty exclude delivers to everyone, the sender included. Members are
// copied under the registry lock and written to without holding it.
// It returns the number of connections the event was queued for.
func (rt *Router) Broadcast(workspaceID, event string, payload any, exclude string) int {
	members := rt.reg.Members(workspaceID)
	if len(members) == 0 {
		return 0
	}

	data, err := Encode(event, payload)
	if err != nil {
		slog.Error("broadcast: encode failed", "workspace", workspaceID, "event", event, "err", err)
		return 0
	}

	sent := 0
	for _, c := range members {
		if exclude != "" && c.ID() == exclude {
			continue
		}
		if err := c.Send(data); err != nil {
			slog.Debug("broadcast: send failed",
				"workspace", workspaceID, "event", event, "conn", c.ID(), "err", err)
			continue
		}
		sent++
	}
	return sent
}
