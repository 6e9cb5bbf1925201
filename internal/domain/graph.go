package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const DefaultWorkspaceName = "Untitled Workspace"

// Graph holds nodes and edges as the raw JSON arrays clients sent.
type Graph struct {
	Nodes json.RawMessage `json:"nodes"`
	Edges json.RawMessage `json:"edges"`
}

var emptyArray = json.RawMessage(`[]`)

// EmptyGraph returns a graph with empty node and edge arrays.
func EmptyGraph() Graph {
	return Graph{Nodes: emptyArray, Edges: emptyArray}
}

// Normalize replaces missing or null arrays with empty ones.
func (g Graph) Normalize() Graph {
	if isNull(g.Nodes) {
		g.Nodes = emptyArray
	}
	if isNull(g.Edges) {
		g.Edges = emptyArray
	}
	return g
}

// Validate checks that nodes and edges were both sent as JSON arrays.
// Element shape is the editor's business and is not inspected.
func (g Graph) Validate() error {
	if !isArray(g.Nodes) {
		return fmt.Errorf("%w: nodes must be an array", ErrMalformedPayload)
	}
	if !isArray(g.Edges) {
		return fmt.Errorf("%w: edges must be an array", ErrMalformedPayload)
	}
	return nil
}

// Snapshot is the persisted state of one workspace.
type Snapshot struct {
	WorkspaceID string          `json:"workspaceId"`
	Name        string          `json:"name"`
	Nodes       json.RawMessage `json:"nodes"`
	Edges       json.RawMessage `json:"edges"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// NewSnapshot returns the empty workspace served when the store has none.
func NewSnapshot(workspaceID string) *Snapshot {
	g := EmptyGraph()
	return &Snapshot{
		WorkspaceID: workspaceID,
		Name:        DefaultWorkspaceName,
		Nodes:       g.Nodes,
		Edges:       g.Edges,
	}
}

func (s *Snapshot) Graph() Graph {
	return Graph{Nodes: s.Nodes, Edges: s.Edges}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '[' && json.Valid(trimmed)
}

// Present reports whether a raw field was sent with a non-null value.
func Present(raw json.RawMessage) bool {
	return !isNull(raw)
}
