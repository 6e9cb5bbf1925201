package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestGraphNormalize(t *testing.T) {
	g := Graph{Nodes: json.RawMessage(`null`)}.Normalize()
	if string(g.Nodes) != "[]" || string(g.Edges) != "[]" {
		t.Fatalf("expected empty arrays, got nodes=%s edges=%s", g.Nodes, g.Edges)
	}

	in := json.RawMessage(`[{"id":"n1"}]`)
	if got := (Graph{Nodes: in, Edges: in}).Normalize(); string(got.Nodes) != string(in) {
		t.Fatalf("normalize must not touch present arrays, got %s", got.Nodes)
	}
}

func TestGraphValidate(t *testing.T) {
	tests := []struct {
		name    string
		nodes   string
		edges   string
		wantErr bool
	}{
		{"valid", `[{"id":"1","type":"clientNode","position":{"x":1,"y":2},"data":{"label":"Web"}}]`, `[{"id":"e1","source":"1","target":"2"}]`, false},
		{"dangling edge is allowed", `[]`, `[{"id":"e1","source":"x","target":"y"}]`, false},
		{"duplicate ids are the editor's concern", `[{"id":"1"},{"id":"1"}]`, `[]`, false},
		{"string coordinates are kept", `[{"id":"1","position":{"x":"10","y":"20"}}]`, `[]`, false},
		{"missing nodes", ``, `[]`, true},
		{"missing edges", `[{"id":"1"}]`, ``, true},
		{"null edges", `[]`, `null`, true},
		{"nodes not an array", `{"id":"1"}`, `[]`, true},
		{"truncated array", `[{"id":"1"}`, `[]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Graph{Nodes: json.RawMessage(tt.nodes), Edges: json.RawMessage(tt.edges)}.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPayload) {
					t.Fatalf("expected ErrMalformedPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAIPrompt(t *testing.T) {
	tests := []struct {
		text    string
		command bool
		prompt  string
	}{
		{"@ai draw a client-server system", true, "draw a client-server system"},
		{"@ai   hello  ", true, "hello"},
		{"hello @ai", false, ""},
		{" @ai leading space", false, ""},
	}
	for _, tt := range tests {
		if got := IsAICommand(tt.text); got != tt.command {
			t.Fatalf("IsAICommand(%q) = %v, want %v", tt.text, got, tt.command)
		}
		if tt.command {
			if got := AIPrompt(tt.text); got != tt.prompt {
				t.Fatalf("AIPrompt(%q) = %q, want %q", tt.text, got, tt.prompt)
			}
		}
	}
}
