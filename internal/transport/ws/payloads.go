package ws

import "encoding/json"

type joinPayload struct {
	WorkspaceID   string `json:"workspaceId"`
	ParticipantID string `json:"participantId"`
}

// routed is embedded by every inbound payload that may name its workspace.
type routed struct {
	WorkspaceID string `json:"workspaceId"`
}

type nodesPayload struct {
	routed
	Nodes json.RawMessage `json:"nodes"`
}

type edgesPayload struct {
	routed
	Edges json.RawMessage `json:"edges"`
}

type newEdgePayload struct {
	routed
	Params json.RawMessage `json:"params"`
}

type edgeIDsPayload struct {
	routed
	EdgeIDs json.RawMessage `json:"edgeIds"`
}

type nodeIDsPayload struct {
	routed
	NodeIDs json.RawMessage `json:"nodeIds"`
}

// chatPayload holds what routing needs; the rest of the message is opaque.
type chatPayload struct {
	routed
	Text string `json:"text"`
}

type savePayload struct {
	routed
	Nodes json.RawMessage `json:"nodes"`
	Edges json.RawMessage `json:"edges"`
}
