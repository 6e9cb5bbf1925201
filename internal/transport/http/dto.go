package http

import (
	"encoding/json"
	"time"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
)

type WorkspaceResponse struct {
	WorkspaceID string          `json:"workspaceId"`
	Name        string          `json:"name"`
	Nodes       json.RawMessage `json:"nodes"`
	Edges       json.RawMessage `json:"edges"`
	LastUpdated *time.Time      `json:"lastUpdated,omitempty"`
}

func toWorkspaceResponse(s *domain.Snapshot) WorkspaceResponse {
	g := s.Graph().Normalize()
	resp := WorkspaceResponse{
		WorkspaceID: s.WorkspaceID,
		Name:        s.Name,
		Nodes:       g.Nodes,
		Edges:       g.Edges,
	}
	if !s.LastUpdated.IsZero() {
		t := s.LastUpdated
		resp.LastUpdated = &t
	}
	return resp
}

type SaveWorkspaceRequest struct {
	Nodes json.RawMessage `json:"nodes"`
	Edges json.RawMessage `json:"edges"`
}

type SaveWorkspaceResponse struct {
	WorkspaceID string `json:"workspaceId"`
	Status      string `json:"status"`
}

type RenameWorkspaceRequest struct {
	Name string `json:"name"`
}

type DeleteWorkspaceResponse struct {
	WorkspaceID string `json:"workspaceId"`
	Status      string `json:"status"`
}
