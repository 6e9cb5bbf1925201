package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ShreyaaMaityy/SyncFlow/internal/domain"
	"github.com/ShreyaaMaityy/SyncFlow/internal/service"
	"github.com/ShreyaaMaityy/SyncFlow/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

const (
	maxSaveBody   = 8 << 20
	maxRenameBody = 4 << 10
)

type WorkspaceSvc interface {
	Get(ctx context.Context, workspaceID string) (*domain.Snapshot, error)
	Save(workspaceID string, g domain.Graph) error
	Rename(ctx context.Context, workspaceID, name string) (*domain.Snapshot, error)
	Delete(ctx context.Context, workspaceID string) error
}

type Handler struct {
	workspaces WorkspaceSvc
}

func NewHandler(workspaces WorkspaceSvc) *Handler {
	return &Handler{workspaces: workspaces}
}

// GET /api/workspaces/{id}
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := h.workspaces.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "handler.GetWorkspace", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toWorkspaceResponse(snap))
}

// POST /api/workspaces/{id}/save
func (h *Handler) SaveWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SaveWorkspaceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSaveBody)).Decode(&req); err != nil {
		httputil.L(r.Context()).Warn("handler.SaveWorkspace.Decode", "err", err)
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.workspaces.Save(id, domain.Graph{Nodes: req.Nodes, Edges: req.Edges}); err != nil {
		h.fail(w, r, "handler.SaveWorkspace", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, SaveWorkspaceResponse{WorkspaceID: id, Status: "queued"})
}

// PUT /api/workspaces/{id}
func (h *Handler) RenameWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RenameWorkspaceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRenameBody)).Decode(&req); err != nil {
		httputil.L(r.Context()).Warn("handler.RenameWorkspace.Decode", "err", err)
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	snap, err := h.workspaces.Rename(r.Context(), id, req.Name)
	if err != nil {
		h.fail(w, r, "handler.RenameWorkspace", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toWorkspaceResponse(snap))
}

// DELETE /api/workspaces/{id}
func (h *Handler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.workspaces.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "handler.DeleteWorkspace", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DeleteWorkspaceResponse{WorkspaceID: id, Status: "deleted"})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFromError(err)
	if status >= http.StatusInternalServerError {
		httputil.L(r.Context()).Error(op, "err", err)
	}
	httputil.Error(w, status, err.Error())
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWorkspaceNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrReconcilerClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
