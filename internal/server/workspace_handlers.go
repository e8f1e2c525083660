package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/ilyafedotov-ops/tfstatectl/internal/workspace"
)

// WorkspaceHandlers dispatches the /state/workspaces surface (spec §6.2) onto
// the Workspace Comparator's Service.
type WorkspaceHandlers struct {
	Service *workspace.Service
}

type createWorkspaceRequest struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

func toWorkspaceResponse(ws *models.Workspace) map[string]any {
	return map[string]any{"id": ws.ID, "project_id": ws.ProjectID, "name": ws.Name, "created_at": ws.CreatedAt}
}

// CreateWorkspace implements POST /state/workspaces.
func (h *WorkspaceHandlers) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "project_id and name are required"})
		return
	}
	ws, err := h.Service.CreateWorkspace(r.Context(), req.ProjectID, req.Name)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkspaceResponse(ws))
}

// ListWorkspaces implements GET /state/workspaces?project_id=.
func (h *WorkspaceHandlers) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "project_id is required"})
		return
	}
	rows, err := h.Service.ListWorkspaces(r.Context(), projectID)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, ws := range rows {
		out = append(out, toWorkspaceResponse(ws))
	}
	writeJSON(w, http.StatusOK, out)
}

type setVariableRequest struct {
	Key       string `json:"key"`
	Value     any    `json:"value"`
	Sensitive bool   `json:"sensitive"`
}

// SetVariable implements PUT /state/workspaces/{id}/variables.
func (h *WorkspaceHandlers) SetVariable(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "id")
	var req setVariableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "key is required"})
		return
	}
	v, err := h.Service.SetVariable(r.Context(), workspaceID, req.Key, req.Value, req.Sensitive)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": v.ID, "key": v.Key, "sensitive": v.Sensitive})
}

// ListVariables implements GET /state/workspaces/{id}/variables.
func (h *WorkspaceHandlers) ListVariables(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "id")
	rows, err := h.Service.ListVariables(r.Context(), workspaceID)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, v := range rows {
		entry := map[string]any{"id": v.ID, "key": v.Key, "sensitive": v.Sensitive}
		if !v.Sensitive {
			entry["value"] = v.Value.V
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

type compareRequest struct {
	ProjectID    string   `json:"project_id"`
	WorkspaceAID string   `json:"workspace_a_id"`
	WorkspaceBID string   `json:"workspace_b_id"`
	Types        []string `json:"types"`
	InfoKeys     []string `json:"info_keys"`
}

// Compare implements POST /state/workspaces/compare.
func (h *WorkspaceHandlers) Compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	types := make([]workspace.ComparisonType, 0, len(req.Types))
	for _, t := range req.Types {
		types = append(types, workspace.ComparisonType(t))
	}
	if len(types) == 0 {
		types = []workspace.ComparisonType{workspace.TypeVariables, workspace.TypeState, workspace.TypeConfig}
	}

	comparison, err := h.Service.Compare(r.Context(), req.ProjectID, req.WorkspaceAID, req.WorkspaceBID, types, req.InfoKeys)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}
