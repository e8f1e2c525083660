package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ilyafedotov-ops/tfstatectl/internal/backendadapter"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/ilyafedotov-ops/tfstatectl/internal/planstore"
	"github.com/ilyafedotov-ops/tfstatectl/internal/statestore"
)

// StateHandlers dispatches the /state HTTP surface (spec §6.2) onto the
// State Engine's Service.
type StateHandlers struct {
	Service *statestore.Service
	Plans   *planstore.Service
}

type importRequest struct {
	ProjectID   string         `json:"project_id"`
	ProjectSlug string         `json:"project_slug"`
	Workspace   string         `json:"workspace"`
	Backend     map[string]any `json:"backend"`
}

type snapshotSummary struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"project_id"`
	Workspace        string    `json:"workspace"`
	BackendType      string    `json:"backend_type"`
	Serial           int64     `json:"serial"`
	TerraformVersion string    `json:"terraform_version"`
	Lineage          string    `json:"lineage"`
	ResourceCount    int       `json:"resource_count"`
	OutputCount      int       `json:"output_count"`
	SizeBytes        int64     `json:"size_bytes"`
	Checksum         string    `json:"checksum"`
	ImportedAt       time.Time `json:"imported_at"`
}

func toSnapshotSummary(s *models.StateSnapshot) snapshotSummary {
	return snapshotSummary{
		ID:               s.ID,
		ProjectID:        s.ProjectID,
		Workspace:        s.Workspace,
		BackendType:      s.BackendType,
		Serial:           s.Serial,
		TerraformVersion: s.TerraformVersion,
		Lineage:          s.Lineage,
		ResourceCount:    s.ResourceCount,
		OutputCount:      s.OutputCount,
		SizeBytes:        s.SizeBytes,
		Checksum:         s.Checksum,
		ImportedAt:       s.ImportedAt,
	}
}

// resolveProjectID treats project_slug as an alias for project_id — this
// deployment has no separate Projects table, so the caller-supplied slug
// and id occupy the same namespace.
func resolveProjectID(id, slug string) string {
	if id != "" {
		return id
	}
	return slug
}

// Import implements POST /state/import.
func (h *StateHandlers) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	projectID := resolveProjectID(req.ProjectID, req.ProjectSlug)
	if projectID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "project_id or project_slug is required"})
		return
	}

	backendCfg, err := backendadapter.DecodeConfig(req.Backend)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	snapshot, err := h.Service.Import(r.Context(), projectID, req.Workspace, backendCfg, req.Backend, nil)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSnapshotSummary(snapshot))
}

// List implements GET /state?project_id|project_slug&workspace?.
func (h *StateHandlers) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	projectID := resolveProjectID(query.Get("project_id"), query.Get("project_slug"))
	if projectID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "project_id or project_slug is required"})
		return
	}
	var workspace *string
	if v := query.Get("workspace"); v != "" {
		workspace = &v
	}

	snapshots, err := h.Service.List(r.Context(), projectID, workspace)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	out := make([]snapshotSummary, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, toSnapshotSummary(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get implements GET /state/{id}?include_snapshot=false.
func (h *StateHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	includeSnapshot := r.URL.Query().Get("include_snapshot") != "false"

	snapshot, err := h.Service.Get(r.Context(), id, includeSnapshot)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	if !includeSnapshot {
		writeJSON(w, http.StatusOK, toSnapshotSummary(snapshot))
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Resources implements GET /state/{id}/resources?limit&offset&filter.
// filter is a bexpr expression over address/type/mode/name/provider, e.g.
// `type == "aws_s3_bucket"`.
func (h *StateHandlers) Resources(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	filter := r.URL.Query().Get("filter")

	resources, err := h.Service.Resources(r.Context(), id, limit, offset, filter)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

// Outputs implements GET /state/{id}/outputs.
func (h *StateHandlers) Outputs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	outputs, err := h.Service.Outputs(r.Context(), id)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, outputs)
}

// Export implements GET /state/{id}/export: the full canonical state
// document as stored (the imported object re-serialized with sorted keys).
func (h *StateHandlers) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snapshot, err := h.Service.Get(r.Context(), id, true)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=\"state.json\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(snapshot.CanonicalJSON))
}

type driftPlanRequest struct {
	Plan         map[string]any `json:"plan"`
	RecordResult bool           `json:"record_result"`
}

type driftResponse struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Workspace    string    `json:"workspace"`
	Method       string    `json:"method"`
	Added        int       `json:"added"`
	Modified     int       `json:"modified"`
	Destroyed    int       `json:"destroyed"`
	TotalDrifted int       `json:"total_drifted"`
	CreatedAt    time.Time `json:"created_at"`
}

// DriftPlan implements POST /state/{id}/drift/plan.
func (h *StateHandlers) DriftPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snapshot, err := h.Service.Get(r.Context(), id, true)
	if err != nil {
		writeError(w, r, "", err)
		return
	}

	var req driftPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	record, err := h.Service.DetectDrift(r.Context(), snapshot.ProjectID, snapshot.Workspace, snapshot, req.Plan, "plan_comparison")
	if err != nil {
		writeError(w, r, "", err)
		return
	}

	if req.RecordResult && h.Plans != nil {
		if _, err := h.Plans.Submit(r.Context(), snapshot.ProjectID, snapshot.Workspace, &snapshot.ID, req.Plan); err != nil {
			writeError(w, r, "", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, driftResponse{
		ID: record.ID, ProjectID: record.ProjectID, Workspace: record.Workspace, Method: record.Method,
		Added: record.Added, Modified: record.Modified, Destroyed: record.Destroyed,
		TotalDrifted: record.TotalDrifted, CreatedAt: record.CreatedAt,
	})
}

type removeRequest struct {
	Addresses []string `json:"addresses"`
}

// RemoveOperation implements POST /state/{id}/operations/remove.
func (h *StateHandlers) RemoveOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req removeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	snapshot, err := h.Service.RemoveAddresses(r.Context(), id, req.Addresses)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotSummary(snapshot))
}

type moveRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// MoveOperation implements POST /state/{id}/operations/move.
func (h *StateHandlers) MoveOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	snapshot, err := h.Service.MoveAddress(r.Context(), id, req.Source, req.Destination)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotSummary(snapshot))
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
