package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/ilyafedotov-ops/tfstatectl/internal/planstore"
)

// PlanHandlers dispatches the /state/plans surface (spec §6.2, §6.4) onto
// the plan store.
type PlanHandlers struct {
	Service *planstore.Service
}

type submitPlanRequest struct {
	ProjectID  string         `json:"project_id"`
	Workspace  string         `json:"workspace"`
	SnapshotID string         `json:"snapshot_id"`
	Plan       map[string]any `json:"plan"`
}

type planSummary struct {
	ID                   string `json:"id"`
	ProjectID            string `json:"project_id"`
	Workspace            string `json:"workspace"`
	SnapshotID           string `json:"snapshot_id,omitempty"`
	ResourceChangesCount int    `json:"resource_changes_count"`
	CreatedAt            string `json:"created_at"`
}

func toPlanSummary(p *models.TerraformPlan) planSummary {
	summary := planSummary{
		ID:                   p.ID,
		ProjectID:            p.ProjectID,
		Workspace:            p.Workspace,
		ResourceChangesCount: p.ResourceChangesCount,
		CreatedAt:            p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if p.SnapshotID != nil {
		summary.SnapshotID = *p.SnapshotID
	}
	return summary
}

// Submit implements POST /state/plans: record a plan document independent
// of a drift comparison run.
func (h *PlanHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProjectID == "" || req.Workspace == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "project_id and workspace are required"})
		return
	}
	var snapshotID *string
	if req.SnapshotID != "" {
		snapshotID = &req.SnapshotID
	}
	plan, err := h.Service.Submit(r.Context(), req.ProjectID, req.Workspace, snapshotID, req.Plan)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanSummary(plan))
}

// List implements GET /state/plans?project_id&workspace?.
func (h *PlanHandlers) List(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "project_id is required"})
		return
	}
	var workspace *string
	if v := r.URL.Query().Get("workspace"); v != "" {
		workspace = &v
	}
	plans, err := h.Service.List(r.Context(), projectID, workspace)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	out := make([]planSummary, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanSummary(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get implements GET /state/plans/{id}, returning the raw plan document.
func (h *PlanHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	plan, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, "", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id": plan.ID, "project_id": plan.ProjectID, "workspace": plan.Workspace,
		"snapshot_id": plan.SnapshotID, "plan": plan.RawPlan.V,
		"resource_changes_count": plan.ResourceChangesCount, "created_at": plan.CreatedAt,
	})
}
