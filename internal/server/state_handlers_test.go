package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
)

func rawStateJSON(t *testing.T, resources ...string) string {
	t.Helper()
	body := `{"terraform_version":"1.7.0","serial":1,"resources":[`
	for i, addr := range resources {
		if i > 0 {
			body += ","
		}
		body += `{"mode":"managed","type":"aws_instance","name":"` + addr + `","instances":[{"attributes":{}}]}`
	}
	body += `],"outputs":{"greeting":{"value":"hello","type":"string"}}}`
	return body
}

// writeLocalStateFile writes a state document to a temp file and returns a
// backend_config blob describing a local backend pointed at it, mirroring
// the shape importRequest.Backend expects on the wire.
func writeLocalStateFile(t *testing.T, resources ...string) map[string]any {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "terraform.tfstate")
	require.NoError(t, os.WriteFile(path, []byte(rawStateJSON(t, resources...)), 0o600))
	return map[string]any{"type": "local", "path": path}
}

func bearerFor(accessToken string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+accessToken) }
}

func importSnapshot(t *testing.T, env *testEnv, accessToken, projectID, workspace string, resources ...string) snapshotSummary {
	t.Helper()
	rec := doRequest(t, env, http.MethodPost, "/state/import", importRequest{
		ProjectID: projectID,
		Workspace: workspace,
		Backend:   writeLocalStateFile(t, resources...),
	}, bearerFor(accessToken))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var summary snapshotSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	return summary
}

func TestStateImportPersistsParsedDocument(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	bundle := env.issueBundle(t, user)

	summary := importSnapshot(t, env, bundle.AccessToken, "proj-1", "default", "a", "b")
	assert.Equal(t, "proj-1", summary.ProjectID)
	assert.Equal(t, 2, summary.ResourceCount)
	assert.Equal(t, 1, summary.OutputCount)
}

func TestStateImportRequiresWriteScope(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "viewer@example.com", "correct horse", "console:read", "state:read")
	bundle := env.issueBundle(t, user)

	rec := doRequest(t, env, http.MethodPost, "/state/import", importRequest{
		ProjectID: "proj-1",
		Workspace: "default",
		Backend:   writeLocalStateFile(t, "a"),
	}, bearerFor(bundle.AccessToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStateListFiltersByProjectAndWorkspace(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	bundle := env.issueBundle(t, user)

	importSnapshot(t, env, bundle.AccessToken, "proj-1", "default", "a")
	importSnapshot(t, env, bundle.AccessToken, "proj-1", "staging", "b")
	importSnapshot(t, env, bundle.AccessToken, "proj-2", "default", "c")

	rec := doRequest(t, env, http.MethodGet, "/state?project_id=proj-1", nil, bearerFor(bundle.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []snapshotSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = doRequest(t, env, http.MethodGet, "/state?project_id=proj-1&workspace=staging", nil, bearerFor(bundle.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	list = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "staging", list[0].Workspace)
}

func TestStateGetIncludesSnapshotByDefault(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	bundle := env.issueBundle(t, user)
	summary := importSnapshot(t, env, bundle.AccessToken, "proj-1", "default", "a")

	rec := doRequest(t, env, http.MethodGet, "/state/"+summary.ID, nil, bearerFor(bundle.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot models.StateSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.NotEmpty(t, snapshot.CanonicalJSON)
}

func TestStateGetUnknownIDIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	bundle := env.issueBundle(t, user)

	rec := doRequest(t, env, http.MethodGet, "/state/does-not-exist", nil, bearerFor(bundle.AccessToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStateResourcesAndOutputs(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	bundle := env.issueBundle(t, user)
	summary := importSnapshot(t, env, bundle.AccessToken, "proj-1", "default", "a", "b")

	rec := doRequest(t, env, http.MethodGet, "/state/"+summary.ID+"/resources", nil, bearerFor(bundle.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var resources []*models.ResourceInstance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resources))
	assert.Len(t, resources, 2)

	rec = doRequest(t, env, http.MethodGet, "/state/"+summary.ID+"/outputs", nil, bearerFor(bundle.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var outputs []*models.Output
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outputs))
	assert.Len(t, outputs, 1)
}

func TestStateExportReturnsCanonicalDocument(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	bundle := env.issueBundle(t, user)
	summary := importSnapshot(t, env, bundle.AccessToken, "proj-1", "default", "a")

	rec := doRequest(t, env, http.MethodGet, "/state/"+summary.ID+"/export", nil, bearerFor(bundle.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "terraform_version")
}

func TestStateRemoveAndMoveOperations(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	bundle := env.issueBundle(t, user)
	summary := importSnapshot(t, env, bundle.AccessToken, "proj-1", "default", "a", "b")

	rec := doRequest(t, env, http.MethodPost, "/state/"+summary.ID+"/operations/move", moveRequest{
		Source:      "aws_instance.a",
		Destination: "aws_instance.renamed",
	}, bearerFor(bundle.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, env, http.MethodPost, "/state/"+summary.ID+"/operations/remove", removeRequest{
		Addresses: []string{"aws_instance.b"},
	}, bearerFor(bundle.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated snapshotSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 1, updated.ResourceCount)
}

func TestDriftPlanReportsChanges(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	bundle := env.issueBundle(t, user)
	summary := importSnapshot(t, env, bundle.AccessToken, "proj-1", "default", "a")

	rec := doRequest(t, env, http.MethodPost, "/state/"+summary.ID+"/drift/plan", driftPlanRequest{
		Plan: map[string]any{
			"resource_changes": []any{
				map[string]any{
					"address": "aws_instance.a",
					"change":  map[string]any{"actions": []any{"update"}},
				},
			},
		},
	}, bearerFor(bundle.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var drift driftResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &drift))
	assert.Equal(t, "proj-1", drift.ProjectID)
}
