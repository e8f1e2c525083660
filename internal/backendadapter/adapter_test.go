package backendadapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchUnsupportedKind(t *testing.T) {
	_, err := Fetch(context.Background(), &Config{Type: "bogus"}, nil)
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, ErrUnsupported, backendErr.Kind)
}

// TestFetchSurfacesTimeoutAsBackendError shrinks fetchTimeout to the point
// that it has already lapsed before the remote adapter issues its request,
// so http.Client.Do fails fast with a wrapped context.DeadlineExceeded
// without needing to actually reach a slow backend.
func TestFetchSurfacesTimeoutAsBackendError(t *testing.T) {
	orig := fetchTimeout
	fetchTimeout = time.Nanosecond
	t.Cleanup(func() { fetchTimeout = orig })

	cfg := &Config{Type: KindRemote, Organization: "acme", Workspace: "prod", Token: "tok", Hostname: "example.invalid"}
	_, err := Fetch(context.Background(), cfg, nil)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, ErrTimeout, backendErr.Kind)
}
