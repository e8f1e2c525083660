package backendadapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchLocalReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terraform.tfstate")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":4}`), 0o600))

	result, err := FetchLocal(context.Background(), &Config{Type: KindLocal, Path: path})
	require.NoError(t, err)
	assert.Equal(t, "local", result.BackendTag)
	assert.Equal(t, int64(len(`{"version":4}`)), result.SizeBytes)
	assert.Equal(t, `{"version":4}`, string(result.RawBytes))
}

func TestFetchLocalMissingFileIsNotFound(t *testing.T) {
	_, err := FetchLocal(context.Background(), &Config{Type: KindLocal, Path: filepath.Join(t.TempDir(), "missing.tfstate")})
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, ErrNotFound, backendErr.Kind)
}

func TestFetchLocalEmptyPathIsConfigurationError(t *testing.T) {
	_, err := FetchLocal(context.Background(), &Config{Type: KindLocal})
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, ErrConfiguration, backendErr.Kind)
}

func TestFetchLocalDirectoryIsNotFound(t *testing.T) {
	_, err := FetchLocal(context.Background(), &Config{Type: KindLocal, Path: t.TempDir()})
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, ErrNotFound, backendErr.Kind)
}

func TestFetchDispatchesUnsupportedKind(t *testing.T) {
	_, err := Fetch(context.Background(), &Config{Type: Kind("ftp")}, nil)
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, ErrUnsupported, backendErr.Kind)
}

func TestFetchDispatchesLocalKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terraform.tfstate")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	result, err := Fetch(context.Background(), &Config{Type: KindLocal, Path: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, "local", result.BackendTag)
}
