package backendadapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfigPopulatesTypedFields(t *testing.T) {
	cfg, err := DecodeConfig(map[string]any{
		"type":    "s3",
		"bucket":  "my-states",
		"key":     "prod/terraform.tfstate",
		"region":  "us-east-1",
		"profile": "default",
	})
	require.NoError(t, err)
	assert.Equal(t, KindS3, cfg.Type)
	assert.Equal(t, "my-states", cfg.Bucket)
	assert.Equal(t, "prod/terraform.tfstate", cfg.Key)
	assert.Equal(t, "us-east-1", cfg.Region)
}

func TestDecodeConfigPopulatesLocalPath(t *testing.T) {
	cfg, err := DecodeConfig(map[string]any{"type": "local", "path": "/tmp/x.tfstate"})
	require.NoError(t, err)
	assert.Equal(t, KindLocal, cfg.Type)
	assert.Equal(t, "/tmp/x.tfstate", cfg.Path)
}

func TestDecodeConfigMissingTypeIsError(t *testing.T) {
	_, err := DecodeConfig(map[string]any{"bucket": "my-states"})
	require.Error(t, err)
}

func TestDecodeConfigRejectsUnknownFields(t *testing.T) {
	_, err := DecodeConfig(map[string]any{
		"type":          "local",
		"path":          "/tmp/x.tfstate",
		"not_a_field":   "surprise",
		"another_bogus": 1,
	})
	require.Error(t, err)
}

func TestBackendErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := newError(ErrTransport, "read failed: %w", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}
