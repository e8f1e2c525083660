package statestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
)

func sampleResources() []*models.ResourceInstance {
	aws := "registry.terraform.io/hashicorp/aws"
	return []*models.ResourceInstance{
		{Address: "aws_s3_bucket.data", Type: "aws_s3_bucket", Mode: "managed", Provider: &aws},
		{Address: "aws_instance.worker", Type: "aws_instance", Mode: "managed", Provider: &aws},
		{Address: "data.aws_ami.latest", Type: "aws_ami", Mode: "data", Provider: &aws},
	}
}

func TestFilterResourcesEmptyExpressionIsNoOp(t *testing.T) {
	out, err := filterResources(sampleResources(), "")
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestFilterResourcesByType(t *testing.T) {
	out, err := filterResources(sampleResources(), `type == "aws_instance"`)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "aws_instance.worker", out[0].Address)
}

func TestFilterResourcesByModeAndProvider(t *testing.T) {
	out, err := filterResources(sampleResources(), `mode == "managed" and provider contains "aws"`)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestFilterResourcesInvalidExpression(t *testing.T) {
	_, err := filterResources(sampleResources(), `type ===`)
	require.Error(t, err)
}

func TestFilterResourcesNoMatches(t *testing.T) {
	out, err := filterResources(sampleResources(), `type == "azurerm_storage_account"`)
	require.NoError(t, err)
	assert.Empty(t, out)
}
