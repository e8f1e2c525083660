package drift

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func planDoc(resourceChanges []any, plannedResources []any) map[string]any {
	return map[string]any{
		"resource_changes": resourceChanges,
		"planned_values": map[string]any{
			"root_module": map[string]any{
				"resources": plannedResources,
			},
		},
	}
}

func TestAnalyzeNoDrift(t *testing.T) {
	state := []string{"aws_s3_bucket.data"}
	plan := planDoc(nil, []any{map[string]any{"address": "aws_s3_bucket.data"}})

	summary := Analyze(state, plan)
	assert.Equal(t, 0, summary.StateOnlyResources)
	assert.Equal(t, 0, summary.PlanOnlyResources)
}

func TestAnalyzeStateOnlyAndPlanOnly(t *testing.T) {
	state := []string{"aws_s3_bucket.data", "aws_instance.gone"}
	plan := planDoc(nil, []any{
		map[string]any{"address": "aws_s3_bucket.data"},
		map[string]any{"address": "aws_instance.new"},
	})

	summary := Analyze(state, plan)
	assert.Equal(t, 1, summary.StateOnlyResources)
	assert.Equal(t, []string{"aws_instance.gone"}, summary.Details.StateOnly)
	assert.Equal(t, 1, summary.PlanOnlyResources)
	assert.Equal(t, []string{"aws_instance.new"}, summary.Details.PlanOnly)
}

func TestAnalyzeActionClassification(t *testing.T) {
	changes := []any{
		map[string]any{"change": map[string]any{"actions": []any{"create"}}},
		map[string]any{"change": map[string]any{"actions": []any{"delete"}}},
		map[string]any{"change": map[string]any{"actions": []any{"update"}}},
		map[string]any{"change": map[string]any{"actions": []any{"create", "delete"}}},
		map[string]any{"change": map[string]any{"actions": []any{"no-op"}}},
	}
	plan := planDoc(changes, nil)

	summary := Analyze(nil, plan)
	assert.Equal(t, 1, summary.ResourcesAdded)
	assert.Equal(t, 2, summary.ResourcesChanged, "update and the replace (create+delete) both count as changed")
	assert.Equal(t, 1, summary.ResourcesDestroyed)
}

func TestAnalyzeWalksChildModules(t *testing.T) {
	plan := map[string]any{
		"planned_values": map[string]any{
			"root_module": map[string]any{
				"resources": []any{},
				"child_modules": []any{
					map[string]any{
						"resources": []any{map[string]any{"address": "module.net.aws_vpc.main"}},
					},
				},
			},
		},
	}

	summary := Analyze(nil, plan)
	assert.Equal(t, []string{"module.net.aws_vpc.main"}, summary.Details.PlanOnly)
}

func TestAnalyzeCapsAddressListsAt100(t *testing.T) {
	state := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		state = append(state, fmt.Sprintf("aws_instance.worker_%d", i))
	}
	plan := planDoc(nil, nil)

	summary := Analyze(state, plan)
	assert.Len(t, summary.Details.StateOnly, 100)
	assert.Equal(t, 150, summary.StateOnlyResources, "the count is uncapped even though the detail list is")
}

func TestAnalyzeMalformedPlanIsTreatedAsEmpty(t *testing.T) {
	summary := Analyze([]string{"aws_s3_bucket.data"}, map[string]any{"resource_changes": "not-a-list"})
	assert.Equal(t, 1, summary.StateOnlyResources)
	assert.Equal(t, 0, summary.ResourcesAdded)
}
