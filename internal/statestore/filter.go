package statestore

import (
	"fmt"

	"github.com/hashicorp/go-bexpr"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
)

// filterResources narrows a resource page by a boolean expression over the
// struct fields tagged `bexpr:"..."` on models.ResourceInstance, e.g.
// `type == "aws_s3_bucket"` or `mode == "managed" and provider contains "aws"`.
// An empty expression is a no-op.
func filterResources(resources []*models.ResourceInstance, expression string) ([]*models.ResourceInstance, error) {
	if expression == "" {
		return resources, nil
	}
	evaluator, err := bexpr.CreateEvaluator(expression)
	if err != nil {
		return nil, fmt.Errorf("compile resource filter: %w", err)
	}

	out := make([]*models.ResourceInstance, 0, len(resources))
	for _, r := range resources {
		matched, err := evaluator.Evaluate(r)
		if err != nil {
			return nil, fmt.Errorf("evaluate resource filter: %w", err)
		}
		if matched {
			out = append(out, r)
		}
	}
	return out, nil
}
