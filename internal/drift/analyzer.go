// Package drift implements the Drift Analyzer (C3): comparing a parsed
// state snapshot's resource addresses against a Terraform plan JSON
// document to surface additions, changes, and deletions.
package drift

import (
	"sort"
)

// Summary is the DriftSummary described in spec §4.3.
type Summary struct {
	StateResourceCount int
	PlanResourceCount  int
	ResourcesAdded     int
	ResourcesChanged   int
	ResourcesDestroyed int
	StateOnlyResources int
	PlanOnlyResources  int
	Details            Details
}

// Details is the capped detail blob persisted on DriftDetection.Detail.
type Details struct {
	StateOnly   []string       `json:"state_only"`
	PlanOnly    []string       `json:"plan_only"`
	PlanActions map[string]int `json:"plan_actions"`
}

const maxCappedAddresses = 100

// Analyze implements spec §4.3's algorithm. stateAddresses is the set of
// ResourceInstance.Address values for the snapshot under comparison.
func Analyze(stateAddresses []string, plan map[string]any) Summary {
	planAddresses := collectPlanAddresses(plan)
	stateSet := toSet(stateAddresses)

	stateOnly := difference(stateSet, planAddresses)
	planOnly := difference(planAddresses, stateSet)
	sort.Strings(stateOnly)
	sort.Strings(planOnly)

	actions := summarizeActions(plan)

	cappedStateOnly := stateOnly
	if len(cappedStateOnly) > maxCappedAddresses {
		cappedStateOnly = cappedStateOnly[:maxCappedAddresses]
	}
	cappedPlanOnly := planOnly
	if len(cappedPlanOnly) > maxCappedAddresses {
		cappedPlanOnly = cappedPlanOnly[:maxCappedAddresses]
	}

	return Summary{
		StateResourceCount: len(stateSet),
		PlanResourceCount:  len(planAddresses),
		ResourcesAdded:     actions["create"],
		ResourcesChanged:   actions["update"],
		ResourcesDestroyed: actions["delete"],
		StateOnlyResources: len(stateOnly),
		PlanOnlyResources:  len(planOnly),
		Details: Details{
			StateOnly:   cappedStateOnly,
			PlanOnly:    cappedPlanOnly,
			PlanActions: actions,
		},
	}
}

func collectPlanAddresses(plan map[string]any) map[string]struct{} {
	addresses := make(map[string]struct{})
	plannedValues, _ := plan["planned_values"].(map[string]any)
	if plannedValues == nil {
		return addresses
	}
	rootModule, _ := plannedValues["root_module"].(map[string]any)
	if rootModule == nil {
		return addresses
	}
	collectModuleAddresses(rootModule, addresses)
	return addresses
}

func collectModuleAddresses(module map[string]any, out map[string]struct{}) {
	if resources, ok := module["resources"].([]any); ok {
		for _, r := range resources {
			res, ok := r.(map[string]any)
			if !ok {
				continue
			}
			if addr, ok := res["address"].(string); ok && addr != "" {
				out[addr] = struct{}{}
			}
		}
	}
	if children, ok := module["child_modules"].([]any); ok {
		for _, c := range children {
			child, ok := c.(map[string]any)
			if !ok {
				continue
			}
			collectModuleAddresses(child, out)
		}
	}
}

func summarizeActions(plan map[string]any) map[string]int {
	summary := map[string]int{"create": 0, "update": 0, "delete": 0}
	changes, _ := plan["resource_changes"].([]any)
	for _, c := range changes {
		change, ok := c.(map[string]any)
		if !ok {
			continue
		}
		inner, _ := change["change"].(map[string]any)
		if inner == nil {
			continue
		}
		rawActions, _ := inner["actions"].([]any)
		actions := make([]string, 0, len(rawActions))
		for _, a := range rawActions {
			s, ok := a.(string)
			if !ok {
				continue
			}
			if s == "create" || s == "update" || s == "delete" {
				actions = append(actions, s)
			}
		}
		if len(actions) == 0 {
			continue
		}
		switch {
		case len(actions) == 1 && actions[0] == "create":
			summary["create"]++
		case len(actions) == 1 && actions[0] == "delete":
			summary["delete"]++
		default:
			summary["update"]++
		}
	}
	return summary
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

func difference(a, b map[string]struct{}) []string {
	out := make([]string, 0)
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
