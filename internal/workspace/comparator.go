// Package workspace implements the Workspace Comparator (C10): structured
// diffing of variables, state metadata, and resource sets between two
// workspaces.
package workspace

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Difference is one entry in a comparison run, matching the shape persisted
// on models.WorkspaceComparison.Differences.
type Difference struct {
	Category string `json:"category"`
	Item     string `json:"item"`
	ValueA   any    `json:"workspace_a_value"`
	ValueB   any    `json:"workspace_b_value"`
	Severity string `json:"severity"`
}

// Variable is the minimal shape CompareVariables needs from a WorkspaceVariable row.
type Variable struct {
	Key       string
	Value     any
	Sensitive bool
}

const redactionSentinel = "<redacted>"

// CompareVariables implements spec §4.10 "Variables": key-by-key comparison
// over the union of both workspaces' variable keys, with sensitive values
// redacted before comparison and forced to differ regardless of equality.
func CompareVariables(a, b map[string]Variable, infoKeys []string) []Difference {
	infoSet := make(map[string]struct{}, len(infoKeys))
	for _, k := range infoKeys {
		infoSet[k] = struct{}{}
	}

	keys := make(map[string]struct{})
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	sortedKeys := make([]string, 0, len(keys))
	for k := range keys {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Strings(sortedKeys)

	diffs := make([]Difference, 0)
	for _, key := range sortedKeys {
		left, hasLeft := a[key]
		right, hasRight := b[key]

		var leftVal, rightVal any
		if hasLeft {
			leftVal = normalizeValue(left)
		}
		if hasRight {
			rightVal = normalizeValue(right)
		}

		forced := hasLeft && hasRight && (left.Sensitive || right.Sensitive)
		if !forced && equalValues(leftVal, rightVal) {
			continue
		}

		severity := "warning"
		lower := strings.ToLower(key)
		if _, ok := infoSet[key]; ok {
			severity = "info"
		} else if strings.Contains(lower, "secret") || strings.Contains(lower, "password") {
			severity = "critical"
		}

		diffs = append(diffs, Difference{
			Category: "variables",
			Item:     key,
			ValueA:   leftVal,
			ValueB:   rightVal,
			Severity: severity,
		})
	}
	return diffs
}

func normalizeValue(v Variable) any {
	if v.Sensitive {
		return redactionSentinel
	}
	return v.Value
}

func equalValues(a, b any) bool {
	return fmtAny(a) == fmtAny(b)
}

func fmtAny(v any) string {
	if v == nil {
		return "\x00nil"
	}
	return toComparableString(v)
}

// StateMetadata is the minimal shape CompareStateMetadata needs from a StateSnapshot.
type StateMetadata struct {
	BackendType      string
	TerraformVersion *string
	Lineage          *string
	Serial           *int64
}

// CompareStateMetadata implements spec §4.10 "State metadata".
func CompareStateMetadata(a, b StateMetadata) []Difference {
	diffs := make([]Difference, 0, 4)

	type field struct {
		name     string
		severity string
		valueA   any
		valueB   any
	}
	fields := []field{
		{"backend_type", "critical", a.BackendType, b.BackendType},
		{"terraform_version", "warning", derefString(a.TerraformVersion), derefString(b.TerraformVersion)},
		{"lineage", "warning", derefString(a.Lineage), derefString(b.Lineage)},
		{"serial", "info", derefInt64(a.Serial), derefInt64(b.Serial)},
	}
	for _, f := range fields {
		if !equalValues(f.valueA, f.valueB) {
			diffs = append(diffs, Difference{
				Category: "config",
				Item:     f.name,
				ValueA:   f.valueA,
				ValueB:   f.valueB,
				Severity: f.severity,
			})
		}
	}
	return diffs
}

// CompareResourceSets implements spec §4.10 "Resource sets": a symmetric
// set diff over two address lists.
func CompareResourceSets(addressesA, addressesB []string) []Difference {
	setA := toSet(addressesA)
	setB := toSet(addressesB)

	diffs := make([]Difference, 0)
	for _, addr := range sortedDifference(setA, setB) {
		diffs = append(diffs, Difference{
			Category: "state",
			Item:     "resource." + addr,
			ValueA:   "present",
			ValueB:   "absent",
			Severity: "warning",
		})
	}
	for _, addr := range sortedDifference(setB, setA) {
		diffs = append(diffs, Difference{
			Category: "state",
			Item:     "resource." + addr,
			ValueA:   "absent",
			ValueB:   "present",
			Severity: "warning",
		})
	}
	return diffs
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

func sortedDifference(a, b map[string]struct{}) []string {
	out := make([]string, 0)
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt64(i *int64) string {
	if i == nil {
		return ""
	}
	return toComparableString(*i)
}

func toComparableString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
