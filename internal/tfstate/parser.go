// Package tfstate implements the State Parser (C2): it turns raw Terraform
// state bytes into the normalized shape the State Store (C4) persists, and
// provides the canonical JSON serialization used for snapshot checksums.
package tfstate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ParseError wraps a JSON decode failure for a raw state document.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse terraform state JSON: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ResourceInstance is one addressable instance flattened out of a raw
// resource block, matching spec §3.1's ResourceInstance fields.
type ResourceInstance struct {
	Address        string
	ModuleAddress  *string
	Mode           string
	Type           string
	Name           string
	Provider       *string
	IndexKey       *string
	SchemaVersion  *int
	Attributes     map[string]any
	SensitivePaths []string
	DependsOn      []string
}

// Output is one entry from the state's outputs map.
type Output struct {
	Name      string
	Value     any
	Sensitive bool
	TypeHint  *string
}

// Document is the normalized result of parsing a raw state document.
type Document struct {
	Serial           *int64
	TerraformVersion *string
	Lineage          *string
	BackendType      string
	ResourceCount    int
	OutputCount      int
	Checksum         string
	SizeBytes        int64
	Resources        []ResourceInstance
	Outputs          []Output

	// Raw is the decoded top-level object, retained so CanonicalJSON and
	// the mutation protocol (C4) can re-serialize and re-parse it.
	Raw map[string]any
}

// Parse decodes raw state bytes per spec §4.2. Document.Checksum is sha256
// over the input bytes as given, not a re-serialization: identical bytes
// give identical checksums, and a different byte layout of the same object
// gives a different one.
func Parse(data []byte, backendType string) (*Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Cause: err}
	}

	resources := extractResources(raw)
	outputs := extractOutputs(raw)

	sum := sha256.Sum256(data)

	doc := &Document{
		Serial:           optInt64(raw["serial"]),
		TerraformVersion: optString(raw["terraform_version"]),
		Lineage:          optString(raw["lineage"]),
		BackendType:      backendType,
		ResourceCount:    len(resources),
		OutputCount:      len(outputs),
		Checksum:         hex.EncodeToString(sum[:]),
		SizeBytes:        int64(len(data)),
		Resources:        resources,
		Outputs:          outputs,
		Raw:              raw,
	}
	return doc, nil
}

func extractResources(raw map[string]any) []ResourceInstance {
	rawResources, _ := raw["resources"].([]any)
	instances := make([]ResourceInstance, 0, len(rawResources))

	for _, item := range rawResources {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}

		moduleAddress := optString(block["module"])
		mode := stringOrDefault(block["mode"], "managed")
		resourceType := stringOrDefault(block["type"], "unknown")
		name := stringOrDefault(block["name"], "unnamed")
		provider := optString(block["provider"])
		explicitAddress, _ := block["address"].(string)

		rawInstances, _ := block["instances"].([]any)
		if len(rawInstances) == 0 {
			address := explicitAddress
			if address == "" {
				address = composeAddress(moduleAddress, mode, resourceType, name, nil)
			}
			instances = append(instances, ResourceInstance{
				Address:        address,
				ModuleAddress:  moduleAddress,
				Mode:           mode,
				Type:           resourceType,
				Name:           name,
				Provider:       provider,
				Attributes:     map[string]any{},
				SensitivePaths: []string{},
				DependsOn:      []string{},
			})
			continue
		}

		for _, ri := range rawInstances {
			inst, ok := ri.(map[string]any)
			if !ok {
				continue
			}

			indexKey := indexKeyString(inst["index_key"])
			schemaVersion := optInt(inst["schema_version"])
			attributes, _ := inst["attributes"].(map[string]any)
			if attributes == nil {
				attributes = map[string]any{}
			}
			sensitive, _ := inst["sensitive_attributes"].([]any)
			dependencies, _ := inst["dependencies"].([]any)

			address := composeInstanceAddress(explicitAddress, moduleAddress, mode, resourceType, name, indexKey)

			instances = append(instances, ResourceInstance{
				Address:        address,
				ModuleAddress:  moduleAddress,
				Mode:           mode,
				Type:           resourceType,
				Name:           name,
				Provider:       provider,
				IndexKey:       indexKey,
				SchemaVersion:  schemaVersion,
				Attributes:     attributes,
				SensitivePaths: normalizeSensitiveAttributes(sensitive),
				DependsOn:      stringifyAll(dependencies),
			})
		}
	}

	return instances
}

func extractOutputs(raw map[string]any) []Output {
	block, _ := raw["outputs"].(map[string]any)
	outputs := make([]Output, 0, len(block))
	for name, v := range block {
		payload, _ := v.(map[string]any)
		var value any
		var sensitive bool
		var typeHint *string
		if payload != nil {
			value = payload["value"]
			sensitive, _ = payload["sensitive"].(bool)
			typeHint = optString(payload["type"])
		}
		outputs = append(outputs, Output{
			Name:      name,
			Value:     value,
			Sensitive: sensitive,
			TypeHint:  typeHint,
		})
	}
	return outputs
}

// composeAddress implements the address rule in spec §3.1:
// [<module>.]<mode>.<type>.<name>[[<index>]]
func composeAddress(moduleAddress *string, mode, resourceType, name string, indexKey *string) string {
	base := fmt.Sprintf("%s.%s.%s", mode, resourceType, name)
	if moduleAddress != nil && *moduleAddress != "" {
		base = *moduleAddress + "." + base
	}
	if indexKey != nil {
		base = fmt.Sprintf("%s[%s]", base, *indexKey)
	}
	return base
}

// composeInstanceAddress applies spec §4.2 rule 2: an explicit address is
// authoritative and used verbatim, with the index suffix appended only if
// it isn't already present.
func composeInstanceAddress(explicitAddress string, moduleAddress *string, mode, resourceType, name string, indexKey *string) string {
	var address string
	if explicitAddress != "" {
		address = explicitAddress
	} else {
		address = composeAddress(moduleAddress, mode, resourceType, name, nil)
	}
	if indexKey == nil {
		return address
	}
	suffix := fmt.Sprintf("[%s]", *indexKey)
	if len(address) >= len(suffix) && address[len(address)-len(suffix):] == suffix {
		return address
	}
	return address + suffix
}

// normalizeSensitiveAttributes implements spec §4.2 rule 3.
func normalizeSensitiveAttributes(items []any) []string {
	paths := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			paths = append(paths, v)
		case []any:
			parts := make([]string, 0, len(v))
			for _, part := range v {
				parts = append(parts, stringify(part))
			}
			paths = append(paths, joinDotted(parts))
		default:
			paths = append(paths, stringify(v))
		}
	}
	return paths
}

func joinDotted(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

func stringifyAll(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, stringify(item))
	}
	return out
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

func indexKeyString(v any) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return &val
	case float64:
		s := stringify(val)
		if val == float64(int64(val)) {
			s = fmt.Sprintf("%d", int64(val))
		}
		return &s
	default:
		s := stringify(val)
		return &s
	}
}

func stringOrDefault(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func optString(v any) *string {
	if s, ok := v.(string); ok && s != "" {
		return &s
	}
	return nil
}

func optInt(v any) *int {
	if f, ok := v.(float64); ok {
		n := int(f)
		return &n
	}
	return nil
}

func optInt64(v any) *int64 {
	if f, ok := v.(float64); ok {
		n := int64(f)
		return &n
	}
	return nil
}
