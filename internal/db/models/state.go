// Package models defines the persisted row shapes for the State Engine (C4)
// and Auth Engine (C8), following the teacher's bun.BaseModel/struct-tag
// convention.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// JSONBlob stores an arbitrary JSON document (backend config, drift detail,
// attribute maps) as a scanner/valuer pair so it round-trips through both the
// pgdialect jsonb column type and the sqlitedialect text column type.
type JSONBlob map[string]any

func (j *JSONBlob) Scan(value any) error {
	if value == nil {
		*j = make(JSONBlob)
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan JSONBlob: expected []byte or string, got %T", value)
	}
	return json.Unmarshal(raw, j)
}

func (j JSONBlob) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONList stores an arbitrary JSON array (difference lists, capped address
// lists) the same way JSONBlob stores an arbitrary JSON object.
type JSONList []any

func (j *JSONList) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan JSONList: expected []byte or string, got %T", value)
	}
	return json.Unmarshal(raw, j)
}

func (j JSONList) Value() (driver.Value, error) {
	if j == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]any(j))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// StringList stores a list of strings (sensitive-attribute paths, dependency
// addresses) as JSON so both dialects can persist it uniformly.
type StringList []string

func (s *StringList) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan StringList: expected []byte or string, got %T", value)
	}
	return json.Unmarshal(raw, s)
}

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSONValue stores an arbitrary JSON value of any shape — scalar, array, or
// object — as produced by a Terraform output or workspace variable. Unlike
// JSONBlob it is not constrained to objects.
type JSONValue struct {
	V any
}

func (j *JSONValue) Scan(value any) error {
	if value == nil {
		j.V = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan JSONValue: expected []byte or string, got %T", value)
	}
	return json.Unmarshal(raw, &j.V)
}

func (j JSONValue) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// StateSnapshot is the semantic container for one ingested Terraform state
// document and every index derived from it. See spec §3.1.
type StateSnapshot struct {
	bun.BaseModel `bun:"table:terraform_states,alias:ts"`

	ID               string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ProjectID        string    `bun:"project_id,notnull,type:uuid"`
	Workspace        string    `bun:"workspace,notnull,default:'default'"`
	BackendType      string    `bun:"backend_type,notnull"`
	BackendConfig    JSONBlob  `bun:"backend_config,type:jsonb,notnull,default:'{}'"`
	Serial           *int64    `bun:"serial"`
	TerraformVersion *string   `bun:"terraform_version"`
	Lineage          *string   `bun:"lineage"`
	ResourceCount    int       `bun:"resource_count,notnull,default:0"`
	OutputCount      int       `bun:"output_count,notnull,default:0"`
	SizeBytes        int64     `bun:"size_bytes,notnull,default:0"`
	Checksum         string    `bun:"checksum,notnull"`
	CanonicalJSON    string    `bun:"canonical_json,type:text,notnull"`
	ImportedAt       time.Time `bun:"imported_at,notnull,default:current_timestamp"`

	Resources []*ResourceInstance `bun:"rel:has-many,join:id=snapshot_id"`
	Outputs   []*Output           `bun:"rel:has-many,join:id=snapshot_id"`
}

// ResourceInstance is one addressable row extracted from a snapshot. See spec §3.1.
type ResourceInstance struct {
	bun.BaseModel `bun:"table:terraform_state_resources,alias:tsr"`

	ID              string     `bun:"id,pk,type:uuid,default:gen_random_uuid()" bexpr:"id"`
	SnapshotID      string     `bun:"snapshot_id,notnull,type:uuid" bexpr:"snapshot_id"`
	Address         string     `bun:"address,notnull" bexpr:"address"`
	ModuleAddress   *string    `bun:"module_address" bexpr:"module_address"`
	Mode            string     `bun:"mode,notnull,default:'managed'" bexpr:"mode"`
	Type            string     `bun:"type,notnull" bexpr:"type"`
	Name            string     `bun:"name,notnull" bexpr:"name"`
	Provider        *string    `bun:"provider" bexpr:"provider"`
	IndexKey        *string    `bun:"index_key" bexpr:"index_key"`
	SchemaVersion   *int       `bun:"schema_version" bexpr:"schema_version"`
	Attributes      JSONBlob   `bun:"attributes,type:jsonb,notnull,default:'{}'" bexpr:"-"`
	SensitivePaths  StringList `bun:"sensitive_paths,type:jsonb,notnull,default:'[]'" bexpr:"-"`
	DependsOn       StringList `bun:"depends_on,type:jsonb,notnull,default:'[]'" bexpr:"-"`

	Snapshot *StateSnapshot `bun:"rel:belongs-to,join:snapshot_id=id"`
}

// Output is a single Terraform output value captured for a snapshot.
type Output struct {
	bun.BaseModel `bun:"table:terraform_state_outputs,alias:tso"`

	ID         string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	SnapshotID string    `bun:"snapshot_id,notnull,type:uuid"`
	Name       string    `bun:"name,notnull"`
	Value      JSONValue `bun:"value,type:jsonb"`
	Sensitive  bool      `bun:"sensitive,notnull,default:false"`
	TypeHint   *string   `bun:"type_hint"`

	Snapshot *StateSnapshot `bun:"rel:belongs-to,join:snapshot_id=id"`
}

// DriftDetection records one drift comparison run. See spec §3.1 / §4.3.
type DriftDetection struct {
	bun.BaseModel `bun:"table:drift_detections,alias:dd"`

	ID              string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ProjectID       string    `bun:"project_id,notnull,type:uuid"`
	SnapshotID      *string   `bun:"snapshot_id,type:uuid"`
	Workspace       string    `bun:"workspace,notnull"`
	Method          string    `bun:"method,notnull"`
	Added           int       `bun:"added,notnull,default:0"`
	Modified        int       `bun:"modified,notnull,default:0"`
	Destroyed       int       `bun:"destroyed,notnull,default:0"`
	TotalDrifted    int       `bun:"total_drifted,notnull,default:0"`
	Detail          JSONBlob  `bun:"detail,type:jsonb,notnull,default:'{}'"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// TerraformPlan records a submitted plan document so drift runs can be
// replayed or audited after the fact. See spec §3.1 / §6.4.
type TerraformPlan struct {
	bun.BaseModel `bun:"table:terraform_plans,alias:tp"`

	ID                   string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ProjectID            string    `bun:"project_id,notnull,type:uuid"`
	Workspace            string    `bun:"workspace,notnull"`
	SnapshotID           *string   `bun:"snapshot_id,type:uuid"`
	RawPlan              JSONValue `bun:"raw_plan,type:jsonb,notnull"`
	ResourceChangesCount int       `bun:"resource_changes_count,notnull,default:0"`
	CreatedAt            time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
