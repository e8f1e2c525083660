package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Workspace groups snapshots and variables under a project-scoped name.
type Workspace struct {
	bun.BaseModel `bun:"table:workspaces,alias:w"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ProjectID string    `bun:"project_id,notnull,type:uuid"`
	Name      string    `bun:"name,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// WorkspaceVariable is a key/value pair scoped to a workspace, optionally sensitive.
type WorkspaceVariable struct {
	bun.BaseModel `bun:"table:workspace_variables,alias:wv"`

	ID          string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	WorkspaceID string    `bun:"workspace_id,notnull,type:uuid"`
	Key         string    `bun:"key,notnull"`
	Value       JSONValue `bun:"value,type:jsonb"`
	Sensitive   bool      `bun:"sensitive,notnull,default:false"`
}

// WorkspaceComparison records one comparator run (C10) with its difference list.
type WorkspaceComparison struct {
	bun.BaseModel `bun:"table:workspace_comparisons,alias:wc"`

	ID               string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ProjectID        string    `bun:"project_id,notnull,type:uuid"`
	WorkspaceAID     string    `bun:"workspace_a_id,notnull,type:uuid"`
	WorkspaceBID     string    `bun:"workspace_b_id,notnull,type:uuid"`
	ComparisonTypes  StringList `bun:"comparison_types,type:jsonb,notnull,default:'[]'"`
	DifferencesCount int       `bun:"differences_count,notnull,default:0"`
	Differences      JSONList  `bun:"differences,type:jsonb,notnull,default:'[]'"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
