package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a human principal. See spec §3.2.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email        string     `bun:"email,notnull,unique"`
	PasswordHash string     `bun:"password_hash,notnull"`
	Active       bool       `bun:"active,notnull,default:true"`
	Superuser    bool       `bun:"superuser,notnull,default:false"`
	Scopes       StringList `bun:"scopes,type:jsonb,notnull,default:'[]'"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// RefreshSession is one link in a chain of rotated refresh tokens.
// See spec §3.2. ReplacedBy is a weak reference used only for audit
// reconstruction — never dereferenced for authorization.
type RefreshSession struct {
	bun.BaseModel `bun:"table:auth_refresh_sessions,alias:rs"`

	ID             string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID         string     `bun:"user_id,notnull,type:uuid"`
	FamilyID       string     `bun:"family_id,notnull,type:uuid"`
	TokenHash      string     `bun:"token_hash,notnull,unique"`
	AntiCSRF       string     `bun:"anti_csrf,notnull"`
	Scopes         StringList `bun:"scopes,type:jsonb,notnull,default:'[]'"`
	IP             *string    `bun:"ip"`
	UserAgent      *string    `bun:"user_agent"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	LastUsedAt     time.Time  `bun:"last_used_at,notnull,default:current_timestamp"`
	ExpiresAt      time.Time  `bun:"expires_at,notnull"`
	RevokedAt      *time.Time `bun:"revoked_at"`
	RevokedReason  *string    `bun:"revoked_reason"`
	ReplacedBy     *string    `bun:"replaced_by,type:uuid"`
}

// Active reports whether the session may still be used to rotate or to carry scopes.
func (s *RefreshSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// AuthAuditEvent is an append-only observation of an authentication state change.
// See spec §3.2 / §4.9.
type AuthAuditEvent struct {
	bun.BaseModel `bun:"table:auth_audit_events,alias:ae"`

	ID        string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Event     string     `bun:"event,notnull"`
	UserID    *string    `bun:"user_id,type:uuid"`
	Subject   string     `bun:"subject,notnull"`
	SessionID *string    `bun:"session_id,type:uuid"`
	Scopes    StringList `bun:"scopes,type:jsonb,notnull,default:'[]'"`
	IP        *string    `bun:"ip"`
	UserAgent *string    `bun:"user_agent"`
	Details   JSONBlob   `bun:"details,type:jsonb,notnull,default:'{}'"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}
