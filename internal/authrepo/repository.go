package authrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyafedotov-ops/tfstatectl/internal/auth"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/bunx"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

// dbConn is satisfied by both *bun.DB and bun.Tx, so Repository's query
// methods run unchanged whether or not WithTx has bound them to a
// transaction.
type dbConn interface {
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}

// Repository is the Session Repository (C8) contract from spec §4.8.
type Repository struct {
	conn dbConn
	// db is set only on a Repository constructed by New; a Repository
	// handed to a WithTx callback has it nil, since a transaction cannot
	// itself open a nested one.
	db *bun.DB
}

// New constructs a Repository backed by Bun.
func New(db *bun.DB) *Repository {
	return &Repository{conn: db, db: db}
}

// WithTx runs fn against a Repository bound to a single transaction, so
// every SessionStore call fn makes through the supplied store commits or
// rolls back as one unit. Calling WithTx on a Repository that is already
// transaction-scoped reuses that transaction instead of nesting.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, store auth.SessionStore) error) error {
	if r.db == nil {
		return fn(ctx, r)
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Repository{conn: tx})
	})
}

// CreateUser normalizes email and rejects duplicates with ConflictError.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string, scopes []string, active, superuser bool) (*models.User, error) {
	now := time.Now()
	user := &models.User{
		ID:           bunx.NewUUIDv7(),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		Active:       active,
		Superuser:    superuser,
		Scopes:       models.StringList(scopes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.conn.NewInsert().Model(user).Exec(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return nil, &ConflictError{Reason: fmt.Sprintf("user with email %q already exists", user.Email)}
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := new(models.User)
	err := r.conn.NewSelect().Model(user).Where("email = ?", normalizeEmail(email)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "user", Key: email}
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user := new(models.User)
	err := r.conn.NewSelect().Model(user).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "user", Key: id}
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return user, nil
}

func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	_, err := r.conn.NewUpdate().
		Model(user).
		Column("password_hash", "active", "superuser", "scopes", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// CreateRefreshSession implements auth.SessionStore.
func (r *Repository) CreateRefreshSession(ctx context.Context, session *models.RefreshSession) error {
	if _, err := r.conn.NewInsert().Model(session).Exec(ctx); err != nil {
		return fmt.Errorf("insert refresh session: %w", err)
	}
	return nil
}

// GetRefreshSession implements auth.SessionStore.
func (r *Repository) GetRefreshSession(ctx context.Context, id string) (*models.RefreshSession, error) {
	session := new(models.RefreshSession)
	err := r.conn.NewSelect().Model(session).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "refresh_session", Key: id}
		}
		return nil, fmt.Errorf("query refresh session: %w", err)
	}
	return session, nil
}

// GetRefreshSessionByTokenHash implements auth.SessionStore. token_hash
// carries a unique index (see the auth_refresh_sessions migration), so a
// presented refresh token is enough to resolve its session without the
// caller also supplying a session id.
func (r *Repository) GetRefreshSessionByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshSession, error) {
	session := new(models.RefreshSession)
	err := r.conn.NewSelect().Model(session).Where("token_hash = ?", tokenHash).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "refresh_session", Key: tokenHash}
		}
		return nil, fmt.Errorf("query refresh session by token hash: %w", err)
	}
	return session, nil
}

// ListActiveRefreshSessions returns a user's sessions that are neither
// revoked nor expired as of now.
func (r *Repository) ListActiveRefreshSessions(ctx context.Context, userID string, now time.Time) ([]*models.RefreshSession, error) {
	var sessions []*models.RefreshSession
	err := r.conn.NewSelect().
		Model(&sessions).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Where("expires_at > ?", now).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active refresh sessions: %w", err)
	}
	return sessions, nil
}

// ListSessionsByFamily implements auth.SessionStore.
func (r *Repository) ListSessionsByFamily(ctx context.Context, familyID string) ([]*models.RefreshSession, error) {
	var sessions []*models.RefreshSession
	err := r.conn.NewSelect().
		Model(&sessions).
		Where("family_id = ?", familyID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions by family: %w", err)
	}
	return sessions, nil
}

// RevokeRefreshSession implements auth.SessionStore. The UPDATE is
// conditioned on revoked_at still being NULL, so two concurrent callers
// racing to revoke the same session can't both believe they won: the loser
// sees revoked == false and must treat that as a reuse signal rather than
// silently succeeding. Re-revocation by the same caller after that point is
// reported as revoked == false too, since nothing was affected.
func (r *Repository) RevokeRefreshSession(ctx context.Context, session *models.RefreshSession, reason string, replacedBy *string) (bool, error) {
	now := time.Now()
	candidate := *session
	candidate.RevokedAt = &now
	candidate.RevokedReason = &reason
	candidate.ReplacedBy = replacedBy

	res, err := r.conn.NewUpdate().
		Model(&candidate).
		Column("revoked_at", "revoked_reason", "replaced_by").
		Where("id = ? AND revoked_at IS NULL", candidate.ID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("revoke refresh session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check revoke result: %w", err)
	}
	if affected == 0 {
		return false, nil
	}
	session.RevokedAt = candidate.RevokedAt
	session.RevokedReason = candidate.RevokedReason
	session.ReplacedBy = candidate.ReplacedBy
	return true, nil
}

// TouchRefreshSession applies a partial update — only non-nil fields are written.
func (r *Repository) TouchRefreshSession(ctx context.Context, session *models.RefreshSession, tokenHash *string, expiresAt *time.Time, antiCSRF *string, lastUsedAt *time.Time) error {
	q := r.conn.NewUpdate().Model(session).WherePK()
	columns := make([]string, 0, 4)

	if tokenHash != nil {
		session.TokenHash = *tokenHash
		columns = append(columns, "token_hash")
	}
	if expiresAt != nil {
		session.ExpiresAt = *expiresAt
		columns = append(columns, "expires_at")
	}
	if antiCSRF != nil {
		session.AntiCSRF = *antiCSRF
		columns = append(columns, "anti_csrf")
	}
	if lastUsedAt != nil {
		session.LastUsedAt = *lastUsedAt
	} else {
		session.LastUsedAt = time.Now()
	}
	columns = append(columns, "last_used_at")

	if len(columns) == 0 {
		return nil
	}
	if _, err := q.Column(columns...).Exec(ctx); err != nil {
		return fmt.Errorf("touch refresh session: %w", err)
	}
	return nil
}

// RecordAuthEvent implements auth.SessionStore.
func (r *Repository) RecordAuthEvent(ctx context.Context, event *models.AuthAuditEvent) error {
	if event.ID == "" {
		event.ID = bunx.NewUUIDv7()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if _, err := r.conn.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("insert auth audit event: %w", err)
	}
	return nil
}

// ListRecentAuthEvents returns audit events filtered by user/session,
// newest first, capped at limit.
func (r *Repository) ListRecentAuthEvents(ctx context.Context, userID, sessionID *string, limit int) ([]*models.AuthAuditEvent, error) {
	var events []*models.AuthAuditEvent
	q := r.conn.NewSelect().Model(&events).OrderExpr("created_at DESC")
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	if sessionID != nil {
		q = q.Where("session_id = ?", *sessionID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list auth events: %w", err)
	}
	return events, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
