// Package auth implements the Auth Engine's credential primitives: the
// Password Hasher (C5), the Token Service (C6), and the Rate Limiter (C7).
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/bunx"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
)

// refreshTokenBytes is the entropy budget for opaque refresh/anti-CSRF
// tokens — spec §4.6 requires at least 32 bytes.
const refreshTokenBytes = 32

// SessionStore is the subset of the Session Repository (C8) the Token
// Service needs. Accepting an interface here keeps this package free of a
// dependency on the bun-backed repository implementation.
type SessionStore interface {
	CreateRefreshSession(ctx context.Context, session *models.RefreshSession) error
	GetRefreshSession(ctx context.Context, id string) (*models.RefreshSession, error)
	GetRefreshSessionByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshSession, error)
	// RevokeRefreshSession conditions its write on the session still being
	// unrevoked and reports whether it actually won that race: a caller
	// that gets revoked == false lost to a concurrent revoke or rotation
	// of the same session and must treat the presented token as reused.
	RevokeRefreshSession(ctx context.Context, session *models.RefreshSession, reason string, replacedBy *string) (revoked bool, err error)
	ListSessionsByFamily(ctx context.Context, familyID string) ([]*models.RefreshSession, error)
	RecordAuthEvent(ctx context.Context, event *models.AuthAuditEvent) error
	// WithTx runs fn against a SessionStore bound to a single transaction,
	// so Rotate's lookup, revoke, and issue all commit or roll back
	// together.
	WithTx(ctx context.Context, fn func(ctx context.Context, store SessionStore) error) error
}

// AccessClaims is the signed envelope carried by an access token.
type AccessClaims struct {
	Scopes []string `json:"scopes"`
	Type   string   `json:"type"`
	SID    string   `json:"sid"`
	Fam    string   `json:"fam"`
	jwt.RegisteredClaims
}

// Bundle is what Issue and Rotate both return (spec §4.6).
type Bundle struct {
	AccessToken   string
	RefreshToken  string
	AntiCSRFToken string
	Session       *models.RefreshSession
}

// TokenServiceConfig carries the signing and lifetime parameters a Token
// Service is built from (see config.AuthConfig).
type TokenServiceConfig struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
	Audience        string
}

// TokenService implements C6 atop a SessionStore.
type TokenService struct {
	cfg   TokenServiceConfig
	store SessionStore
}

// NewTokenService constructs a TokenService.
func NewTokenService(cfg TokenServiceConfig, store SessionStore) *TokenService {
	return &TokenService{cfg: cfg, store: store}
}

// AccessTTL reports the configured access token lifetime.
func (t *TokenService) AccessTTL() time.Duration { return t.cfg.AccessTokenTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (t *TokenService) RefreshTTL() time.Duration { return t.cfg.RefreshTokenTTL }

// Issue mints a fresh access/refresh/anti-CSRF bundle for a user and
// persists the backing RefreshSession, per spec §4.6 "Issue".
func (t *TokenService) Issue(ctx context.Context, user *models.User, scopes []string, ip, userAgent *string) (*Bundle, error) {
	if !user.Active {
		return nil, &InactiveUserError{}
	}

	familyID := bunx.NewUUIDv7()
	return t.issueWithinFamily(ctx, t.store, user.ID, user.Email, scopes, familyID, ip, userAgent, "login_success", nil)
}

// issueWithinFamily mints the new session against store, which the caller
// picks: Issue passes the Token Service's own store, Rotate passes one
// scoped to its transaction so the predecessor's revoke and the
// replacement's creation are atomic.
func (t *TokenService) issueWithinFamily(ctx context.Context, store SessionStore, userID, subject string, scopes []string, familyID string, ip, userAgent *string, auditEvent string, replaces *models.RefreshSession) (*Bundle, error) {
	sessionID := bunx.NewUUIDv7()

	refreshPlain, refreshHash, err := generateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	antiCSRF, _, err := generateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate anti-csrf token: %w", err)
	}

	if replaces != nil {
		replacedBy := sessionID
		revoked, err := store.RevokeRefreshSession(ctx, replaces, "rotated", &replacedBy)
		if err != nil {
			return nil, fmt.Errorf("revoke rotated session: %w", err)
		}
		if !revoked {
			// Someone else revoked or rotated this session between our
			// lookup and this write — the token just presented has
			// already been consumed once.
			if revokeErr := t.revokeFamily(ctx, store, familyID, "reuse_detected", userID, ip, userAgent); revokeErr != nil {
				return nil, revokeErr
			}
			return nil, &RefreshTokenReuseError{}
		}
	}

	now := time.Now()
	session := &models.RefreshSession{
		ID:         sessionID,
		UserID:     userID,
		FamilyID:   familyID,
		TokenHash:  refreshHash,
		AntiCSRF:   antiCSRF,
		Scopes:     models.StringList(scopes),
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  now.Add(t.cfg.RefreshTokenTTL),
	}
	if err := store.CreateRefreshSession(ctx, session); err != nil {
		return nil, fmt.Errorf("persist refresh session: %w", err)
	}

	accessToken, err := t.signAccessToken(userID, scopes, sessionID, familyID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	if err := store.RecordAuthEvent(ctx, &models.AuthAuditEvent{
		ID:        bunx.NewUUIDv7(),
		Event:     auditEvent,
		UserID:    &userID,
		Subject:   subject,
		SessionID: &sessionID,
		Scopes:    models.StringList(scopes),
		IP:        ip,
		UserAgent: userAgent,
		Details:   models.JSONBlob{"family_id": familyID},
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("record audit event: %w", err)
	}

	return &Bundle{
		AccessToken:   accessToken,
		RefreshToken:  refreshPlain,
		AntiCSRFToken: antiCSRF,
		Session:       session,
	}, nil
}

func (t *TokenService) signAccessToken(userID string, scopes []string, sessionID, familyID string) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		Scopes: scopes,
		Type:   "access",
		SID:    sessionID,
		Fam:    familyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        bunx.NewUUIDv7(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.AccessTokenTTL)),
		},
	}
	if t.cfg.Issuer != "" {
		claims.Issuer = t.cfg.Issuer
	}
	if t.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{t.cfg.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(t.cfg.AccessSecret))
}

// DecodeAccess verifies signature, type, and expiry of an access token and
// returns its claims.
func (t *TokenService) DecodeAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if t.cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(t.cfg.Issuer))
	}
	if t.cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(t.cfg.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(t.cfg.AccessSecret), nil
	}, parserOpts...)
	if err != nil || !token.Valid {
		return nil, &RefreshTokenError{Reason: "invalid access token"}
	}
	if claims.Type != "access" {
		return nil, &RefreshTokenError{Reason: "unexpected token type"}
	}
	return claims, nil
}

// EnsureScopes reports whether every scope in required is present in granted.
func EnsureScopes(granted, required []string) bool {
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[s] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}

// Rotate implements spec §4.6 "Rotate": resolves the presented refresh
// token to its session by hash, validates it, detects reuse, and mints a
// replacement bundle within the same family. The whole lookup-validate-
// revoke-issue sequence runs inside one transaction so two callers racing
// with the same refresh token cannot both mint a replacement.
func (t *TokenService) Rotate(ctx context.Context, refreshPlain string, antiCSRFHeader *string, ip, userAgent *string) (*Bundle, error) {
	tokenHash := hashToken(refreshPlain)

	var bundle *Bundle
	err := t.store.WithTx(ctx, func(ctx context.Context, store SessionStore) error {
		session, err := store.GetRefreshSessionByTokenHash(ctx, tokenHash)
		if err != nil {
			return &RefreshTokenError{Reason: "unknown refresh session"}
		}

		if session.RevokedAt != nil {
			if revokeErr := t.revokeFamily(ctx, store, session.FamilyID, "reuse_detected", session.UserID, ip, userAgent); revokeErr != nil {
				return revokeErr
			}
			return &RefreshTokenReuseError{}
		}

		if time.Now().After(session.ExpiresAt) {
			return &RefreshTokenExpiredError{}
		}

		if antiCSRFHeader != nil && *antiCSRFHeader != session.AntiCSRF {
			return &RefreshTokenError{Reason: "anti-csrf mismatch"}
		}

		b, err := t.issueWithinFamily(ctx, store, session.UserID, session.UserID, []string(session.Scopes), session.FamilyID, ip, userAgent, "refresh_rotated", session)
		if err != nil {
			return err
		}
		bundle = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bundle, nil
}

// Revoke marks a session revoked; re-revocation is a no-op (spec §4.6).
func (t *TokenService) Revoke(ctx context.Context, session *models.RefreshSession, reason string) error {
	if session.RevokedAt != nil {
		return nil
	}
	_, err := t.store.RevokeRefreshSession(ctx, session, reason, nil)
	return err
}

func (t *TokenService) revokeFamily(ctx context.Context, store SessionStore, familyID, reason, userID string, ip, userAgent *string) error {
	sessions, err := store.ListSessionsByFamily(ctx, familyID)
	if err != nil {
		return fmt.Errorf("list family sessions: %w", err)
	}
	for _, s := range sessions {
		if s.RevokedAt != nil {
			continue
		}
		if _, err := store.RevokeRefreshSession(ctx, s, reason, nil); err != nil {
			return fmt.Errorf("revoke session %s: %w", s.ID, err)
		}
	}
	return store.RecordAuthEvent(ctx, &models.AuthAuditEvent{
		ID:        bunx.NewUUIDv7(),
		Event:     "refresh_reuse",
		UserID:    &userID,
		Subject:   userID,
		Scopes:    models.StringList{},
		IP:        ip,
		UserAgent: userAgent,
		Details:   models.JSONBlob{"family_id": familyID},
		CreatedAt: time.Now(),
	})
}

func generateOpaqueToken() (plain, hash string, err error) {
	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plain = base64.RawURLEncoding.EncodeToString(raw)
	hash = hashToken(plain)
	return plain, hash, nil
}

// HashToken computes the stored digest for an opaque refresh or anti-CSRF
// token. Exported so callers holding only a presented plaintext (e.g. the
// HTTP layer matching a logout request against a session) can compare
// without reaching into package internals.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func hashToken(plain string) string { return HashToken(plain) }
