package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ilyafedotov-ops/tfstatectl/internal/auth"
	"github.com/ilyafedotov-ops/tfstatectl/internal/authrepo"
	"github.com/ilyafedotov-ops/tfstatectl/internal/config"
)

// AuthHandlers groups the Token Service, Rate Limiter, and Session
// Repository collaborators the /auth HTTP surface (spec §6.1) dispatches to.
type AuthHandlers struct {
	Tokens  *auth.TokenService
	Limiter *auth.RateLimiter
	Repo    *authrepo.Repository
	Cookie  config.CookieConfig
}

type tokenRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Scope    []string `json:"scope,omitempty"`
}

type tokenResponse struct {
	AccessToken      string   `json:"access_token"`
	TokenType        string   `json:"token_type"`
	ExpiresIn        int64    `json:"expires_in"`
	RefreshExpiresIn int64    `json:"refresh_expires_in"`
	Scopes           []string `json:"scopes"`
	RefreshToken     string   `json:"refresh_token"`
	AntiCSRFToken    string   `json:"anti_csrf_token"`
	SessionID        string   `json:"session_id"`
}

func requestIP(r *http.Request) *string {
	ip := r.RemoteAddr
	if ip == "" {
		return nil
	}
	return &ip
}

func requestUserAgent(r *http.Request) *string {
	ua := r.UserAgent()
	if ua == "" {
		return nil
	}
	return &ua
}

func bundleResponse(b *auth.Bundle, ttl time.Duration, refreshTTL time.Duration) tokenResponse {
	return tokenResponse{
		AccessToken:      b.AccessToken,
		TokenType:        "bearer",
		ExpiresIn:        int64(ttl.Seconds()),
		RefreshExpiresIn: int64(refreshTTL.Seconds()),
		Scopes:           []string(b.Session.Scopes),
		RefreshToken:     b.RefreshToken,
		AntiCSRFToken:    b.AntiCSRFToken,
		SessionID:        b.Session.ID,
	}
}

// Token implements POST /auth/token.
func (h *AuthHandlers) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	limitKey := "login:" + req.Username
	if remaining := h.Limiter.Check(limitKey); remaining > 0 {
		writeError(w, r, h.Cookie.RefreshCookieName, &RateLimitedError{RetrySeconds: int(remaining.Seconds())})
		return
	}

	// bogusHash gives bcrypt a digest to compare against even when the
	// email is unknown, so an unknown-user lookup costs the same as a
	// wrong-password one.
	const bogusHash = "$2a$12$CwTycUXWue0Thq9StjUM0uJ8V8Rh8m8QnfaNhWt2Nq7k0F9vXhCXu"

	user, err := h.Repo.GetUserByEmail(r.Context(), req.Username)
	passwordOK := err == nil && auth.VerifyPassword(req.Password, user.PasswordHash)
	if !passwordOK {
		auth.VerifyPassword(req.Password, bogusHash)
		if remaining := h.Limiter.Hit(limitKey); remaining > 0 {
			writeError(w, r, h.Cookie.RefreshCookieName, &RateLimitedError{RetrySeconds: int(remaining.Seconds())})
			return
		}
		writeError(w, r, h.Cookie.RefreshCookieName, &auth.InvalidCredentialsError{})
		return
	}

	scopes := req.Scope
	if len(scopes) == 0 {
		scopes = []string(user.Scopes)
	}

	bundle, err := h.Tokens.Issue(r.Context(), user, scopes, requestIP(r), requestUserAgent(r))
	if err != nil {
		writeError(w, r, h.Cookie.RefreshCookieName, err)
		return
	}
	h.Limiter.Reset(limitKey)

	setRefreshCookie(w, h.Cookie, bundle.RefreshToken, bundle.Session.ExpiresAt)
	w.Header().Set("X-Refresh-Token-CSRF", bundle.AntiCSRFToken)
	writeJSON(w, http.StatusOK, bundleResponse(bundle, h.accessTTL(), h.refreshTTL()))
}

func (h *AuthHandlers) accessTTL() time.Duration  { return h.Tokens.AccessTTL() }
func (h *AuthHandlers) refreshTTL() time.Duration { return h.Tokens.RefreshTTL() }

// Refresh implements POST /auth/refresh. The refresh cookie alone is
// sufficient: token_hash carries a unique index, so the session is resolved
// from the presented token rather than a client-supplied identifier.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshPlain, ok := readRefreshCookie(r, h.Cookie.RefreshCookieName)
	if !ok {
		writeError(w, r, h.Cookie.RefreshCookieName, &auth.RefreshTokenError{Reason: "missing refresh token"})
		return
	}

	var antiCSRF *string
	if v := r.Header.Get("X-Refresh-Token-CSRF"); v != "" {
		antiCSRF = &v
	}

	bundle, err := h.Tokens.Rotate(r.Context(), refreshPlain, antiCSRF, requestIP(r), requestUserAgent(r))
	if err != nil {
		writeError(w, r, h.Cookie.RefreshCookieName, err)
		return
	}

	setRefreshCookie(w, h.Cookie, bundle.RefreshToken, bundle.Session.ExpiresAt)
	w.Header().Set("X-Refresh-Token-CSRF", bundle.AntiCSRFToken)
	writeJSON(w, http.StatusOK, bundleResponse(bundle, h.accessTTL(), h.refreshTTL()))
}

// Logout implements POST /auth/logout, resolving the session to revoke from
// the refresh cookie's hash rather than a body-supplied session id.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if refreshPlain, ok := readRefreshCookie(r, h.Cookie.RefreshCookieName); ok {
		if session, err := h.Repo.GetRefreshSessionByTokenHash(r.Context(), auth.HashToken(refreshPlain)); err == nil {
			_ = h.Tokens.Revoke(r.Context(), session, "logout")
		}
	}
	clearRefreshCookie(w, h.Cookie.RefreshCookieName)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

type userResponse struct {
	ID     string   `json:"id"`
	Email  string   `json:"email"`
	Active bool     `json:"active"`
	Scopes []string `json:"scopes"`
}

// Me implements GET /auth/me.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)
	user, err := h.Repo.GetUserByID(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, r, h.Cookie.RefreshCookieName, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, Active: user.Active, Scopes: []string(user.Scopes)})
}

type updateMeRequest struct {
	Scopes *[]string `json:"scopes,omitempty"`
}

// UpdateMe implements PUT /auth/me.
func (h *AuthHandlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)
	user, err := h.Repo.GetUserByID(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, r, h.Cookie.RefreshCookieName, err)
		return
	}

	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Scopes != nil {
		user.Scopes = *req.Scopes
	}
	if err := h.Repo.UpdateUser(r.Context(), user); err != nil {
		writeError(w, r, h.Cookie.RefreshCookieName, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, Active: user.Active, Scopes: []string(user.Scopes)})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type changePasswordResponse struct {
	RevokedSessions int `json:"revoked_sessions"`
}

// ChangePassword implements POST /auth/me/password. Revokes every other
// active refresh session for the user, per spec §6.1.
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)
	user, err := h.Repo.GetUserByID(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, r, h.Cookie.RefreshCookieName, err)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if !auth.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		writeError(w, r, h.Cookie.RefreshCookieName, &auth.InvalidCredentialsError{})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to hash password"})
		return
	}
	user.PasswordHash = hash
	if err := h.Repo.UpdateUser(r.Context(), user); err != nil {
		writeError(w, r, h.Cookie.RefreshCookieName, err)
		return
	}

	sessions, err := h.Repo.ListActiveRefreshSessions(r.Context(), user.ID, time.Now())
	if err != nil {
		writeError(w, r, h.Cookie.RefreshCookieName, err)
		return
	}
	revoked := 0
	for _, s := range sessions {
		if s.ID == principal.SessionID {
			continue
		}
		if err := h.Tokens.Revoke(r.Context(), s, "password_changed"); err == nil {
			revoked++
		}
	}
	writeJSON(w, http.StatusOK, changePasswordResponse{RevokedSessions: revoked})
}

type sessionResponse struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	IP        *string    `json:"ip,omitempty"`
	UserAgent *string    `json:"user_agent,omitempty"`
}

// ListSessions implements GET /auth/sessions.
func (h *AuthHandlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)
	sessions, err := h.Repo.ListActiveRefreshSessions(r.Context(), principal.UserID, time.Now())
	if err != nil {
		writeError(w, r, h.Cookie.RefreshCookieName, err)
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{ID: s.ID, CreatedAt: s.CreatedAt, ExpiresAt: s.ExpiresAt, RevokedAt: s.RevokedAt, IP: s.IP, UserAgent: s.UserAgent})
	}
	writeJSON(w, http.StatusOK, out)
}

// RevokeSession implements DELETE /auth/sessions/{id}.
func (h *AuthHandlers) RevokeSession(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)
	id := chi.URLParam(r, "id")

	session, err := h.Repo.GetRefreshSession(r.Context(), id)
	if err != nil || session.UserID != principal.UserID {
		writeError(w, r, h.Cookie.RefreshCookieName, &authrepo.NotFoundError{Entity: "refresh_session", Key: id})
		return
	}
	if err := h.Tokens.Revoke(r.Context(), session, "user_revoked"); err != nil {
		writeError(w, r, h.Cookie.RefreshCookieName, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type authEventResponse struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	SessionID *string   `json:"session_id,omitempty"`
	IP        *string   `json:"ip,omitempty"`
	UserAgent *string   `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListEvents implements GET /auth/events?limit=1..200.
func (h *AuthHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}

	events, err := h.Repo.ListRecentAuthEvents(r.Context(), &principal.UserID, nil, limit)
	if err != nil {
		writeError(w, r, h.Cookie.RefreshCookieName, err)
		return
	}
	out := make([]authEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, authEventResponse{ID: e.ID, Event: e.Event, SessionID: e.SessionID, IP: e.IP, UserAgent: e.UserAgent, CreatedAt: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}
