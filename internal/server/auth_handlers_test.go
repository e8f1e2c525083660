package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, env *testEnv, method, path string, body any, mutate func(r *http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, env *testEnv, email, password string) (tokenResponse, *http.Cookie) {
	t.Helper()
	rec := doRequest(t, env, http.MethodPost, "/auth/token", tokenRequest{Username: email, Password: password}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var refreshCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == env.Cookie.RefreshCookieName {
			refreshCookie = c
		}
	}
	require.NotNil(t, refreshCookie, "expected refresh cookie to be set")
	return resp, refreshCookie
}

func TestTokenRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)

	rec := doRequest(t, env, http.MethodPost, "/auth/token", tokenRequest{Username: "alice@example.com", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenIssuesAccessAndRefreshCookie(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)

	resp, cookie := login(t, env, "alice@example.com", "correct horse")
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.AntiCSRFToken)
	assert.True(t, cookie.HttpOnly)
}

// TestRefreshSucceedsFromCookieAlone covers the cookie-only refresh
// contract: no session id travels in the request body, only the refresh
// cookie and the anti-CSRF header issued alongside it.
func TestRefreshSucceedsFromCookieAlone(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	resp, cookie := login(t, env, "alice@example.com", "correct horse")

	rec := doRequest(t, env, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
		r.Header.Set("X-Refresh-Token-CSRF", resp.AntiCSRFToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var rotated tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, resp.AccessToken, rotated.AccessToken)
}

func TestRefreshWithoutCookieIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, env, http.MethodPost, "/auth/refresh", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestRefreshReuseOfRotatedTokenIsRejected exercises the reuse-detection
// path: once a refresh token has been rotated, presenting the superseded
// cookie a second time must fail rather than mint another bundle.
func TestRefreshReuseOfRotatedTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	resp, cookie := login(t, env, "alice@example.com", "correct horse")

	rec := doRequest(t, env, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
		r.Header.Set("X-Refresh-Token-CSRF", resp.AntiCSRFToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	replay := doRequest(t, env, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
		r.Header.Set("X-Refresh-Token-CSRF", resp.AntiCSRFToken)
	})
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

// TestLogoutRevokesSessionFromCookieAlone covers the matching half of the
// cookie-only contract on /auth/logout: no session id in the body, just the
// cookie being cleared and its session revoked server-side.
func TestLogoutRevokesSessionFromCookieAlone(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	resp, cookie := login(t, env, "alice@example.com", "correct horse")

	rec := doRequest(t, env, http.MethodPost, "/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == env.Cookie.RefreshCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "expected logout to clear the refresh cookie")

	// The revoked session can no longer be rotated.
	replay := doRequest(t, env, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
		r.Header.Set("X-Refresh-Token-CSRF", resp.AntiCSRFToken)
	})
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestLogoutWithoutCookieStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, env, http.MethodPost, "/auth/logout", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMeRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, env, http.MethodGet, "/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeReturnsAuthenticatedUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	bundle := env.issueBundle(t, user)

	rec := doRequest(t, env, http.MethodGet, "/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+bundle.AccessToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var got userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, user.Email, got.Email)
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	primary := env.issueBundle(t, user)
	_ = env.issueBundle(t, user)

	rec := doRequest(t, env, http.MethodPost, "/auth/me/password", changePasswordRequest{
		CurrentPassword: "correct horse",
		NewPassword:     "new horse battery staple",
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+primary.AccessToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp changePasswordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.RevokedSessions)
}

func TestListSessionsAndEvents(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	bundle := env.issueBundle(t, user)
	auth := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+bundle.AccessToken) }

	sessions := doRequest(t, env, http.MethodGet, "/auth/sessions", nil, auth)
	require.Equal(t, http.StatusOK, sessions.Code)
	var sessionList []sessionResponse
	require.NoError(t, json.Unmarshal(sessions.Body.Bytes(), &sessionList))
	assert.Len(t, sessionList, 1)

	events := doRequest(t, env, http.MethodGet, "/auth/events", nil, auth)
	require.Equal(t, http.StatusOK, events.Code)
	var eventList []authEventResponse
	require.NoError(t, json.Unmarshal(events.Body.Bytes(), &eventList))
	assert.NotEmpty(t, eventList)
}

func TestRevokeSessionRejectsForeignSession(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice@example.com", "correct horse", defaultScopes...)
	bob := env.createUser(t, "bob@example.com", "correct horse too", defaultScopes...)
	aliceBundle := env.issueBundle(t, alice)
	bobBundle := env.issueBundle(t, bob)

	rec := doRequest(t, env, http.MethodDelete, "/auth/sessions/"+bobBundle.Session.ID, nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+aliceBundle.AccessToken)
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
