package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
)

// mockSessionStore is a testify mock of the SessionStore interface the
// Token Service depends on. WithTx just invokes fn against the same mock,
// since the mock has no real transactional semantics to verify here — that
// is covered by the authrepo package's own tests against a real database.
type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) CreateRefreshSession(ctx context.Context, session *models.RefreshSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionStore) GetRefreshSession(ctx context.Context, id string) (*models.RefreshSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshSession), args.Error(1)
}

func (m *mockSessionStore) GetRefreshSessionByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshSession, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshSession), args.Error(1)
}

func (m *mockSessionStore) RevokeRefreshSession(ctx context.Context, session *models.RefreshSession, reason string, replacedBy *string) (bool, error) {
	args := m.Called(ctx, session, reason, replacedBy)
	if args.Bool(0) {
		now := time.Now()
		session.RevokedAt = &now
	}
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionStore) ListSessionsByFamily(ctx context.Context, familyID string) ([]*models.RefreshSession, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RefreshSession), args.Error(1)
}

func (m *mockSessionStore) RecordAuthEvent(ctx context.Context, event *models.AuthAuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockSessionStore) WithTx(ctx context.Context, fn func(ctx context.Context, store SessionStore) error) error {
	return fn(ctx, m)
}

func testTokenService(store SessionStore) *TokenService {
	return NewTokenService(TokenServiceConfig{
		AccessSecret:    "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "tfstatectl-test",
	}, store)
}

func TestIssueRejectsInactiveUser(t *testing.T) {
	store := new(mockSessionStore)
	svc := testTokenService(store)

	user := &models.User{ID: "u1", Email: "a@example.com", Active: false}
	_, err := svc.Issue(context.Background(), user, []string{"state:read"}, nil, nil)

	var inactiveErr *InactiveUserError
	require.ErrorAs(t, err, &inactiveErr)
	store.AssertNotCalled(t, "CreateRefreshSession")
}

func TestIssueMintsBundleAndRecordsAuditEvent(t *testing.T) {
	store := new(mockSessionStore)
	store.On("CreateRefreshSession", mock.Anything, mock.AnythingOfType("*models.RefreshSession")).Return(nil)
	store.On("RecordAuthEvent", mock.Anything, mock.MatchedBy(func(e *models.AuthAuditEvent) bool {
		return e.Event == "login_success"
	})).Return(nil)

	svc := testTokenService(store)
	user := &models.User{ID: "u1", Email: "a@example.com", Active: true}

	bundle, err := svc.Issue(context.Background(), user, []string{"state:read"}, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, bundle.AccessToken)
	assert.NotEmpty(t, bundle.RefreshToken)
	assert.NotEmpty(t, bundle.AntiCSRFToken)
	assert.Equal(t, "u1", bundle.Session.UserID)

	claims, err := svc.DecodeAccess(bundle.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, []string{"state:read"}, claims.Scopes)

	store.AssertExpectations(t)
}

func TestDecodeAccessRejectsWrongType(t *testing.T) {
	svc := testTokenService(new(mockSessionStore))

	// A refresh-typed token should never pass DecodeAccess, even though it
	// is signed with the same secret and otherwise well-formed.
	claims := &AccessClaims{
		Type: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = svc.DecodeAccess(signed)
	require.Error(t, err)
}

func TestDecodeAccessRejectsBadSignature(t *testing.T) {
	svc := testTokenService(new(mockSessionStore))

	claims := &AccessClaims{
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("a-different-secret"))
	require.NoError(t, err)

	_, err = svc.DecodeAccess(signed)
	require.Error(t, err)
}

func TestRotateDetectsForgedTokenAsUnknownSession(t *testing.T) {
	store := new(mockSessionStore)
	svc := testTokenService(store)

	// A forged token hashes to something no session row carries, so the
	// hash lookup itself fails — there's no session to flag as reused.
	store.On("GetRefreshSessionByTokenHash", mock.Anything, hashToken("a-forged-token")).Return(nil, assert.AnError)

	_, err := svc.Rotate(context.Background(), "a-forged-token", nil, nil, nil)

	var refreshErr *RefreshTokenError
	require.ErrorAs(t, err, &refreshErr)
	store.AssertExpectations(t)
}

func TestRotateDetectsAlreadyRevokedSessionAsReuse(t *testing.T) {
	store := new(mockSessionStore)
	svc := testTokenService(store)

	revokedAt := time.Now().Add(-time.Minute)
	family := "fam-1"
	session := &models.RefreshSession{
		ID:        "sess-1",
		UserID:    "u1",
		FamilyID:  family,
		TokenHash: HashToken("the-real-token"),
		AntiCSRF:  "csrf-1",
		RevokedAt: &revokedAt,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	store.On("GetRefreshSessionByTokenHash", mock.Anything, HashToken("the-real-token")).Return(session, nil)
	store.On("ListSessionsByFamily", mock.Anything, family).Return([]*models.RefreshSession{session}, nil)
	store.On("RecordAuthEvent", mock.Anything, mock.AnythingOfType("*models.AuthAuditEvent")).Return(nil)

	_, err := svc.Rotate(context.Background(), "the-real-token", nil, nil, nil)

	var reuseErr *RefreshTokenReuseError
	require.ErrorAs(t, err, &reuseErr)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "RevokeRefreshSession")
}

func TestRotateRejectsExpiredSession(t *testing.T) {
	store := new(mockSessionStore)
	svc := testTokenService(store)

	session := &models.RefreshSession{
		ID:        "sess-1",
		TokenHash: HashToken("plain"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	store.On("GetRefreshSessionByTokenHash", mock.Anything, HashToken("plain")).Return(session, nil)

	_, err := svc.Rotate(context.Background(), "plain", nil, nil, nil)
	var expiredErr *RefreshTokenExpiredError
	require.ErrorAs(t, err, &expiredErr)
}

func TestRotateRejectsAntiCSRFMismatch(t *testing.T) {
	store := new(mockSessionStore)
	svc := testTokenService(store)

	session := &models.RefreshSession{
		ID:        "sess-1",
		TokenHash: HashToken("plain"),
		AntiCSRF:  "expected-csrf",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	store.On("GetRefreshSessionByTokenHash", mock.Anything, HashToken("plain")).Return(session, nil)

	wrong := "wrong-csrf"
	_, err := svc.Rotate(context.Background(), "plain", &wrong, nil, nil)
	var refreshErr *RefreshTokenError
	require.ErrorAs(t, err, &refreshErr)
}

func TestRotateSucceedsAndRevokesPredecessor(t *testing.T) {
	store := new(mockSessionStore)
	svc := testTokenService(store)

	session := &models.RefreshSession{
		ID:        "sess-1",
		UserID:    "u1",
		FamilyID:  "fam-1",
		TokenHash: HashToken("plain"),
		AntiCSRF:  "csrf-1",
		Scopes:    models.StringList{"state:read"},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	store.On("GetRefreshSessionByTokenHash", mock.Anything, HashToken("plain")).Return(session, nil)
	store.On("RevokeRefreshSession", mock.Anything, session, "rotated", mock.AnythingOfType("*string")).Return(true, nil)
	store.On("CreateRefreshSession", mock.Anything, mock.AnythingOfType("*models.RefreshSession")).Return(nil)
	store.On("RecordAuthEvent", mock.Anything, mock.MatchedBy(func(e *models.AuthAuditEvent) bool {
		return e.Event == "refresh_rotated"
	})).Return(nil)

	bundle, err := svc.Rotate(context.Background(), "plain", nil, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, bundle.AccessToken)
	store.AssertExpectations(t)
}

func TestRotateTreatsLostRevokeRaceAsReuse(t *testing.T) {
	store := new(mockSessionStore)
	svc := testTokenService(store)

	session := &models.RefreshSession{
		ID:        "sess-1",
		UserID:    "u1",
		FamilyID:  "fam-1",
		TokenHash: HashToken("plain"),
		AntiCSRF:  "csrf-1",
		Scopes:    models.StringList{"state:read"},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	store.On("GetRefreshSessionByTokenHash", mock.Anything, HashToken("plain")).Return(session, nil)
	// A concurrent rotation won the race and already revoked this session;
	// our conditional UPDATE affects zero rows.
	store.On("RevokeRefreshSession", mock.Anything, session, "rotated", mock.AnythingOfType("*string")).Return(false, nil)
	store.On("RevokeRefreshSession", mock.Anything, session, "reuse_detected", mock.Anything).Return(false, nil)
	store.On("ListSessionsByFamily", mock.Anything, "fam-1").Return([]*models.RefreshSession{session}, nil)
	store.On("RecordAuthEvent", mock.Anything, mock.AnythingOfType("*models.AuthAuditEvent")).Return(nil)

	_, err := svc.Rotate(context.Background(), "plain", nil, nil, nil)
	var reuseErr *RefreshTokenReuseError
	require.ErrorAs(t, err, &reuseErr)
	store.AssertNotCalled(t, "CreateRefreshSession")
}

func TestRevokeIsIdempotent(t *testing.T) {
	store := new(mockSessionStore)
	svc := testTokenService(store)

	revokedAt := time.Now()
	session := &models.RefreshSession{ID: "sess-1", RevokedAt: &revokedAt}

	err := svc.Revoke(context.Background(), session, "user_revoked")
	require.NoError(t, err)
	store.AssertNotCalled(t, "RevokeRefreshSession")
}

func TestEnsureScopes(t *testing.T) {
	assert.True(t, EnsureScopes([]string{"state:read", "state:write"}, []string{"state:read"}))
	assert.False(t, EnsureScopes([]string{"state:read"}, []string{"state:write"}))
}
