package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ilyafedotov-ops/tfstatectl/internal/auth"
	"github.com/ilyafedotov-ops/tfstatectl/internal/authrepo"
	"github.com/ilyafedotov-ops/tfstatectl/internal/backendadapter"
	"github.com/ilyafedotov-ops/tfstatectl/internal/drift"
	"github.com/ilyafedotov-ops/tfstatectl/internal/planstore"
	"github.com/ilyafedotov-ops/tfstatectl/internal/statestore"
	"github.com/ilyafedotov-ops/tfstatectl/internal/tfstate"
)

// errorResponse is the JSON body written for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a typed internal error to the HTTP surface documented for
// the State and Auth engines, clearing the refresh cookie for any
// authentication failure.
func writeError(w http.ResponseWriter, r *http.Request, cookieName string, err error) {
	status, retryAfter := classify(err)

	switch {
	case errors.As(err, new(*auth.RefreshTokenError)),
		errors.As(err, new(*auth.RefreshTokenExpiredError)),
		errors.As(err, new(*auth.RefreshTokenReuseError)):
		clearRefreshCookie(w, cookieName)
	}

	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func classify(err error) (status int, retryAfterSeconds int) {
	var (
		backendErr       *backendadapter.BackendError
		parseErr         *tfstate.ParseError
		validationErr    *drift.ValidationError
		notFoundErr      *statestore.NotFoundError
		planNotFoundErr  *planstore.NotFoundError
		mutationErr      *statestore.MutationError
		invalidCredsErr  *auth.InvalidCredentialsError
		inactiveErr      *auth.InactiveUserError
		refreshErr       *auth.RefreshTokenError
		refreshExpErr    *auth.RefreshTokenExpiredError
		refreshReuseErr  *auth.RefreshTokenReuseError
		rateLimitedErr   *RateLimitedError
		conflictErr      *authrepo.ConflictError
		authNotFoundErr  *authrepo.NotFoundError
	)

	switch {
	case errors.As(err, &backendErr):
		return http.StatusBadRequest, 0
	case errors.As(err, &parseErr):
		return http.StatusBadRequest, 0
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, 0
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, 0
	case errors.As(err, &planNotFoundErr):
		return http.StatusNotFound, 0
	case errors.As(err, &mutationErr):
		return http.StatusBadRequest, 0
	case errors.As(err, &invalidCredsErr):
		return http.StatusUnauthorized, 0
	case errors.As(err, &inactiveErr):
		return http.StatusForbidden, 0
	case errors.As(err, &refreshErr):
		return http.StatusUnauthorized, 0
	case errors.As(err, &refreshExpErr):
		return http.StatusUnauthorized, 0
	case errors.As(err, &refreshReuseErr):
		return http.StatusUnauthorized, 0
	case errors.As(err, &rateLimitedErr):
		return http.StatusTooManyRequests, rateLimitedErr.RetrySeconds
	case errors.As(err, &conflictErr):
		return http.StatusConflict, 0
	case errors.As(err, &authNotFoundErr):
		return http.StatusNotFound, 0
	default:
		return http.StatusInternalServerError, 0
	}
}

// RateLimitedError signals an active login lockout.
type RateLimitedError struct {
	RetrySeconds int
}

func (e *RateLimitedError) Error() string { return "too many login attempts" }
