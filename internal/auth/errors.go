package auth

// InactiveUserError is raised by Issue when the target user is deactivated.
type InactiveUserError struct{}

func (e *InactiveUserError) Error() string { return "user is inactive" }

// InvalidCredentialsError covers a bad password or unknown user (spec §7);
// the two cases are deliberately indistinguishable to the caller.
type InvalidCredentialsError struct{}

func (e *InvalidCredentialsError) Error() string { return "incorrect email or password" }

// RefreshTokenError covers signature, type, session-lookup, and anti-CSRF
// mismatches during rotation.
type RefreshTokenError struct {
	Reason string
}

func (e *RefreshTokenError) Error() string { return e.Reason }

// RefreshTokenExpiredError is raised when a refresh session's expires_at has passed.
type RefreshTokenExpiredError struct{}

func (e *RefreshTokenExpiredError) Error() string { return "refresh session expired" }

// RefreshTokenReuseError is raised when a revoked or hash-mismatched
// refresh token is presented — signalling the whole family was compromised.
type RefreshTokenReuseError struct{}

func (e *RefreshTokenReuseError) Error() string { return "refresh token reuse detected" }
