package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail signals a signup against an already registered address.
	// Uniqueness is case-folded; the check rides on the DB unique index.
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrAccountInactive = errors.New("account inactive")
	// ErrTokenInvalid covers malformed tokens and bad signatures alike.
	ErrTokenInvalid      = errors.New("token invalid")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenTypeMismatch = errors.New("token type mismatch")
	// ErrSessionInvalidated is returned when a structurally valid token no
	// longer maps to a live session: displaced by a newer login, logged out,
	// or carrying a stale jti.
	ErrSessionInvalidated = errors.New("session invalidated")
	ErrSessionExpired     = errors.New("session expired")
	// ErrResetTokenInvalid deliberately conflates unknown, expired and
	// already-consumed reset tokens into one answer.
	ErrResetTokenInvalid = errors.New("reset token invalid or expired")
	ErrInvalidInput      = errors.New("invalid input")
)
