package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical authentication identity aggregate.
// Password-reset state and the current-session pointer live on the user row
// so single-login enforcement and reset throttling stay one-row operations.
type User struct {
	UserID            uuid.UUID
	Email             string
	PasswordHash      string
	FullName          string
	IsActive          bool
	IsVerified        bool
	ResetTokenHash    *string
	ResetTokenExpires *time.Time
	CurrentSessionID  *string
	LastLoginAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Session models one login session. The opaque SessionID travels inside the
// signed tokens; the refresh token is persisted only as a sha256 hash and the
// access-token jti is overwritten on every refresh so stale access tokens die.
type Session struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	SessionID        string
	RefreshTokenHash string
	AccessTokenJTI   *string
	IPAddress        string
	UserAgent        string
	IsActive         bool
	CreatedAt        time.Time
	LastActivityAt   time.Time
	ExpiresAt        time.Time
}

// ExpiredAt reports whether the session has lapsed at the given instant.
// Expiry is lazy: rows are flipped inactive on the next reference, not by a reaper.
func (s Session) ExpiredAt(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
