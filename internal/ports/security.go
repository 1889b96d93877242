package ports

import (
	"time"

	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// AccessClaims is the decoded, validated claim set of an access token.
// JTI is the per-issuance identifier the session row pins; rotation of the
// stored jti is what invalidates older access tokens after a refresh.
type AccessClaims struct {
	UserID    uuid.UUID
	SessionID string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshClaims is the decoded claim set of a refresh token. No jti: the
// refresh token is bound to the session through its stored hash instead.
type RefreshClaims struct {
	UserID    uuid.UUID
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies the two token families. Parse methods do the
// full structural check (signature, expiry, declared type) and return typed
// claims exactly once; callers never touch raw claim maps.
type TokenIssuer interface {
	SignAccess(claims AccessClaims) (string, error)
	SignRefresh(claims RefreshClaims) (string, error)
	ParseAccess(raw string) (AccessClaims, error)
	ParseRefresh(raw string) (RefreshClaims, error)
}
