package ports

import (
	"context"
	"time"
)

// SessionRevocationStore keeps revocation markers with token-aligned TTL.
// It is an advisory fast path: the session row stays authoritative, the
// marker just lets sibling services reject displaced tokens without a DB hit.
type SessionRevocationStore interface {
	MarkRevoked(ctx context.Context, sessionID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}
