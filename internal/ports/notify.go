package ports

import (
	"context"
	"time"
)

// PasswordResetNotification carries everything a delivery channel needs to
// build the reset link. Token is the raw one-time token; only its hash is persisted.
type PasswordResetNotification struct {
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Token     string    `json:"reset_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier delivers user-facing notifications. Implementations sit behind the
// outbox worker, so failures here are retried and eventually dead-lettered
// rather than surfaced to the requesting client.
type Notifier interface {
	SendPasswordReset(ctx context.Context, n PasswordResetNotification) error
}
