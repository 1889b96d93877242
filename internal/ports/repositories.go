package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shieldops/auth/internal/domain"
)

// CreateUserParams captures signup inputs. Email arrives already case-folded.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	FullName     string
	CreatedAtUTC time.Time
}

// UserRepository defines persistence operations for user identities.
// The reset-token write is transactional with its outbox event so the stored
// hash and the notification dispatch cannot diverge.
type UserRepository interface {
	Create(ctx context.Context, params CreateUserParams) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	SetResetTokenTx(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt, now time.Time, event OutboxEvent) error
	// ConsumeResetToken atomically matches an unexpired token hash, replaces
	// the password hash and clears the token fields. domain.ErrResetTokenInvalid
	// when no row matches.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error)
	// ClearCurrentSession nulls the current-session pointer only while it
	// still references sessionID, so a concurrent newer login is never clobbered.
	ClearCurrentSession(ctx context.Context, userID uuid.UUID, sessionID string, now time.Time) error
}

// StartSessionParams carries everything the login transaction persists.
// RefreshTokenHash is the sha256 of the raw refresh token, never the token itself.
type StartSessionParams struct {
	UserID           uuid.UUID
	SessionID        string
	RefreshTokenHash string
	AccessTokenJTI   string
	IPAddress        string
	UserAgent        string
	ExpiresAt        time.Time
	StartedAtUTC     time.Time
}

// SessionRepository manages persistent session lifecycle.
// StartLoginTx is the single-login enforcement point: it locks the user row,
// deactivates every live session of that user and inserts the replacement in
// one transaction, returning the displaced session ids for cache revocation.
type SessionRepository interface {
	StartLoginTx(ctx context.Context, params StartSessionParams) (domain.Session, []string, error)
	GetActive(ctx context.Context, userID uuid.UUID, sessionID string) (domain.Session, error)
	RotateAccessToken(ctx context.Context, id uuid.UUID, jti string, at time.Time) error
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error
	// Deactivate flips the session inactive; the bool reports whether a live
	// row was actually cleared, keeping logout idempotent.
	Deactivate(ctx context.Context, userID uuid.UUID, sessionID string, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) error
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	FirstSeenAt    time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls publish-retry workflow for domain events.
// This explicit contract enables transactional outbox patterns without leaking DB details.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}
