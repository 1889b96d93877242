package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID            uuid.UUID  `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email             string     `gorm:"column:email"`
	PasswordHash      string     `gorm:"column:password_hash"`
	FullName          *string    `gorm:"column:full_name"`
	IsActive          bool       `gorm:"column:is_active"`
	IsVerified        bool       `gorm:"column:is_verified"`
	ResetTokenHash    *string    `gorm:"column:reset_token_hash"`
	ResetTokenExpires *time.Time `gorm:"column:reset_token_expires_at"`
	CurrentSessionID  *string    `gorm:"column:current_session_id"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type sessionModel struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID `gorm:"column:user_id"`
	SessionID        string    `gorm:"column:session_id"`
	RefreshTokenHash string    `gorm:"column:refresh_token_hash"`
	AccessTokenJTI   *string   `gorm:"column:access_token_jti"`
	IPAddress        *string   `gorm:"column:ip_address"`
	UserAgent        string    `gorm:"column:user_agent"`
	IsActive         bool      `gorm:"column:is_active"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	LastActivityAt   time.Time `gorm:"column:last_activity_at"`
	ExpiresAt        time.Time `gorm:"column:expires_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type authOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	FirstSeenAt    time.Time  `gorm:"column:first_seen_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (authOutboxModel) TableName() string { return "auth_outbox" }
