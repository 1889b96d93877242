package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/shieldops/auth/internal/domain"
)

type Config struct {
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	SessionTTL       time.Duration
	ResetTokenTTL    time.Duration
	ResetRetryWindow time.Duration
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type UserInfo struct {
	UserID     uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name,omitempty"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// TokenPair is the login/refresh response envelope.
type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         UserInfo `json:"user"`
}

// LogoutState distinguishes the expected no-op outcomes from real storage
// failures. None of them propagate to the client; the handler logs failures
// and returns the generic success either way.
type LogoutState int

const (
	// LogoutSessionCleared means a live session was deactivated.
	LogoutSessionCleared LogoutState = iota
	// LogoutNothingToClear covers missing/invalid tokens and sessions that
	// were already inactive.
	LogoutNothingToClear
	// LogoutStorageError means deactivation was attempted but persistence failed.
	LogoutStorageError
)

type LogoutResult struct {
	State LogoutState
	// Err is set only for LogoutStorageError.
	Err error
}

// ResetRequestOutcome tags the two externally identical answers of a reset
// request so the handler can embed the remaining wait without the service
// formatting messages.
type ResetRequestOutcome int

const (
	ResetRequestAccepted ResetRequestOutcome = iota
	ResetRequestThrottled
)

type ResetRequestResult struct {
	Outcome ResetRequestOutcome
	// RetryAfter is the remaining throttle window, set when throttled.
	RetryAfter time.Duration
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func toUserInfo(u domain.User) UserInfo {
	return UserInfo{
		UserID:     u.UserID,
		Email:      u.Email,
		FullName:   u.FullName,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}
