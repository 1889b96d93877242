package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shieldops/auth/internal/domain"
	"github.com/shieldops/auth/internal/ports"
)

// EventTypePasswordResetRequested is enqueued in the same transaction as the
// reset-token write; the outbox worker routes it to the Notifier.
const EventTypePasswordResetRequested = "auth.password_reset.requested"

// RequestPasswordReset issues a one-time reset token for the account, if one
// exists. Unknown addresses return Accepted unchanged so responses never
// reveal which emails are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (ResetRequestResult, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return ResetRequestResult{}, err
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ResetRequestResult{Outcome: ResetRequestAccepted}, nil
		}
		return ResetRequestResult{}, err
	}

	now := s.nowFn()
	// Throttle keys off the row's generic updated_at, so any recent write to
	// the user suppresses a fresh token while an unexpired one exists.
	if user.ResetTokenHash != nil && user.ResetTokenExpires != nil && user.ResetTokenExpires.After(now) {
		if elapsed := now.Sub(user.UpdatedAt); elapsed < s.cfg.ResetRetryWindow {
			return ResetRequestResult{
				Outcome:    ResetRequestThrottled,
				RetryAfter: s.cfg.ResetRetryWindow - elapsed,
			}, nil
		}
	}

	token, err := randomToken()
	if err != nil {
		return ResetRequestResult{}, fmt.Errorf("generate reset token: %w", err)
	}
	expiresAt := now.Add(s.cfg.ResetTokenTTL)

	payload, _ := json.Marshal(ports.PasswordResetNotification{
		Email:     user.Email,
		FullName:  user.FullName,
		Token:     token,
		ExpiresAt: expiresAt,
	})
	event := ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    EventTypePasswordResetRequested,
		PartitionKey: user.UserID.String(),
		Payload:      payload,
		OccurredAt:   now,
	}

	if err := s.users.SetResetTokenTx(ctx, user.UserID, hashToken(token), expiresAt, now, event); err != nil {
		return ResetRequestResult{}, err
	}
	return ResetRequestResult{Outcome: ResetRequestAccepted}, nil
}

// ResetPassword consumes a one-time reset token. The token is matched by its
// sha256 hash and cleared in the same transaction as the password update, so
// a second presentation fails with the same answer as a bogus token.
// Existing sessions are left untouched.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePassword(req.NewPassword); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.users.ConsumeResetToken(ctx, hashToken(token), passwordHash, s.nowFn())
	return err
}
