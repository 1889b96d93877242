package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shieldops/auth/internal/domain"
	"github.com/shieldops/auth/internal/ports"
)

type sessionRepository struct {
	db *gorm.DB
}

// StartLoginTx enforces the single-session invariant. The FOR UPDATE lock on
// the user row serializes concurrent logins for the same account, so exactly
// one session survives regardless of interleaving.
func (r *sessionRepository) StartLoginTx(ctx context.Context, params ports.StartSessionParams) (domain.Session, []string, error) {
	var rec sessionModel
	var displaced []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user userModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", params.UserID).
			Take(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		if err := tx.Model(&sessionModel{}).
			Where("user_id = ?", params.UserID).
			Where("is_active = TRUE").
			Pluck("session_id", &displaced).Error; err != nil {
			return err
		}
		if len(displaced) > 0 {
			if err := tx.Model(&sessionModel{}).
				Where("user_id = ?", params.UserID).
				Where("is_active = TRUE").
				Updates(map[string]any{
					"is_active":        false,
					"last_activity_at": params.StartedAtUTC,
				}).Error; err != nil {
				return err
			}
		}

		jti := params.AccessTokenJTI
		rec = sessionModel{
			UserID:           params.UserID,
			SessionID:        params.SessionID,
			RefreshTokenHash: params.RefreshTokenHash,
			AccessTokenJTI:   &jti,
			IPAddress:        nullableString(params.IPAddress),
			UserAgent:        params.UserAgent,
			IsActive:         true,
			CreatedAt:        params.StartedAtUTC,
			LastActivityAt:   params.StartedAtUTC,
			ExpiresAt:        params.ExpiresAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		return tx.Model(&userModel{}).
			Where("user_id = ?", params.UserID).
			Updates(map[string]any{
				"current_session_id": params.SessionID,
				"last_login_at":      params.StartedAtUTC,
				"updated_at":         params.StartedAtUTC,
			}).Error
	})
	if err != nil {
		return domain.Session{}, nil, err
	}
	return toDomainSession(rec), displaced, nil
}

func (r *sessionRepository) GetActive(ctx context.Context, userID uuid.UUID, sessionID string) (domain.Session, error) {
	var rec sessionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("session_id = ?", sessionID).
		Where("is_active = TRUE").
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) RotateAccessToken(ctx context.Context, id uuid.UUID, jti string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"access_token_jti": jti,
			"last_activity_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sessionRepository) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("id = ?", id).
		Update("last_activity_at", at).Error
}

func (r *sessionRepository) Deactivate(ctx context.Context, userID uuid.UUID, sessionID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("user_id = ?", userID).
		Where("session_id = ?", sessionID).
		Where("is_active = TRUE").
		Updates(map[string]any{
			"is_active":        false,
			"last_activity_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *sessionRepository) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":        false,
			"last_activity_at": at,
		}).Error
}
