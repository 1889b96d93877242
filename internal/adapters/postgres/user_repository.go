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

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, params ports.CreateUserParams) (domain.User, error) {
	rec := userModel{
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		FullName:     nullableString(params.FullName),
		IsActive:     true,
		CreatedAt:    params.CreatedAtUTC,
		UpdatedAt:    params.CreatedAtUTC,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrDuplicateEmail
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

func (r *userRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return toDomainUser(rec), nil
}

// SetResetTokenTx stores the hashed reset token and enqueues the notification
// event in one transaction so a crash cannot leave a token without its email.
func (r *userRepository) SetResetTokenTx(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt, now time.Time, event ports.OutboxEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userModel{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"reset_token_hash":       tokenHash,
				"reset_token_expires_at": expiresAt,
				"updated_at":             now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		outbox := authOutboxModel{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      string(event.Payload),
			CreatedAt:    event.OccurredAt,
			FirstSeenAt:  event.OccurredAt,
		}
		return tx.Create(&outbox).Error
	})
}

func (r *userRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error) {
	var rec userModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reset_token_hash = ?", tokenHash).
			Where("reset_token_expires_at > ?", now).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrResetTokenInvalid
			}
			return err
		}
		return tx.Model(&userModel{}).
			Where("user_id = ?", rec.UserID).
			Updates(map[string]any{
				"password_hash":          passwordHash,
				"reset_token_hash":       nil,
				"reset_token_expires_at": nil,
				"updated_at":             now,
			}).Error
	})
	if err != nil {
		return uuid.Nil, err
	}
	return rec.UserID, nil
}

func (r *userRepository) ClearCurrentSession(ctx context.Context, userID uuid.UUID, sessionID string, now time.Time) error {
	// Conditional on the pointer still referencing this session: a login that
	// raced ahead of the logout keeps its own pointer untouched.
	return r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("user_id = ?", userID).
		Where("current_session_id = ?", sessionID).
		Updates(map[string]any{
			"current_session_id": nil,
			"updated_at":         now,
		}).Error
}
