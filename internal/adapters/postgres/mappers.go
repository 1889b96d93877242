package postgres

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/shieldops/auth/internal/domain"
)

func toDomainUser(row userModel) domain.User {
	fullName := ""
	if row.FullName != nil {
		fullName = *row.FullName
	}
	return domain.User{
		UserID:            row.UserID,
		Email:             row.Email,
		PasswordHash:      row.PasswordHash,
		FullName:          fullName,
		IsActive:          row.IsActive,
		IsVerified:        row.IsVerified,
		ResetTokenHash:    row.ResetTokenHash,
		ResetTokenExpires: row.ResetTokenExpires,
		CurrentSessionID:  row.CurrentSessionID,
		LastLoginAt:       row.LastLoginAt,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func toDomainSession(row sessionModel) domain.Session {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.Session{
		ID:               row.ID,
		UserID:           row.UserID,
		SessionID:        row.SessionID,
		RefreshTokenHash: row.RefreshTokenHash,
		AccessTokenJTI:   row.AccessTokenJTI,
		IPAddress:        ip,
		UserAgent:        row.UserAgent,
		IsActive:         row.IsActive,
		CreatedAt:        row.CreatedAt,
		LastActivityAt:   row.LastActivityAt,
		ExpiresAt:        row.ExpiresAt,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
