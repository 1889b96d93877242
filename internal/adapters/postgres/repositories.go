package postgres

import (
	"gorm.io/gorm"

	"github.com/shieldops/auth/internal/ports"
)

type Repositories struct {
	Users    ports.UserRepository
	Sessions ports.SessionRepository
	Outbox   ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:    &userRepository{db: db},
		Sessions: &sessionRepository{db: db},
		Outbox:   &outboxRepository{db: db},
	}
}
