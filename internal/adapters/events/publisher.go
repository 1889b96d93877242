package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shieldops/auth/internal/application"
	"github.com/shieldops/auth/internal/ports"
)

// LoggingPublisher records events instead of shipping them to a broker.
// Kept for event types that only need an audit trail.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.logger.InfoContext(ctx, "published event", "event_type", eventType, "payload", string(payload))
	return nil
}

// NotifyPublisher routes password-reset events to the Notifier port and
// delegates everything else to a fallback publisher. It is the bridge between
// the durable outbox and the actual delivery channel.
type NotifyPublisher struct {
	notifier ports.Notifier
	fallback ports.EventPublisher
}

func NewNotifyPublisher(notifier ports.Notifier, fallback ports.EventPublisher) *NotifyPublisher {
	return &NotifyPublisher{notifier: notifier, fallback: fallback}
}

func (p *NotifyPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	if eventType != application.EventTypePasswordResetRequested {
		return p.fallback.Publish(ctx, eventType, payload)
	}

	var n ports.PasswordResetNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return fmt.Errorf("decode password reset payload: %w", err)
	}
	return p.notifier.SendPasswordReset(ctx, n)
}
