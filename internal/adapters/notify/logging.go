package notify

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/shieldops/auth/internal/ports"
)

// LoggingNotifier writes the reset link to the structured log instead of an
// email channel. Real delivery (SMTP, SendGrid) slots in behind the same
// Notifier port without touching the reset flow.
type LoggingNotifier struct {
	logger      *slog.Logger
	frontendURL string
}

func NewLoggingNotifier(logger *slog.Logger, frontendURL string) *LoggingNotifier {
	return &LoggingNotifier{logger: logger, frontendURL: frontendURL}
}

func (n *LoggingNotifier) SendPasswordReset(ctx context.Context, msg ports.PasswordResetNotification) error {
	resetURL := n.frontendURL + "/reset-password?token=" + url.QueryEscape(msg.Token)
	n.logger.InfoContext(ctx, "password reset notification",
		"module", "notify",
		"layer", "adapter",
		"operation", "send_password_reset",
		"outcome", "success",
		"email", msg.Email,
		"reset_url", resetURL,
		"expires_at", msg.ExpiresAt,
	)
	return nil
}
