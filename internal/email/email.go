package email

import (
	"context"
	"fmt"

	"github.com/authstarter/backend/internal/logger"
)

// Mailer delivers transactional mail. Best-effort: a failure propagates to
// the caller of the forgot-password flow as an unexpected error.
type Mailer interface {
	SendPasswordResetEmail(ctx context.Context, to, resetLink string) error
}

// ConsoleMailer logs the reset link instead of sending anything. Used in
// development and tests.
type ConsoleMailer struct {
	log *logger.Logger
}

func NewConsoleMailer(log *logger.Logger) *ConsoleMailer {
	return &ConsoleMailer{log: log}
}

func (m *ConsoleMailer) SendPasswordResetEmail(ctx context.Context, to, resetLink string) error {
	m.log.Info(ctx, "password reset email (console provider)", map[string]interface{}{
		"to":         to,
		"reset_link": resetLink,
	})
	return nil
}

// NewMailer selects a provider by name.
func NewMailer(provider, from, resendAPIKey string, log *logger.Logger) (Mailer, error) {
	switch provider {
	case "console":
		return NewConsoleMailer(log), nil
	case "resend":
		if resendAPIKey == "" {
			return nil, fmt.Errorf("resend email provider requires RESEND_API_KEY")
		}
		return NewResendMailer(resendAPIKey, from), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", provider)
	}
}
