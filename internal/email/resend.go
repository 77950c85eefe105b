package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/authstarter/backend/internal/errors"
)

const resendEndpoint = "https://api.resend.com/emails"

// ResendMailer sends through the Resend HTTP API. Transient failures are
// retried with short backoff since the call happens inside a user-facing
// request.
type ResendMailer struct {
	apiKey string
	from   string
	client *http.Client
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *ResendMailer) SendPasswordResetEmail(ctx context.Context, to, resetLink string) error {
	body := resendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "Reset your password",
		HTML: fmt.Sprintf(
			`<p>You requested a password reset.</p><p>Click here to reset your password:</p><a href="%s">%s</a>`,
			resetLink, resetLink,
		),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	return apperrors.Retry(ctx, apperrors.EmailRetryConfig(), func(ctx context.Context) error {
		return m.send(ctx, payload)
	})
}

func (m *ResendMailer) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return apperrors.New("EMAIL_PROVIDER_ERROR",
			fmt.Sprintf("resend returned status %d", resp.StatusCode),
			apperrors.CategoryExternal, http.StatusBadGateway)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend rejected the request with status %d", resp.StatusCode)
	}
	return nil
}
