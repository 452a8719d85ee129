package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// Mailer sends transactional mail through the Resend HTTP API.
// Implements services.Mailer.
type Mailer struct {
	apiKey  string
	from    string
	client  *http.Client
	baseURL string
}

func NewMailer(apiKey, from string) (*Mailer, error) {
	if apiKey == "" {
		return nil, errors.New("resend: api key is required")
	}
	return &Mailer{
		apiKey:  apiKey,
		from:    from,
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: "https://api.resend.com",
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendWelcomeEmail greets a freshly registered coordinator. Callers treat
// failures as non-fatal.
func (m *Mailer) SendWelcomeEmail(ctx context.Context, toEmail, firstName string) error {
	body := sendRequest{
		From:    m.from,
		To:      []string{toEmail},
		Subject: "Welcome aboard",
		HTML: `
			<p>Hi ` + firstName + `,</p>
			<p>Your coordinator account has been created. You can now log in
			and manage your profile.</p>
		`,
	}

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewBuffer(b))
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

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return errors.New("failed to send welcome email: " + string(msg))
	}
	return nil
}
