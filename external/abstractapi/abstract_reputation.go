package abstractapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ReputationValidator rejects disposable, role-based, and low-reputation
// addresses at registration time. Implements services.EmailValidator.
type ReputationValidator struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

func NewReputationValidator(apiKey string) (*ReputationValidator, error) {
	if apiKey == "" {
		return nil, errors.New("abstractapi: api key is required")
	}
	return &ReputationValidator{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: "https://emailreputation.abstractapi.com/v1/",
	}, nil
}

type reputationResponse struct {
	EmailReputation string `json:"email_reputation"` // LOW, MEDIUM, HIGH
	IsDisposable    bool   `json:"is_disposable_email"`
	IsRoleEmail     bool   `json:"is_role_email"`
}

func (v *ReputationValidator) Validate(ctx context.Context, email string) error {
	u, err := url.Parse(v.baseURL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("api_key", v.apiKey)
	q.Set("email", email)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email reputation service error: %s", resp.Status)
	}

	var out reputationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}

	if out.IsDisposable {
		return errors.New("disposable email is not allowed")
	}
	if out.IsRoleEmail {
		return errors.New("role-based email is not allowed")
	}
	if out.EmailReputation == "LOW" {
		return errors.New("email reputation is too low")
	}
	return nil
}
