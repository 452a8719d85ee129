// Package client is a typed HTTP client for the coordinator API. It replaces
// the ambient auth state of the reference front end with an explicit Session:
// Login and Register populate it, Authorization headers are derived from it,
// Logout clears it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmeebeau/capstone-final/internal/model"
)

// Session is the client-side view of an authenticated login.
type Session struct {
	Token       string             `json:"token"`
	Coordinator *model.Coordinator `json:"coordinator"`
}

// APIError carries the server's error envelope and status code.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	session *Session
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Session returns the current session, or nil when logged out.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Hydrate installs a previously stored session (e.g. loaded from disk on
// start). It does not validate the token.
func (c *Client) Hydrate(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

type RegisterForm struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Contact   string `json:"contact"`
	Address   string `json:"address"`
}

// Register creates an account. It does not log in; callers follow up with
// Login, mirroring the reference flow.
func (c *Client) Register(ctx context.Context, form RegisterForm) (*model.Coordinator, error) {
	var out model.Coordinator
	if err := c.do(ctx, http.MethodPost, "/coordinators/register", map[string]any{"data": form}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates and stores the resulting session on the client.
func (c *Client) Login(ctx context.Context, identifier, password string) (*Session, error) {
	var out struct {
		Coordinator *model.Coordinator `json:"coordinator"`
		Token       string             `json:"token"`
	}
	body := map[string]string{"identifier": identifier, "password": password}
	if err := c.do(ctx, http.MethodPost, "/coordinators/login", body, &out, false); err != nil {
		return nil, err
	}
	s := &Session{Token: out.Token, Coordinator: out.Coordinator}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return s, nil
}

// Logout clears the session. The server call is best-effort; the session is
// cleared regardless of its outcome.
func (c *Client) Logout(ctx context.Context) {
	_ = c.do(ctx, http.MethodPost, "/coordinators/logout", nil, nil, false)
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

func (c *Client) Profile(ctx context.Context, id int64) (*model.Coordinator, error) {
	var out model.Coordinator
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/coordinators/%d", id), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

type UpdateForm struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Contact         string `json:"contact"`
	Address         string `json:"address"`
	Role            string `json:"role,omitempty"`
	CurrentPassword string `json:"current_password,omitempty"`
	NewPassword     string `json:"new_password,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, id int64, form UpdateForm) (*model.Coordinator, error) {
	var out model.Coordinator
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/coordinators/%d", id), map[string]any{"data": form}, &out, true); err != nil {
		return nil, err
	}
	// keep the session copy fresh when updating ourselves
	c.mu.Lock()
	if c.session != nil && c.session.Coordinator != nil && c.session.Coordinator.ID == out.ID {
		c.session.Coordinator = &out
	}
	c.mu.Unlock()
	return &out, nil
}

// VerifyPassword pre-validates the current password before a profile submit.
func (c *Client) VerifyPassword(ctx context.Context, id int64, password string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	body := map[string]any{"user_id": id, "old_password": password}
	if err := c.do(ctx, http.MethodPost, "/coordinators/verify-password", body, &out, true); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// ListCoordinators fetches every account; the server enforces Admin.
func (c *Client) ListCoordinators(ctx context.Context) ([]model.Coordinator, error) {
	var out []model.Coordinator
	if err := c.do(ctx, http.MethodGet, "/coordinators", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var buf *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(b)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.token())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var envelope struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.Error == "" {
			envelope.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: envelope.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
