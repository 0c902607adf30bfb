// Package api is a client for the askbetter gateway.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dohr-michael/askbetter/internal/auth"
	"github.com/dohr-michael/askbetter/internal/docstore"
)

// Status is the model status reported by the gateway.
type Status struct {
	Model       string `json:"model"`
	Ready       bool   `json:"ready"`
	ConfigError string `json:"config_error,omitempty"`
}

// HistoryEntry is one saved conversation.
type HistoryEntry struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Timestamp time.Time          `json:"timestamp"`
	ChatLog   []docstore.Message `json:"chat_log"`
}

// Session is the result of a sign-in.
type Session struct {
	User    *auth.User        `json:"user"`
	Token   string            `json:"token"`
	Profile *docstore.Profile `json:"profile,omitempty"`
}

// Error is a failed API call.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s (%d)", e.Message, e.Status)
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Ignored bool            `json:"ignored"`
	Warning string          `json:"warning"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the gateway HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New creates a client for the gateway at baseURL (e.g. http://127.0.0.1:18430).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// Token returns the session token, or "" before sign-in.
func (c *Client) Token() string { return c.token }

// SignIn opens a session and keeps its token for later calls.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/signin", body, &s); err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

// SignOut closes the session.
func (c *Client) SignOut(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// Status returns the model status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	if _, err := c.do(ctx, http.MethodGet, "/api/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// History returns the saved conversations, newest first.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	var list []HistoryEntry
	if _, err := c.do(ctx, http.MethodGet, "/api/history", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (*envelope, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: "malformed response"}
	}
	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{Status: resp.StatusCode, Message: msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return &env, nil
}

// IsUnauthorized reports whether err is a rejected session or credentials.
func IsUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusUnauthorized
}
