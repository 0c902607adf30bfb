// Package config loads the askbetter configuration file and environment.
package config

import (
	"path/filepath"
	"time"
)

// Config is the root configuration for askbetter.
type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Model   ModelConfig   `json:"model"`
	Storage StorageConfig `json:"storage"`
	Auth    AuthConfig    `json:"auth"`
	Events  EventsConfig  `json:"events"`
	UI      UIConfig      `json:"ui"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host      string          `json:"host"`
	Port      int             `json:"port"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// RateLimitConfig bounds auth requests per client IP.
type RateLimitConfig struct {
	PerSecond float64 `json:"per_second"`
	Burst     int     `json:"burst"`
}

// ModelConfig configures the generative model endpoint.
type ModelConfig struct {
	Driver    string           `json:"driver"` // "gemini", "openai", "ollama", "anthropic"
	Model     string           `json:"model"`
	BaseURL   string           `json:"base_url,omitempty"`
	Auth      CredentialConfig `json:"auth"`
	MaxTokens int              `json:"max_tokens,omitempty"`
	Timeout   Duration         `json:"timeout,omitempty"`
	Options   map[string]any   `json:"options,omitempty"`
}

// CredentialConfig configures API key resolution.
type CredentialConfig struct {
	APIKey string `json:"api_key,omitempty"` // direct key, ${VAR} or ${{ .Env.VAR }} template
}

// StorageConfig selects where accounts, profiles and chat history live.
type StorageConfig struct {
	Driver string `json:"driver"` // "sqlite" or "file"
	Path   string `json:"path"`
}

// DatabasePath returns the SQLite file holding accounts. The file driver
// keeps it inside its data directory.
func (s StorageConfig) DatabasePath() string {
	if s.Driver == "file" {
		return filepath.Join(s.Path, "accounts.db")
	}
	return s.Path
}

// AuthConfig holds account session settings.
type AuthConfig struct {
	SessionTTL Duration   `json:"session_ttl,omitempty"`
	ResetTTL   Duration   `json:"reset_ttl,omitempty"`
	ResetURL   string     `json:"reset_url,omitempty"` // link template; the token is appended as ?token=
	Mail       MailConfig `json:"mail,omitempty"`
}

// MailConfig configures the SMTP relay that delivers password reset links.
// Without a host, reset links are only logged, with the token redacted.
type MailConfig struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"` // ${{ .Env.VAR }} template or an age-sealed value
	From     string `json:"from,omitempty"`
	TLS      string `json:"tls,omitempty"` // "mandatory" (default), "opportunistic" or "none"
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// UIConfig holds presentation defaults.
type UIConfig struct {
	DefaultLanguage string `json:"default_language"`
	DefaultTheme    string `json:"default_theme"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
