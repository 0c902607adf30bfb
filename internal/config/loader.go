package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/tailscale/hujson"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates,
// strips comments and trailing commas, unmarshals it into Config, and
// applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand before standardizing, templates live inside string literals.
	expanded := expandEnvTemplates(string(data))

	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to a default config when the file
// is missing. Any other error is returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		cfg = &Config{}
		ApplyDefaults(cfg)
		return cfg, nil
	}
	return nil, err
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18430
	}
	if cfg.Gateway.RateLimit.PerSecond == 0 {
		cfg.Gateway.RateLimit.PerSecond = 1
	}
	if cfg.Gateway.RateLimit.Burst == 0 {
		cfg.Gateway.RateLimit.Burst = 5
	}
	if cfg.Model.Driver == "" {
		cfg.Model.Driver = "gemini"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.Path == "" {
		if cfg.Storage.Driver == "file" {
			cfg.Storage.Path = filepath.Join(HomePath(), "data")
		} else {
			cfg.Storage.Path = filepath.Join(HomePath(), "askbetter.db")
		}
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = Duration(30 * 24 * time.Hour)
	}
	if cfg.Auth.ResetTTL == 0 {
		cfg.Auth.ResetTTL = Duration(time.Hour)
	}
	if cfg.Auth.Mail.Host != "" && cfg.Auth.Mail.Port == 0 {
		cfg.Auth.Mail.Port = 587
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}
	if cfg.UI.DefaultLanguage == "" {
		cfg.UI.DefaultLanguage = "en"
	}
	if cfg.UI.DefaultTheme == "" {
		cfg.UI.DefaultTheme = "light"
	}
	// Credential resolution is deferred to models.ResolveAuth().
}
