package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.jsonc")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
	// This is a JSONC comment
	"gateway": {
		"host": "0.0.0.0",
		"port": 9999,
	},
	"model": {
		"driver": "gemini",
		"model": "gemini-2.5-flash",
		"auth": {
			"api_key": "${{ .Env.GEMINI_API_KEY }}"
		},
		"timeout": "45s",
	},
	"storage": {"driver": "file", "path": "/tmp/ab"},
}`)

	t.Setenv("GEMINI_API_KEY", "test-key-123")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Gateway.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Gateway.Port)
	}
	if cfg.Model.Model != "gemini-2.5-flash" {
		t.Errorf("expected model gemini-2.5-flash, got %s", cfg.Model.Model)
	}
	if cfg.Model.Auth.APIKey != "test-key-123" {
		t.Errorf("expected api_key test-key-123, got %s", cfg.Model.Auth.APIKey)
	}
	if cfg.Model.Timeout.Duration() != 45*time.Second {
		t.Errorf("expected timeout 45s, got %s", cfg.Model.Timeout.Duration())
	}
	if cfg.Storage.Driver != "file" || cfg.Storage.Path != "/tmp/ab" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ASKBETTER_PATH", "/tmp/ab-home")

	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Gateway.Host != "127.0.0.1" {
		t.Errorf("expected default host 127.0.0.1, got %s", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 18430 {
		t.Errorf("expected default port 18430, got %d", cfg.Gateway.Port)
	}
	if cfg.Model.Driver != "gemini" {
		t.Errorf("expected default driver gemini, got %q", cfg.Model.Driver)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/tmp/ab-home/askbetter.db" {
		t.Errorf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Auth.SessionTTL.Duration() != 30*24*time.Hour {
		t.Errorf("expected 30d session ttl, got %s", cfg.Auth.SessionTTL.Duration())
	}
	if cfg.Events.BufferSize != 1024 {
		t.Errorf("expected default buffer 1024, got %d", cfg.Events.BufferSize)
	}
	if cfg.UI.DefaultLanguage != "en" || cfg.UI.DefaultTheme != "light" {
		t.Errorf("unexpected ui defaults %+v", cfg.UI)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"gateway": `)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOrDefault_Missing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.jsonc"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Gateway.Port != 18430 {
		t.Errorf("expected defaults, got port %d", cfg.Gateway.Port)
	}
}

func TestExpandEnvTemplates(t *testing.T) {
	t.Setenv("TEST_KEY", "my-secret")
	result := expandEnvTemplates(`{"key": "${{ .Env.TEST_KEY }}"}`)
	expected := `{"key": "my-secret"}`
	if result != expected {
		t.Errorf("expected %s, got %s", expected, result)
	}
}

func TestDatabasePath(t *testing.T) {
	sqlite := StorageConfig{Driver: "sqlite", Path: "/data/askbetter.db"}
	if got := sqlite.DatabasePath(); got != "/data/askbetter.db" {
		t.Errorf("sqlite DatabasePath = %q", got)
	}
	file := StorageConfig{Driver: "file", Path: "/data/docs"}
	if got := file.DatabasePath(); got != filepath.Join("/data/docs", "accounts.db") {
		t.Errorf("file DatabasePath = %q", got)
	}
}
