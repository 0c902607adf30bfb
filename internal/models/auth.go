package models

import (
	"fmt"
	"os"
	"strings"

	"github.com/dohr-michael/askbetter/internal/config"
	"github.com/dohr-michael/askbetter/internal/secrets"
)

// ResolveAuth resolves the API key for a model endpoint.
// Resolution order: config api_key (literal or ${VAR}) → driver default env.
// Values sealed with the askbetter key are opened. Ollama needs no key and
// resolves to "".
func ResolveAuth(cfg config.ModelConfig) (string, error) {
	key, err := lookupKey(cfg)
	if err != nil || key == "" {
		return key, err
	}
	key, err = secrets.Reveal(key)
	if err != nil {
		return "", fmt.Errorf("open sealed api key: %w", err)
	}
	return key, nil
}

// EnvVars returns the environment variables checked for the driver's key.
func EnvVars(driver string) []string {
	switch strings.ToLower(driver) {
	case "gemini":
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case "anthropic":
		return []string{"ANTHROPIC_API_KEY"}
	case "openai":
		return []string{"OPENAI_API_KEY"}
	default:
		return nil
	}
}

func lookupKey(cfg config.ModelConfig) (string, error) {
	if key := resolveValue(cfg.Auth.APIKey); key != "" {
		return key, nil
	}

	if strings.EqualFold(cfg.Driver, "ollama") {
		return "", nil
	}
	vars := EnvVars(cfg.Driver)
	if len(vars) == 0 {
		return "", fmt.Errorf("unknown driver %q: cannot resolve auth", cfg.Driver)
	}
	for _, name := range vars {
		if key := os.Getenv(name); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("%s not set", vars[0])
}

func resolveValue(v string) string {
	trimmed := strings.TrimSpace(v)
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
		return os.Getenv(trimmed[2 : len(trimmed)-1])
	}
	return trimmed
}
