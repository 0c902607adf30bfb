package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/dohr-michael/askbetter/internal/config"
)

const (
	defaultGeminiModel    = "gemini-2.5-flash"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-sonnet-4-6"
	defaultOllamaModel    = "llama3.2"
)

func modelName(cfg config.ModelConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	switch strings.ToLower(cfg.Driver) {
	case "gemini":
		return defaultGeminiModel
	case "openai":
		return defaultOpenAIModel
	case "anthropic":
		return defaultAnthropicModel
	case "ollama":
		return defaultOllamaModel
	default:
		return ""
	}
}

// createGenerator builds the driver-specific generator for cfg.
func createGenerator(ctx context.Context, cfg config.ModelConfig) (Generator, error) {
	cfg.Model = modelName(cfg)

	switch strings.ToLower(cfg.Driver) {
	case "gemini":
		key, err := ResolveAuth(cfg)
		if err != nil {
			return nil, err
		}
		return NewGemini(ctx, cfg, key)
	case "anthropic":
		key, err := ResolveAuth(cfg)
		if err != nil {
			return nil, err
		}
		return NewAnthropic(cfg, key), nil
	case "openai":
		key, err := ResolveAuth(cfg)
		if err != nil {
			return nil, err
		}
		m, err := NewOpenAI(ctx, cfg, key)
		if err != nil {
			return nil, err
		}
		return &chatModelGenerator{model: m}, nil
	case "ollama":
		m, err := NewOllama(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &chatModelGenerator{model: m}, nil
	default:
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}
}
