package models

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/dohr-michael/askbetter/internal/config"
)

// GeminiGenerator sends prompts to the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGemini creates a Gemini generator.
func NewGemini(ctx context.Context, cfg config.ModelConfig, apiKey string) (*GeminiGenerator, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	genCfg := &genai.GenerateContentConfig{}
	if cfg.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(cfg.MaxTokens)
	}
	if temp, ok := cfg.Options["temperature"].(float64); ok {
		genCfg.Temperature = genai.Ptr(float32(temp))
	}

	return &GeminiGenerator{client: client, model: cfg.Model, config: genCfg}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", HandleError(err)
	}
	return resp.Text(), nil
}
