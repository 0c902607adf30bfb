package models

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/askbetter/internal/config"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaTimeout = 300 * time.Second
)

// NewOllama creates an Ollama chat model. Ollama needs no credential.
func NewOllama(ctx context.Context, cfg config.ModelConfig) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = defaultOllamaTimeout
	}

	opts := &einoollama.Options{NumPredict: cfg.MaxTokens}
	if v, ok := floatOption(cfg, "temperature"); ok {
		opts.Temperature = float32(v)
	}
	if v, ok := floatOption(cfg, "num_ctx"); ok {
		opts.NumCtx = int(v)
	}

	return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
		Timeout: timeout,
		Options: opts,
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: jsonOnlyTransport{next: http.DefaultTransport},
		},
	})
}

func floatOption(cfg config.ModelConfig, name string) (float64, bool) {
	v, ok := cfg.Options[name].(float64)
	return v, ok
}

// jsonOnlyTransport turns anything but a JSON answer into
// ErrModelUnavailable, so a proxy page such as "no available server" is
// reported as an unreachable model instead of a decode failure.
type jsonOnlyTransport struct {
	next http.RoundTripper
}

func (t jsonOnlyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, &ErrModelUnavailable{Provider: "ollama", Cause: err}
	}
	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode < 400 && (ct == "" || strings.Contains(ct, "json")) {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, &ErrModelUnavailable{Provider: "ollama", Body: strings.TrimSpace(string(body))}
}
