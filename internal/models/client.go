// Package models wraps the generative model endpoints behind a single
// prompt-in, text-out client.
package models

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dohr-michael/askbetter/internal/config"
	"github.com/dohr-michael/askbetter/internal/events"
)

// Generator sends one prompt and returns the reply text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ConfigError reports a model endpoint that cannot be used because of
// missing or invalid configuration.
type ConfigError struct {
	Driver string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("model %q is not configured: %v", e.Driver, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Client is the configured model endpoint. A client built from an invalid
// configuration is never ready and reports why through ConfigError.
type Client struct {
	name    string
	gen     Generator
	cfgErr  error
	timeout time.Duration
	bus     *events.Bus
}

// New builds a client for cfg. It never fails: configuration problems are
// kept on the client and surfaced by Ready and ConfigError.
func New(ctx context.Context, cfg config.ModelConfig, bus *events.Bus) *Client {
	c := &Client{name: modelName(cfg), timeout: cfg.Timeout.Duration(), bus: bus}

	gen, err := createGenerator(ctx, cfg)
	if err != nil {
		c.cfgErr = &ConfigError{Driver: cfg.Driver, Err: err}
		slog.Warn("model client not ready", "driver", cfg.Driver, "error", err)
		return c
	}
	c.gen = gen
	slog.Debug("model client ready", "driver", cfg.Driver, "model", c.name)
	return c
}

// NewWithGenerator builds a ready client around gen.
func NewWithGenerator(name string, gen Generator, bus *events.Bus) *Client {
	return &Client{name: name, gen: gen, bus: bus}
}

// Ready reports whether the client can send prompts.
func (c *Client) Ready() bool {
	return c != nil && c.gen != nil
}

// ConfigError returns the configuration problem, or nil when ready.
func (c *Client) ConfigError() error {
	if c == nil {
		return &ConfigError{Err: fmt.Errorf("no model client")}
	}
	return c.cfgErr
}

// Name returns the model identifier.
func (c *Client) Name() string { return c.name }

// Generate sends prompt to the model and returns the reply text.
// An empty reply is an error.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Ready() {
		return "", c.ConfigError()
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.gen.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyReply
	}
	c.trace(time.Since(start), err)

	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) trace(d time.Duration, err error) {
	if c.bus == nil {
		return
	}
	payload := events.ModelCallPayload{Model: c.name, Duration: d}
	if err != nil {
		payload.Error = err.Error()
	}
	c.bus.Publish(events.NewTypedEvent(events.SourceDialogue, payload))
}
