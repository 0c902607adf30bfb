// Package dialogue drives a single refinement conversation: it builds the
// prompt for the selected mode and tone, calls the model once per turn and
// extracts the graded sections from the reply.
package dialogue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dohr-michael/askbetter/internal/docstore"
	"github.com/dohr-michael/askbetter/internal/modes"
)

var (
	ErrBlankInput  = errors.New("input is empty")
	ErrNotReady    = errors.New("model client is not configured")
	ErrInFlight    = errors.New("a request is already in flight")
	ErrUnknownMode = errors.New("unknown mode")
	ErrUnknownTone = errors.New("unknown tone")
)

// Sender identifies the author of a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one transcript entry. Messages are append-only.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func newMessage(sender Sender, text string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		CreatedAt: now,
	}
}

// RefinedOutputs holds the sections extracted from the latest reply.
// A nil field means the section was absent.
type RefinedOutputs struct {
	Corrected *string `json:"corrected"`
	Better    *string `json:"better"`
	Best      *string `json:"best"`
}

// HasContent reports whether at least one section was found.
func (r RefinedOutputs) HasContent() bool {
	return r.Corrected != nil || r.Better != nil || r.Best != nil
}

// State is an immutable snapshot of a conversation.
type State struct {
	Messages []Message      `json:"messages"`
	Visible  bool           `json:"visible"`
	Outputs  RefinedOutputs `json:"refined_outputs"`
	Error    string         `json:"error,omitempty"`
	Loading  bool           `json:"loading"`
	Mode     modes.ID       `json:"mode,omitempty"`
	Tone     modes.Tone     `json:"tone"`
}

// Model is the generative endpoint used by the engine.
type Model interface {
	Ready() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// HistoryWriter stores finished conversations.
type HistoryWriter interface {
	AppendSession(ctx context.Context, userID string, s docstore.ChatSession) error
}
