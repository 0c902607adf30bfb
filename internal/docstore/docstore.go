// Package docstore persists user profiles and write-once chat history
// sessions.
package docstore

import (
	"context"
	"errors"
	"time"
)

// MaxChatHistory caps the number of sessions returned by ListSessions.
const MaxChatHistory = 50

const titleLength = 60

var (
	// ErrNotFound is returned when a profile does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned when a session id is written twice.
	ErrExists = errors.New("document already exists")
)

// Profile is the per-user preferences document.
type Profile struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Theme    string `json:"theme,omitempty"`
	Language string `json:"language,omitempty"`
}

// Message is one persisted transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is a snapshot of a finished conversation.
type ChatSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	ChatLog   []Message `json:"chat_log"`
}

// Title returns the first user message, truncated for list display.
func (s ChatSession) Title() string {
	for _, m := range s.ChatLog {
		if m.Sender != "user" {
			continue
		}
		r := []rune(m.Text)
		if len(r) > titleLength {
			r = r[:titleLength]
		}
		return string(r)
	}
	return ""
}

// Store is the document store used by the gateway and the dialogue engine.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	PutProfile(ctx context.Context, p *Profile) error
	AppendSession(ctx context.Context, userID string, s ChatSession) error
	// ListSessions returns at most MaxChatHistory sessions, newest first.
	ListSessions(ctx context.Context, userID string) ([]ChatSession, error)
}
