package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// AuthChangedPayload is published on every sign-in and sign-out.
// UserID is empty when the token was signed out.
type AuthChangedPayload struct {
	Token  string `json:"token"`
	UserID string `json:"user_id,omitempty"`
}

func (AuthChangedPayload) EventType() EventType { return EventAuthChanged }

// ConversationUpdatedPayload summarizes a conversation state change.
type ConversationUpdatedPayload struct {
	Messages int    `json:"messages"`
	Loading  bool   `json:"loading"`
	Refined  bool   `json:"refined"`
	Error    string `json:"error,omitempty"`
}

func (ConversationUpdatedPayload) EventType() EventType { return EventConversationUpdated }

// HistorySavedPayload reports the outcome of a "start new session" save.
type HistorySavedPayload struct {
	SessionID string `json:"session_id,omitempty"`
	Messages  int    `json:"messages"`
	Error     string `json:"error,omitempty"`
}

func (HistorySavedPayload) EventType() EventType { return EventHistorySaved }

// ModelCallPayload traces one round trip to the model endpoint.
type ModelCallPayload struct {
	Model    string        `json:"model"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

func (ModelCallPayload) EventType() EventType { return EventModelCall }

// NewTypedEvent builds an event from a typed payload.
func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

// NewTypedEventForUser builds an event scoped to a user.
func NewTypedEventForUser(source EventSource, payload EventPayload, userID string) Event {
	e := NewTypedEvent(source, payload)
	e.UserID = userID
	return e
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// ExtractPayload decodes an event payload into T.
func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}
