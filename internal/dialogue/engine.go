package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dohr-michael/askbetter/internal/docstore"
	"github.com/dohr-michael/askbetter/internal/events"
	"github.com/dohr-michael/askbetter/internal/modes"
)

// Engine owns one user's conversation. At most one model call is in
// flight at a time, even across resets; a reset discards the effect of the
// running call but does not start a second one.
type Engine struct {
	userID  string
	model   Model
	history HistoryWriter
	bus     *events.Bus
	now     func() time.Time

	mu         sync.Mutex
	messages   []Message
	visible    bool
	outputs    RefinedOutputs
	err        string
	pending    bool // loading flag of the current conversation
	inFlight   bool // a model call is running, possibly for a reset conversation
	generation uint64
	mode       modes.ID
	tone       modes.Tone
}

// EngineConfig holds the collaborators of an Engine.
type EngineConfig struct {
	UserID  string
	Model   Model
	History HistoryWriter // optional
	Bus     *events.Bus   // optional
}

// NewEngine creates an engine in the empty state.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		userID:  cfg.UserID,
		model:   cfg.Model,
		history: cfg.History,
		bus:     cfg.Bus,
		now:     time.Now,
		tone:    modes.DefaultTone,
	}
}

// Submit sends one turn to the model and records the reply. Precondition
// failures return an error and leave the state untouched. Submitting with a
// different mode than the current one starts a fresh conversation, as
// Select does. Model failures are recorded in the transcript and the error
// field, and Submit returns nil.
func (e *Engine) Submit(ctx context.Context, text string, modeID modes.ID, tone modes.Tone) error {
	if strings.TrimSpace(text) == "" {
		return ErrBlankInput
	}
	mode, ok := modes.Lookup(modeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMode, modeID)
	}
	if !tone.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownTone, tone)
	}
	if e.model == nil || !e.model.Ready() {
		return ErrNotReady
	}

	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return ErrInFlight
	}
	if e.mode != "" && e.mode != mode.ID {
		e.resetLocked()
	}
	prior := append([]Message(nil), e.messages...)
	e.outputs = RefinedOutputs{}
	e.err = ""
	e.messages = append(e.messages, newMessage(SenderUser, text, e.now()))
	e.visible = true
	e.pending = true
	e.inFlight = true
	e.mode = mode.ID
	e.tone = tone
	gen := e.generation
	e.mu.Unlock()
	e.publish()

	reply, err := e.model.Generate(ctx, promptFor(mode, tone, prior, text))

	e.mu.Lock()
	e.inFlight = false
	if gen != e.generation {
		e.mu.Unlock()
		slog.Debug("discarding reply for reset conversation", "user", e.userID)
		return nil
	}
	e.pending = false
	if err != nil {
		e.err = err.Error()
		e.messages = append(e.messages, newMessage(SenderAssistant, "Sorry, I encountered an error: "+err.Error(), e.now()))
		slog.Warn("model call failed", "user", e.userID, "mode", mode.ID, "error", err)
	} else {
		outputs := Parse(reply, mode.Corrected)
		shown := reply
		if mode.Corrected && outputs.Corrected != nil {
			shown = ComposeRefined(outputs)
		}
		e.messages = append(e.messages, newMessage(SenderAssistant, shown, e.now()))
		e.outputs = outputs
	}
	e.mu.Unlock()
	e.publish()

	return nil
}

// Reset returns the conversation to the empty state. A pending model call
// keeps running and its reply is discarded; until it returns, Submit
// reports ErrInFlight.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.resetLocked()
	e.mu.Unlock()
	e.publish()
}

func (e *Engine) resetLocked() {
	e.messages = nil
	e.visible = false
	e.outputs = RefinedOutputs{}
	e.err = ""
	e.pending = false
	e.generation++
}

// Select records the mode and tone for the next turns. Switching to a
// different mode starts a fresh conversation; a tone change keeps it.
func (e *Engine) Select(modeID modes.ID, tone modes.Tone) error {
	if _, ok := modes.Lookup(modeID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMode, modeID)
	}
	if !tone.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownTone, tone)
	}

	e.mu.Lock()
	if e.mode != "" && e.mode != modeID {
		e.resetLocked()
	}
	e.mode = modeID
	e.tone = tone
	e.mu.Unlock()
	e.publish()
	return nil
}

// ClearError clears the side-channel error without touching the transcript.
func (e *Engine) ClearError() {
	e.mu.Lock()
	e.err = ""
	e.mu.Unlock()
	e.publish()
}

// StartNewSession saves the current transcript to history, when there is
// one, and resets. The reset always happens; a failed save is returned.
func (e *Engine) StartNewSession(ctx context.Context) error {
	e.mu.Lock()
	snapshot := append([]Message(nil), e.messages...)
	e.resetLocked()
	e.mu.Unlock()
	e.publish()

	if len(snapshot) == 0 || e.history == nil {
		return nil
	}

	session := docstore.ChatSession{
		ID:        uuid.NewString(),
		UserID:    e.userID,
		Timestamp: e.now(),
		ChatLog:   toDocMessages(snapshot),
	}
	err := e.history.AppendSession(ctx, e.userID, session)

	payload := events.HistorySavedPayload{SessionID: session.ID, Messages: len(snapshot)}
	if err != nil {
		payload.Error = err.Error()
		slog.Error("save chat history", "user", e.userID, "error", err)
	}
	if e.bus != nil {
		e.bus.Publish(events.NewTypedEventForUser(events.SourceDialogue, payload, e.userID))
	}

	if err != nil {
		return fmt.Errorf("save chat history: %w", err)
	}
	return nil
}

// State returns a snapshot of the conversation.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	return State{
		Messages: append([]Message(nil), e.messages...),
		Visible:  e.visible,
		Outputs:  e.outputs,
		Error:    e.err,
		Loading:  e.pending,
		Mode:     e.mode,
		Tone:     e.tone,
	}
}

func (e *Engine) publish() {
	if e.bus == nil {
		return
	}
	s := e.State()
	e.bus.Publish(events.NewTypedEventForUser(events.SourceDialogue, events.ConversationUpdatedPayload{
		Messages: len(s.Messages),
		Loading:  s.Loading,
		Refined:  s.Outputs.HasContent(),
		Error:    s.Error,
	}, e.userID))
}

func toDocMessages(msgs []Message) []docstore.Message {
	out := make([]docstore.Message, len(msgs))
	for i, m := range msgs {
		out[i] = docstore.Message{
			ID:        m.ID,
			Sender:    string(m.Sender),
			Text:      m.Text,
			Timestamp: m.CreatedAt,
		}
	}
	return out
}
