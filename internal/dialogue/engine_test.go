package dialogue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dohr-michael/askbetter/internal/docstore"
	"github.com/dohr-michael/askbetter/internal/events"
	"github.com/dohr-michael/askbetter/internal/modes"
)

// fakeModel records prompts and answers with a canned reply. When gate is
// set, Generate signals started and waits for gate before answering.
type fakeModel struct {
	notReady bool
	reply    string
	err      error
	gate     chan struct{}
	started  chan struct{}

	mu      sync.Mutex
	prompts []string
}

func (f *fakeModel) Ready() bool { return !f.notReady }

func (f *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.gate != nil {
		f.started <- struct{}{}
		<-f.gate
	}
	return f.reply, f.err
}

func (f *fakeModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func newGatedModel(reply string) *fakeModel {
	return &fakeModel{
		reply:   reply,
		gate:    make(chan struct{}),
		started: make(chan struct{}, 4),
	}
}

type fakeHistory struct {
	mu       sync.Mutex
	err      error
	sessions []docstore.ChatSession
	users    []string
}

func (h *fakeHistory) AppendSession(_ context.Context, userID string, s docstore.ChatSession) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users = append(h.users, userID)
	h.sessions = append(h.sessions, s)
	return h.err
}

func assertEmpty(t *testing.T, s State) {
	t.Helper()
	if len(s.Messages) != 0 || s.Visible || s.Outputs.HasContent() || s.Error != "" || s.Loading {
		t.Fatalf("state is not empty: %+v", s)
	}
}

func TestSubmit_CodingScenario(t *testing.T) {
	model := &fakeModel{reply: "BETTER_OUTPUT:\nWhat is...\nBEST_OUTPUT:\nGiven that..."}
	e := NewEngine(EngineConfig{UserID: "u1", Model: model})

	if err := e.Submit(context.Background(), "my script throws KeyError", modes.Coding, modes.ToneFormal); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if model.calls() != 1 {
		t.Fatalf("model called %d times, want 1", model.calls())
	}
	prompt := model.prompts[0]
	if !strings.Contains(prompt, "Formal") {
		t.Error("prompt should contain the tone label")
	}
	if !strings.HasSuffix(prompt, "User: my script throws KeyError") {
		t.Errorf("prompt should end with the input, got %q", prompt)
	}

	s := e.State()
	if len(s.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(s.Messages))
	}
	if s.Messages[0].Sender != SenderUser || s.Messages[1].Sender != SenderAssistant {
		t.Errorf("senders = %s, %s", s.Messages[0].Sender, s.Messages[1].Sender)
	}
	if s.Messages[1].Text != model.reply {
		t.Errorf("non Ask-Better reply should be shown verbatim, got %q", s.Messages[1].Text)
	}
	if str(s.Outputs.Better) != "What is..." || str(s.Outputs.Best) != "Given that..." {
		t.Errorf("outputs = %q / %q", str(s.Outputs.Better), str(s.Outputs.Best))
	}
	if s.Outputs.Corrected != nil {
		t.Error("corrected should be nil")
	}
	if !s.Visible || s.Loading || s.Error != "" {
		t.Errorf("unexpected flags: %+v", s)
	}
	if s.Mode != modes.Coding || s.Tone != modes.ToneFormal {
		t.Errorf("selection = %s/%s", s.Mode, s.Tone)
	}
}

func TestSubmit_AskBetterComposesMessage(t *testing.T) {
	model := &fakeModel{reply: "CORRECTED_INPUT:\nC\nBETTER_OUTPUT:\nB\nBEST_OUTPUT:\nZ"}
	e := NewEngine(EngineConfig{Model: model})

	if err := e.Submit(context.Background(), "can u help", modes.AskBetter, modes.ToneNeutral); err != nil {
		t.Fatal(err)
	}

	s := e.State()
	got := s.Messages[1].Text
	if got != ComposeRefined(s.Outputs) {
		t.Errorf("assistant message = %q", got)
	}
	ci, bi, zi := strings.Index(got, "\nC"), strings.Index(got, "\nB\n"), strings.Index(got, "\nZ")
	if ci < 0 || bi < 0 || zi < 0 || !(ci < bi && bi < zi) {
		t.Errorf("sections missing or out of order: %q", got)
	}
	if str(s.Outputs.Corrected) != "C" {
		t.Errorf("corrected = %q", str(s.Outputs.Corrected))
	}
}

func TestSubmit_AskBetterWithoutCorrectionShowsRaw(t *testing.T) {
	model := &fakeModel{reply: "BETTER_OUTPUT:\nB\nBEST_OUTPUT:\nZ"}
	e := NewEngine(EngineConfig{Model: model})

	if err := e.Submit(context.Background(), "hello", modes.AskBetter, modes.ToneNeutral); err != nil {
		t.Fatal(err)
	}
	if got := e.State().Messages[1].Text; got != model.reply {
		t.Errorf("assistant message = %q, want raw reply", got)
	}
}

func TestSubmit_Preconditions(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
		text  string
		mode  modes.ID
		tone  modes.Tone
		want  error
	}{
		{"blank", &fakeModel{}, "  \n\t", modes.Coding, modes.ToneNeutral, ErrBlankInput},
		{"not ready", &fakeModel{notReady: true}, "hi", modes.Coding, modes.ToneNeutral, ErrNotReady},
		{"unknown mode", &fakeModel{}, "hi", "NOPE", modes.ToneNeutral, ErrUnknownMode},
		{"unknown tone", &fakeModel{}, "hi", modes.Coding, "SARCASTIC", ErrUnknownTone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(EngineConfig{Model: tt.model})
			err := e.Submit(context.Background(), tt.text, tt.mode, tt.tone)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Submit error = %v, want %v", err, tt.want)
			}
			if tt.model.calls() != 0 {
				t.Error("model must not be called")
			}
			assertEmpty(t, e.State())
		})
	}
}

func TestSubmit_FailureAppendsErrorMessage(t *testing.T) {
	model := &fakeModel{reply: "BETTER_OUTPUT:\nB"}
	e := NewEngine(EngineConfig{Model: model})
	ctx := context.Background()

	if err := e.Submit(ctx, "first", modes.Coding, modes.ToneNeutral); err != nil {
		t.Fatal(err)
	}

	model.err = errors.New("quota exceeded")
	if err := e.Submit(ctx, "second", modes.Coding, modes.ToneNeutral); err != nil {
		t.Fatalf("remote failures are not returned: %v", err)
	}

	s := e.State()
	if len(s.Messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(s.Messages))
	}
	if s.Messages[2].Text != "second" {
		t.Error("user message must never be retracted")
	}
	if s.Messages[3].Text != "Sorry, I encountered an error: quota exceeded" {
		t.Errorf("error message = %q", s.Messages[3].Text)
	}
	if s.Error != "quota exceeded" {
		t.Errorf("error = %q", s.Error)
	}
	// Outputs were cleared when the failed submit started.
	if s.Outputs.HasContent() {
		t.Error("outputs should have been cleared at submit start")
	}
	if s.Loading {
		t.Error("loading should be false after failure")
	}
}

func TestSubmit_ErrorClearedOnNextSubmit(t *testing.T) {
	model := &fakeModel{err: errors.New("boom")}
	e := NewEngine(EngineConfig{Model: model})
	ctx := context.Background()

	_ = e.Submit(ctx, "one", modes.Coding, modes.ToneNeutral)
	if e.State().Error == "" {
		t.Fatal("expected error")
	}

	model.err = nil
	model.reply = "BETTER_OUTPUT:\nB"
	_ = e.Submit(ctx, "two", modes.Coding, modes.ToneNeutral)
	if e.State().Error != "" {
		t.Errorf("error should be cleared, got %q", e.State().Error)
	}
}

func TestSubmit_OutputsReplacedWholesale(t *testing.T) {
	model := &fakeModel{reply: "BETTER_OUTPUT:\nB1\nBEST_OUTPUT:\nZ1"}
	e := NewEngine(EngineConfig{Model: model})
	ctx := context.Background()

	_ = e.Submit(ctx, "one", modes.Coding, modes.ToneNeutral)
	model.reply = "BEST_OUTPUT:\nZ2"
	_ = e.Submit(ctx, "two", modes.Coding, modes.ToneNeutral)

	s := e.State()
	if s.Outputs.Better != nil {
		t.Errorf("better should not carry over, got %q", str(s.Outputs.Better))
	}
	if str(s.Outputs.Best) != "Z2" {
		t.Errorf("best = %q", str(s.Outputs.Best))
	}

	model.reply = "Who is the audience?"
	_ = e.Submit(ctx, "three", modes.Coding, modes.ToneNeutral)
	if e.State().Outputs.HasContent() {
		t.Error("reply without anchors should leave outputs empty")
	}
}

func TestSubmit_PromptCarriesHistory(t *testing.T) {
	model := &fakeModel{reply: "What is the context?"}
	e := NewEngine(EngineConfig{Model: model})
	ctx := context.Background()

	_ = e.Submit(ctx, "first", modes.Marketing, modes.ToneCasual)
	_ = e.Submit(ctx, "second", modes.Marketing, modes.ToneCasual)

	p := model.prompts[1]
	want := "Previous conversation:\nUser: first\nAssistant: What is the context?\n\nUser: second"
	if !strings.HasSuffix(p, want) {
		t.Errorf("second prompt = %q, want suffix %q", p, want)
	}
}

func TestSubmit_UserMessageAppendedBeforeReply(t *testing.T) {
	for _, m := range modes.All() {
		for _, tone := range modes.Tones() {
			model := newGatedModel("BETTER_OUTPUT:\nB")
			e := NewEngine(EngineConfig{Model: model})

			done := make(chan error, 1)
			go func() { done <- e.Submit(context.Background(), "hello", m.ID, tone) }()
			<-model.started

			s := e.State()
			if len(s.Messages) != 1 || s.Messages[0].Sender != SenderUser || s.Messages[0].Text != "hello" {
				t.Fatalf("%s/%s: expected one user message while pending, got %+v", m.ID, tone, s.Messages)
			}
			if !s.Visible || !s.Loading {
				t.Fatalf("%s/%s: expected visible and loading", m.ID, tone)
			}

			close(model.gate)
			if err := <-done; err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestSubmit_InFlightIgnored(t *testing.T) {
	model := newGatedModel("BETTER_OUTPUT:\nB")
	e := NewEngine(EngineConfig{Model: model})

	done := make(chan error, 1)
	go func() { done <- e.Submit(context.Background(), "first", modes.Coding, modes.ToneNeutral) }()
	<-model.started

	if err := e.Submit(context.Background(), "second", modes.Coding, modes.ToneNeutral); !errors.Is(err, ErrInFlight) {
		t.Fatalf("second Submit = %v, want ErrInFlight", err)
	}
	if got := len(e.State().Messages); got != 1 {
		t.Fatalf("second submit appended a message: %d messages", got)
	}

	close(model.gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if model.calls() != 1 {
		t.Errorf("model called %d times, want 1", model.calls())
	}
	if got := len(e.State().Messages); got != 2 {
		t.Errorf("got %d messages, want 2", got)
	}
}

func TestReset_DiscardsStaleReply(t *testing.T) {
	model := newGatedModel("BETTER_OUTPUT:\nB")
	e := NewEngine(EngineConfig{Model: model})

	done := make(chan error, 1)
	go func() { done <- e.Submit(context.Background(), "first", modes.Coding, modes.ToneNeutral) }()
	<-model.started

	e.Reset()
	close(model.gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	assertEmpty(t, e.State())
}

func TestReset_KeepsSingleCallInFlight(t *testing.T) {
	model := newGatedModel("BETTER_OUTPUT:\nB")
	e := NewEngine(EngineConfig{Model: model})
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- e.Submit(ctx, "stale", modes.Coding, modes.ToneNeutral) }()
	<-model.started
	e.Reset()

	if err := e.Submit(ctx, "fresh", modes.Coding, modes.ToneNeutral); !errors.Is(err, ErrInFlight) {
		t.Fatalf("Submit during stale call = %v, want ErrInFlight", err)
	}
	assertEmpty(t, e.State())

	close(model.gate)
	if err := <-first; err != nil {
		t.Fatal(err)
	}
	assertEmpty(t, e.State())

	if err := e.Submit(ctx, "fresh", modes.Coding, modes.ToneNeutral); err != nil {
		t.Fatalf("Submit after stale call returned: %v", err)
	}
	s := e.State()
	if len(s.Messages) != 2 || s.Messages[0].Text != "fresh" {
		t.Fatalf("stale reply leaked into new conversation: %+v", s.Messages)
	}
	if model.calls() != 2 {
		t.Errorf("model called %d times, want 2", model.calls())
	}
}

func TestReset_Idempotent(t *testing.T) {
	model := &fakeModel{reply: "BETTER_OUTPUT:\nB", err: nil}
	e := NewEngine(EngineConfig{Model: model})

	e.Reset()
	assertEmpty(t, e.State())

	_ = e.Submit(context.Background(), "hi", modes.Coding, modes.ToneNeutral)
	model.err = errors.New("boom")
	_ = e.Submit(context.Background(), "again", modes.Coding, modes.ToneNeutral)

	e.Reset()
	once := e.State()
	e.Reset()
	twice := e.State()

	assertEmpty(t, once)
	assertEmpty(t, twice)
}

func TestSelect(t *testing.T) {
	model := &fakeModel{reply: "BETTER_OUTPUT:\nB"}
	e := NewEngine(EngineConfig{Model: model})
	ctx := context.Background()

	if err := e.Select(modes.Coding, modes.ToneNeutral); err != nil {
		t.Fatal(err)
	}
	_ = e.Submit(ctx, "hi", modes.Coding, modes.ToneNeutral)

	if err := e.Select(modes.Coding, modes.ToneFormal); err != nil {
		t.Fatal(err)
	}
	if len(e.State().Messages) != 2 {
		t.Fatal("tone change should keep the transcript")
	}

	if err := e.Select(modes.Marketing, modes.ToneFormal); err != nil {
		t.Fatal(err)
	}
	s := e.State()
	if len(s.Messages) != 0 {
		t.Fatal("mode change should reset the transcript")
	}
	if s.Mode != modes.Marketing || s.Tone != modes.ToneFormal {
		t.Errorf("selection = %s/%s", s.Mode, s.Tone)
	}

	if err := e.Select("NOPE", modes.ToneFormal); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("Select unknown mode = %v", err)
	}
}

func TestSubmit_ModeChangeResets(t *testing.T) {
	model := &fakeModel{reply: "BETTER_OUTPUT:\nB"}
	e := NewEngine(EngineConfig{Model: model})
	ctx := context.Background()

	if err := e.Submit(ctx, "first", modes.Coding, modes.ToneNeutral); err != nil {
		t.Fatal(err)
	}
	if err := e.Submit(ctx, "second", modes.Coding, modes.ToneFormal); err != nil {
		t.Fatal(err)
	}
	if got := len(e.State().Messages); got != 4 {
		t.Fatalf("tone change should keep the transcript, got %d messages", got)
	}

	if err := e.Submit(ctx, "third", modes.Marketing, modes.ToneFormal); err != nil {
		t.Fatal(err)
	}
	s := e.State()
	if len(s.Messages) != 2 || s.Messages[0].Text != "third" || s.Mode != modes.Marketing {
		t.Fatalf("mode change should start a fresh conversation: %+v", s)
	}

	model.mu.Lock()
	last := model.prompts[len(model.prompts)-1]
	model.mu.Unlock()
	if strings.Contains(last, "first") || strings.Contains(last, "second") {
		t.Errorf("prompt carries the previous mode's history:\n%s", last)
	}
}

func TestStartNewSession_SavesAndResets(t *testing.T) {
	model := &fakeModel{reply: "BETTER_OUTPUT:\nB"}
	history := &fakeHistory{}
	e := NewEngine(EngineConfig{UserID: "u1", Model: model, History: history})
	ctx := context.Background()

	_ = e.Submit(ctx, "hello", modes.Coding, modes.ToneNeutral)
	if err := e.StartNewSession(ctx); err != nil {
		t.Fatalf("StartNewSession: %v", err)
	}

	assertEmpty(t, e.State())
	if len(history.sessions) != 1 {
		t.Fatalf("saved %d sessions, want 1", len(history.sessions))
	}
	saved := history.sessions[0]
	if history.users[0] != "u1" || saved.UserID != "u1" {
		t.Errorf("saved for %q / %q", history.users[0], saved.UserID)
	}
	if len(saved.ChatLog) != 2 || saved.ChatLog[0].Text != "hello" || saved.ChatLog[0].Sender != "user" {
		t.Errorf("chat log = %+v", saved.ChatLog)
	}
	if saved.Timestamp.IsZero() || saved.ID == "" {
		t.Error("session needs an id and a timestamp")
	}
}

func TestStartNewSession_EmptySkipsSave(t *testing.T) {
	history := &fakeHistory{}
	e := NewEngine(EngineConfig{UserID: "u1", Model: &fakeModel{}, History: history})

	if err := e.StartNewSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(history.sessions) != 0 {
		t.Error("empty conversation must not be saved")
	}
}

func TestStartNewSession_SaveFailureStillResets(t *testing.T) {
	model := &fakeModel{reply: "BETTER_OUTPUT:\nB"}
	history := &fakeHistory{err: errors.New("disk full")}
	e := NewEngine(EngineConfig{UserID: "u1", Model: model, History: history})
	ctx := context.Background()

	_ = e.Submit(ctx, "hello", modes.Coding, modes.ToneNeutral)
	err := e.StartNewSession(ctx)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("StartNewSession = %v, want save error", err)
	}
	assertEmpty(t, e.State())
}

func TestEngine_PublishesEvents(t *testing.T) {
	bus := events.NewBus(64)
	defer bus.Close()

	updates, unsub := bus.SubscribeChan(16, events.EventConversationUpdated, events.EventHistorySaved)
	defer unsub()

	model := &fakeModel{reply: "BETTER_OUTPUT:\nB"}
	e := NewEngine(EngineConfig{UserID: "u1", Model: model, History: &fakeHistory{}, Bus: bus})
	ctx := context.Background()

	_ = e.Submit(ctx, "hello", modes.Coding, modes.ToneNeutral)
	_ = e.StartNewSession(ctx)

	var got []events.Event
	timeout := time.After(time.Second)
	for len(got) < 4 {
		select {
		case ev := <-updates:
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("got %d events, want 4", len(got))
		}
	}

	first, _ := events.ExtractPayload[events.ConversationUpdatedPayload](got[0])
	if !first.Loading || first.Messages != 1 {
		t.Errorf("first update = %+v, want loading with 1 message", first)
	}
	second, _ := events.ExtractPayload[events.ConversationUpdatedPayload](got[1])
	if second.Loading || second.Messages != 2 || !second.Refined {
		t.Errorf("second update = %+v", second)
	}
	if got[3].Type != events.EventHistorySaved || got[3].UserID != "u1" {
		t.Errorf("last event = %s for %q", got[3].Type, got[3].UserID)
	}
}
