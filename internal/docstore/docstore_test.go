package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dohr-michael/askbetter/internal/config"
	"github.com/dohr-michael/askbetter/internal/storage"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sqliteStore, err := Open(config.StorageConfig{Driver: "sqlite"}, db)
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	fileStore, err := Open(config.StorageConfig{Driver: "file", Path: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}

	return map[string]Store{"sqlite": sqliteStore, "file": fileStore}
}

func session(id string, ts time.Time, texts ...string) ChatSession {
	cs := ChatSession{ID: id, Timestamp: ts}
	for i, text := range texts {
		sender := "user"
		if i%2 == 1 {
			sender = "assistant"
		}
		cs.ChatLog = append(cs.ChatLog, Message{
			ID:        fmt.Sprintf("%s-%d", id, i),
			Sender:    sender,
			Text:      text,
			Timestamp: ts,
		})
	}
	return cs
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.GetProfile(ctx, "u1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetProfile missing: got %v, want ErrNotFound", err)
			}

			p := &Profile{UserID: "u1", Name: "Ada", Email: "ada@example.com", Theme: "dark", Language: "vi"}
			if err := store.PutProfile(ctx, p); err != nil {
				t.Fatalf("PutProfile: %v", err)
			}
			p.Theme = "light"
			if err := store.PutProfile(ctx, p); err != nil {
				t.Fatalf("PutProfile update: %v", err)
			}

			got, err := store.GetProfile(ctx, "u1")
			if err != nil {
				t.Fatalf("GetProfile: %v", err)
			}
			if *got != *p {
				t.Errorf("GetProfile = %+v, want %+v", got, p)
			}
		})
	}
}

func TestPutProfileRequiresUserID(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.PutProfile(context.Background(), &Profile{Name: "x"}); err == nil {
				t.Fatal("expected error for empty user id")
			}
		})
	}
}

func TestSessionsNewestFirstAndScoped(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.AppendSession(ctx, "u1", session("a", base, "first question", "answer")); err != nil {
				t.Fatalf("AppendSession a: %v", err)
			}
			if err := store.AppendSession(ctx, "u1", session("b", base.Add(time.Hour), "second question")); err != nil {
				t.Fatalf("AppendSession b: %v", err)
			}
			if err := store.AppendSession(ctx, "u2", session("c", base, "other user")); err != nil {
				t.Fatalf("AppendSession c: %v", err)
			}

			got, err := store.ListSessions(ctx, "u1")
			if err != nil {
				t.Fatalf("ListSessions: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("got %d sessions, want 2", len(got))
			}
			if got[0].ID != "b" || got[1].ID != "a" {
				t.Errorf("order = [%s %s], want [b a]", got[0].ID, got[1].ID)
			}
			if !got[1].Timestamp.Equal(base) {
				t.Errorf("timestamp = %v, want %v", got[1].Timestamp, base)
			}
			if len(got[1].ChatLog) != 2 || got[1].ChatLog[1].Text != "answer" || got[1].ChatLog[1].Sender != "assistant" {
				t.Errorf("chat log not preserved: %+v", got[1].ChatLog)
			}
			if got[0].UserID != "u1" {
				t.Errorf("user id = %q", got[0].UserID)
			}

			none, err := store.ListSessions(ctx, "nobody")
			if err != nil {
				t.Fatalf("ListSessions empty: %v", err)
			}
			if len(none) != 0 {
				t.Errorf("expected no sessions, got %d", len(none))
			}
		})
	}
}

func TestSessionsWriteOnce(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			cs := session("dup", time.Now(), "hello")
			if err := store.AppendSession(ctx, "u1", cs); err != nil {
				t.Fatalf("AppendSession: %v", err)
			}
			if err := store.AppendSession(ctx, "u1", cs); !errors.Is(err, ErrExists) {
				t.Fatalf("second AppendSession: got %v, want ErrExists", err)
			}
		})
	}
}

func TestListSessionsCapped(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < MaxChatHistory+5; i++ {
				cs := session(fmt.Sprintf("s%03d", i), base.Add(time.Duration(i)*time.Minute), "q")
				if err := store.AppendSession(ctx, "u1", cs); err != nil {
					t.Fatalf("AppendSession %d: %v", i, err)
				}
			}

			got, err := store.ListSessions(ctx, "u1")
			if err != nil {
				t.Fatalf("ListSessions: %v", err)
			}
			if len(got) != MaxChatHistory {
				t.Fatalf("got %d sessions, want %d", len(got), MaxChatHistory)
			}
			want := fmt.Sprintf("s%03d", MaxChatHistory+4)
			if got[0].ID != want {
				t.Errorf("newest = %s, want %s", got[0].ID, want)
			}
		})
	}
}

func TestChatSessionTitle(t *testing.T) {
	long := strings.Repeat("é", 80)
	tests := []struct {
		name string
		cs   ChatSession
		want string
	}{
		{"first user message", session("x", time.Now(), "hello", "hi"), "hello"},
		{"truncated by rune", session("x", time.Now(), long), strings.Repeat("é", 60)},
		{"no user message", ChatSession{ChatLog: []Message{{Sender: "assistant", Text: "hi"}}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cs.Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(config.StorageConfig{Driver: "mongo"}, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(config.StorageConfig{Driver: "sqlite"}, nil); err == nil {
		t.Fatal("expected error for sqlite without db")
	}
}
