package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/dohr-michael/askbetter/internal/auth"
	"github.com/dohr-michael/askbetter/internal/events"
)

type fakeAuth struct {
	mu sync.Mutex
	fn func(*auth.User)
}

func (f *fakeAuth) Observe(_ context.Context, token string, fn func(*auth.User)) (func(), error) {
	if token != "good" {
		return nil, auth.ErrUnauthenticated
	}
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	fn(&auth.User{ID: "u1", Email: "u1@example.com"})
	return func() {}, nil
}

func (f *fakeAuth) signOut() {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	fn(nil)
}

func newTestHub(t *testing.T) (*Hub, *events.Bus, *fakeAuth, *httptest.Server) {
	t.Helper()
	bus := events.NewBus(64)
	t.Cleanup(func() { bus.Close() })

	fa := &fakeAuth{}
	dispatch := func(_ context.Context, userID string, method Method, _ json.RawMessage) (any, error) {
		if method != MethodState {
			return nil, errors.New("unknown method: " + string(method))
		}
		return map[string]string{"user": userID}, nil
	}
	snapshot := func(userID string) any {
		return map[string]string{"snapshot_of": userID}
	}
	hub := NewHub(bus, fa, dispatch, snapshot)
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, bus, fa, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	return conn, err
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	f, err := UnmarshalFrame(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return f
}

func waitForClients(h *Hub, n int) {
	for i := 0; i < 500 && h.Clients() != n; i++ {
		time.Sleep(time.Millisecond)
	}
}

func TestServeWS_RejectsUnknownToken(t *testing.T) {
	_, _, _, srv := newTestHub(t)

	if _, err := dial(t, srv, "bad"); err == nil {
		t.Fatal("expected handshake to fail for an unknown token")
	}
}

func TestServeWS_AuthStateAndUserEvents(t *testing.T) {
	hub, bus, fa, srv := newTestHub(t)

	conn, err := dial(t, srv, "good")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	f := readFrame(t, conn)
	if f.Type != FrameTypeEvent || f.Event != EventAuthState || f.UserID != "u1" {
		t.Fatalf("expected auth.state for u1, got %+v", f)
	}
	waitForClients(hub, 1)

	bus.Publish(events.NewTypedEventForUser(events.SourceDialogue,
		events.ConversationUpdatedPayload{Messages: 1}, "someone-else"))
	bus.Publish(events.NewTypedEventForUser(events.SourceDialogue,
		events.ConversationUpdatedPayload{Messages: 1}, "u1"))

	f = readFrame(t, conn)
	if f.Event != EventConversationUpdated || f.UserID != "u1" {
		t.Fatalf("expected conversation.updated for u1, got %+v", f)
	}
	if string(f.Payload) != `{"snapshot_of":"u1"}` {
		t.Fatalf("expected snapshot payload, got %s", f.Payload)
	}

	req, _ := MarshalFrame(Frame{Type: FrameTypeRequest, ID: "r1", Method: string(MethodState)})
	if err := conn.Write(context.Background(), websocket.MessageText, req); err != nil {
		t.Fatalf("write: %v", err)
	}
	f = readFrame(t, conn)
	if f.Type != FrameTypeResponse || f.ID != "r1" || f.OK == nil || !*f.OK {
		t.Fatalf("expected ok response, got %+v", f)
	}

	fa.signOut()
	f = readFrame(t, conn)
	if f.Event != EventAuthState || string(f.Payload) != `{"user":null}` {
		t.Fatalf("expected signed-out auth.state, got %+v", f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Fatalf("expected normal closure after sign-out, got %v", err)
	}
}

func TestServeWS_UnknownMethod(t *testing.T) {
	_, _, _, srv := newTestHub(t)

	conn, err := dial(t, srv, "good")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	readFrame(t, conn) // auth.state

	req, _ := MarshalFrame(Frame{Type: FrameTypeRequest, ID: "r2", Method: "launch_rockets"})
	if err := conn.Write(context.Background(), websocket.MessageText, req); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := readFrame(t, conn)
	if f.OK == nil || *f.OK || !strings.Contains(f.Error, "launch_rockets") {
		t.Fatalf("expected error response, got %+v", f)
	}
}
