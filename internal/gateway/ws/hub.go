package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/dohr-michael/askbetter/internal/auth"
	"github.com/dohr-michael/askbetter/internal/events"
)

// Authenticator resolves a session token and reports its changes.
type Authenticator interface {
	Observe(ctx context.Context, token string, fn func(*auth.User)) (func(), error)
}

// Dispatcher executes a request frame on behalf of a signed-in user.
type Dispatcher func(ctx context.Context, userID string, method Method, params json.RawMessage) (any, error)

// Snapshotter returns the payload pushed with conversation.updated frames.
type Snapshotter func(userID string) any

// Client represents a connected WebSocket client bound to one user.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	userID string

	closeOnce sync.Once
	done      chan struct{}
}

// Hub manages WebSocket clients and bridges per-user events to them.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	authn       Authenticator
	dispatch    Dispatcher
	snapshot    Snapshotter
	unsubscribe func()
}

// NewHub creates a hub fed by the conversation events of bus.
// dispatch and snapshot may be nil.
func NewHub(bus *events.Bus, authn Authenticator, dispatch Dispatcher, snapshot Snapshotter) *Hub {
	h := &Hub{
		clients:  make(map[*Client]struct{}),
		authn:    authn,
		dispatch: dispatch,
		snapshot: snapshot,
	}

	h.unsubscribe = bus.Subscribe(func(e events.Event) {
		if e.UserID == "" {
			return
		}
		var payload any = e.Payload
		name := EventHistorySaved
		if e.Type == events.EventConversationUpdated {
			name = EventConversationUpdated
			if h.snapshot != nil {
				payload = h.snapshot(e.UserID)
			}
		}
		frame, err := NewEventFrame(name, e.UserID, payload)
		if err != nil {
			slog.Error("marshal event frame", "error", err)
			return
		}
		data, err := MarshalFrame(frame)
		if err != nil {
			slog.Error("marshal frame", "error", err)
			return
		}
		h.sendTo(e.UserID, data)
	}, events.EventConversationUpdated, events.EventHistorySaved)

	return h
}

// sendTo queues data for every client of userID.
func (h *Hub) sendTo(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.userID != userID {
			continue
		}
		c.enqueue(data)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	slog.Info("ws client connected", "user", c.userID, "clients", len(h.clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		slog.Info("ws client disconnected", "user", c.userID, "clients", len(h.clients))
	}
}

// ServeWS authenticates the token given as ?token= or bearer header,
// upgrades the connection and manages the client lifecycle. The client
// receives auth.state on connect and is disconnected once signed out.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	client := &Client{
		send: make(chan []byte, 256),
		hub:  h,
		done: make(chan struct{}),
	}

	stop, err := h.authn.Observe(r.Context(), token, client.authChanged)
	if err != nil {
		http.Error(w, `{"success":false,"error":"not signed in"}`, http.StatusUnauthorized)
		return
	}
	defer stop()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow any origin for dev
	})
	if err != nil {
		slog.Error("ws accept", "error", err)
		return
	}
	client.conn = conn

	h.register(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go client.writePump(ctx)
	client.readPump(ctx)
}

// authChanged pushes the auth state and closes the client on sign-out.
func (c *Client) authChanged(u *auth.User) {
	// The user is bound once, by the synchronous first call.
	if u != nil && c.userID == "" {
		c.userID = u.ID
	}
	frame, err := NewEventFrame(EventAuthState, c.userID, map[string]any{"user": u})
	if err != nil {
		return
	}
	data, err := MarshalFrame(frame)
	if err != nil {
		return
	}
	c.enqueue(data)
	if u == nil {
		c.closeOnce.Do(func() { close(c.done) })
	}
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		// Client too slow, skip
	}
}

// readPump reads frames from the WS connection and dispatches them.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("ws read closed", "status", websocket.CloseStatus(err))
			} else {
				slog.Debug("ws read error", "error", err)
			}
			return
		}

		frame, err := UnmarshalFrame(data)
		if err != nil {
			slog.Error("ws unmarshal frame", "error", err)
			continue
		}

		c.handleFrame(ctx, frame)
	}
}

// handleFrame processes an incoming WS frame.
func (c *Client) handleFrame(ctx context.Context, frame Frame) {
	switch frame.Type {
	case FrameTypeRequest:
		// Requests may block on the model; keep reading meanwhile.
		go c.handleRequest(ctx, frame)
	default:
		slog.Debug("ws unknown frame type", "type", frame.Type)
	}
}

// handleRequest runs a request frame through the dispatcher.
func (c *Client) handleRequest(ctx context.Context, frame Frame) {
	if c.hub.dispatch == nil {
		c.sendError(frame.ID, "unknown method: "+frame.Method)
		return
	}
	result, err := c.hub.dispatch(ctx, c.userID, Method(frame.Method), frame.Params)
	if err != nil {
		c.sendError(frame.ID, err.Error())
		return
	}
	c.sendOK(frame.ID, result)
}

// writePump writes queued messages to the WS connection. After sign-out
// it flushes what is queued and closes the connection.
func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-c.done:
			for {
				select {
				case msg := <-c.send:
					if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
						return
					}
				default:
					c.conn.Close(websocket.StatusNormalClosure, "signed out")
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) sendOK(id string, payload any) {
	f, err := NewResponseFrame(id, true, payload, "")
	if err != nil {
		return
	}
	data, err := MarshalFrame(f)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *Client) sendError(id string, errMsg string) {
	f, err := NewResponseFrame(id, false, nil, errMsg)
	if err != nil {
		return
	}
	data, err := MarshalFrame(f)
	if err != nil {
		return
	}
	c.enqueue(data)
}

// Close shuts down the hub and all client connections.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutdown")
		delete(h.clients, c)
	}
}
