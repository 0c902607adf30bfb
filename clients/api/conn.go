package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/dohr-michael/askbetter/internal/dialogue"
	wsprotocol "github.com/dohr-michael/askbetter/internal/gateway/ws"
)

// ErrSignedOut is returned by Call when the gateway ends the session.
var ErrSignedOut = errors.New("signed out")

// Result is the reply to a conversation request.
type Result struct {
	State   dialogue.State `json:"state"`
	Ignored bool           `json:"ignored,omitempty"`
	Warning string         `json:"warning,omitempty"`
}

// Conn is a WebSocket connection to the gateway.
type Conn struct {
	conn   *websocket.Conn
	reqSeq uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Dial connects to the gateway WebSocket endpoint with the session token.
func (c *Client) Dial(ctx context.Context) (*Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway url: %w", err)
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/api/ws"
	u.RawQuery = url.Values{"token": {c.token}}.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}
	conn.SetReadLimit(4 << 20)

	connCtx, cancel := context.WithCancel(ctx)

	return &Conn{
		conn:   conn,
		ctx:    connCtx,
		cancel: cancel,
	}, nil
}

// Request sends a request frame and returns its id.
func (c *Conn) Request(method wsprotocol.Method, params any) (string, error) {
	seq := atomic.AddUint64(&c.reqSeq, 1)

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return "", err
		}
		raw = data
	}

	frame := wsprotocol.Frame{
		Type:   wsprotocol.FrameTypeRequest,
		ID:     fmt.Sprintf("req-%d", seq),
		Method: string(method),
		Params: raw,
	}

	data, err := wsprotocol.MarshalFrame(frame)
	if err != nil {
		return "", err
	}

	return frame.ID, c.conn.Write(c.ctx, websocket.MessageText, data)
}

// Call sends a request and waits for its response. Event frames read in
// the meantime are passed to onEvent, which may be nil.
func (c *Conn) Call(method wsprotocol.Method, params any, onEvent func(wsprotocol.Frame)) (*Result, error) {
	id, err := c.Request(method, params)
	if err != nil {
		return nil, err
	}

	for {
		frame, err := c.ReadFrame()
		if err != nil {
			return nil, err
		}
		if frame.Type == wsprotocol.FrameTypeEvent {
			if frame.Event == wsprotocol.EventAuthState && string(frame.Payload) == `{"user":null}` {
				return nil, ErrSignedOut
			}
			if onEvent != nil {
				onEvent(frame)
			}
			continue
		}
		if frame.Type != wsprotocol.FrameTypeResponse || frame.ID != id {
			continue
		}
		if frame.OK == nil || !*frame.OK {
			return nil, errors.New(frame.Error)
		}
		var res Result
		if err := json.Unmarshal(frame.Payload, &res); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &res, nil
	}
}

// ReadFrame reads the next frame from the connection.
func (c *Conn) ReadFrame() (wsprotocol.Frame, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return wsprotocol.Frame{}, err
	}
	return wsprotocol.UnmarshalFrame(data)
}

// Close gracefully closes the connection.
func (c *Conn) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
