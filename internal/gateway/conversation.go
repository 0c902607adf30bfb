package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dohr-michael/askbetter/internal/dialogue"
	"github.com/dohr-michael/askbetter/internal/gateway/ws"
	"github.com/dohr-michael/askbetter/internal/modes"
)

type turnRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
	Tone string `json:"tone"`
}

// turnResult is the outcome of a conversation operation.
type turnResult struct {
	State   dialogue.State
	Ignored bool
	Warning string
}

// selection resolves the requested mode and tone, defaulting to the
// current ones of the conversation.
func selection(cur dialogue.State, mode, tone string) (modes.ID, modes.Tone, error) {
	id := modes.ID(strings.ToUpper(strings.TrimSpace(mode)))
	if id == "" {
		id = cur.Mode
	}
	if _, ok := modes.Lookup(id); !ok {
		return "", "", fmt.Errorf("%w: %q", dialogue.ErrUnknownMode, mode)
	}

	t := cur.Tone
	if strings.TrimSpace(tone) != "" || t == "" {
		parsed, err := modes.ParseTone(tone)
		if err != nil {
			return "", "", fmt.Errorf("%w: %q", dialogue.ErrUnknownTone, tone)
		}
		t = parsed
	}
	return id, t, nil
}

// submit runs one turn. The model call is detached from the caller so a
// dropped connection does not abort it.
func (s *Server) submit(ctx context.Context, userID string, req turnRequest) (turnResult, error) {
	engine := s.conversations.Get(userID)
	if strings.TrimSpace(req.Text) == "" {
		return turnResult{}, dialogue.ErrBlankInput
	}
	id, tone, err := selection(engine.State(), req.Mode, req.Tone)
	if err != nil {
		return turnResult{}, err
	}

	err = engine.Submit(context.WithoutCancel(ctx), req.Text, id, tone)
	switch {
	case errors.Is(err, dialogue.ErrInFlight):
		return turnResult{State: engine.State(), Ignored: true}, nil
	case errors.Is(err, dialogue.ErrNotReady):
		if s.model != nil {
			if cfgErr := s.model.ConfigError(); cfgErr != nil {
				return turnResult{}, fmt.Errorf("%w: %v", dialogue.ErrNotReady, cfgErr)
			}
		}
		return turnResult{}, err
	case err != nil:
		return turnResult{}, err
	}
	return turnResult{State: engine.State()}, nil
}

func (s *Server) selectMode(userID string, req turnRequest) (turnResult, error) {
	engine := s.conversations.Get(userID)
	id, tone, err := selection(engine.State(), req.Mode, req.Tone)
	if err != nil {
		return turnResult{}, err
	}
	if err := engine.Select(id, tone); err != nil {
		return turnResult{}, err
	}
	return turnResult{State: engine.State()}, nil
}

func (s *Server) startNewSession(ctx context.Context, userID string) turnResult {
	engine := s.conversations.Get(userID)
	res := turnResult{}
	if err := engine.StartNewSession(ctx); err != nil {
		res.Warning = err.Error()
	}
	res.State = engine.State()
	return res
}

func writeTurn(w http.ResponseWriter, res turnResult, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if res.Ignored {
		status = http.StatusAccepted
	}
	writeJSON(w, status, envelope{
		Success: true,
		Ignored: res.Ignored,
		Warning: res.Warning,
		Data:    res.State,
	})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.conversations.Get(userFrom(r.Context()).ID).State())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.selectMode(userFrom(r.Context()).ID, req)
	writeTurn(w, res, err)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.submit(r.Context(), userFrom(r.Context()).ID, req)
	writeTurn(w, res, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	engine := s.conversations.Get(userFrom(r.Context()).ID)
	engine.Reset()
	writeData(w, engine.State())
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	writeTurn(w, s.startNewSession(r.Context(), userFrom(r.Context()).ID), nil)
}

type wsResult struct {
	State   dialogue.State `json:"state"`
	Ignored bool           `json:"ignored,omitempty"`
	Warning string         `json:"warning,omitempty"`
}

// dispatch serves websocket request frames with the same operations as
// the HTTP routes.
func (s *Server) dispatch(ctx context.Context, userID string, method ws.Method, params json.RawMessage) (any, error) {
	if userID == "" {
		return nil, errors.New("not signed in")
	}

	var req turnRequest
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, errBadRequest
		}
	}

	var (
		res turnResult
		err error
	)
	engine := s.conversations.Get(userID)
	switch method {
	case ws.MethodState:
		res.State = engine.State()
	case ws.MethodSelect:
		res, err = s.selectMode(userID, req)
	case ws.MethodSubmit:
		res, err = s.submit(ctx, userID, req)
	case ws.MethodReset:
		engine.Reset()
		res.State = engine.State()
	case ws.MethodClearError:
		engine.ClearError()
		res.State = engine.State()
	case ws.MethodNewSession:
		res = s.startNewSession(ctx, userID)
	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
	if err != nil {
		return nil, err
	}
	return wsResult{State: res.State, Ignored: res.Ignored, Warning: res.Warning}, nil
}

// snapshot is pushed with every conversation.updated frame.
func (s *Server) snapshot(userID string) any {
	if e, ok := s.conversations.Lookup(userID); ok {
		return e.State()
	}
	return dialogue.State{Tone: modes.DefaultTone}
}
