package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dohr-michael/askbetter/internal/auth"
	"github.com/dohr-michael/askbetter/internal/docstore"
	"github.com/dohr-michael/askbetter/internal/theme"
)

var (
	errUnknownTheme    = errors.New("unknown theme")
	errUnknownLanguage = errors.New("unsupported language")
)

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type session struct {
	User    *auth.User        `json:"user"`
	Token   string            `json:"token"`
	Profile *docstore.Profile `json:"profile,omitempty"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, token, err := s.auth.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	p := &docstore.Profile{
		UserID:   u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Theme:    string(s.defaultTheme()),
		Language: s.lang(r),
	}
	if err := s.docs.PutProfile(r.Context(), p); err != nil {
		// The account exists; the profile is rebuilt on first read.
		slog.Error("create profile", "user", u.ID, "error", err)
	}
	writeData(w, session{User: u, Token: token, Profile: p})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, token, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := s.profileFor(r, u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, session{User: u, Token: token, Profile: p})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	if err := s.auth.SignOut(r.Context(), tokenFrom(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	s.conversations.Drop(user.ID)
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

type resetRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	userID, err := s.auth.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	s.conversations.Drop(userID)
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) defaultTheme() theme.Name {
	n, err := theme.Parse(s.ui.DefaultTheme)
	if err != nil {
		return theme.Default
	}
	return n
}

// profileFor loads the profile of u, building a default one when missing.
func (s *Server) profileFor(r *http.Request, u *auth.User) (*docstore.Profile, error) {
	p, err := s.docs.GetProfile(r.Context(), u.ID)
	if errors.Is(err, docstore.ErrNotFound) {
		return &docstore.Profile{
			UserID:   u.ID,
			Name:     u.Name,
			Email:    u.Email,
			Theme:    string(s.defaultTheme()),
			Language: s.lang(r),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profileFor(r, userFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, p)
}

type profileUpdate struct {
	Name     *string `json:"name"`
	Theme    *string `json:"theme"`
	Language *string `json:"language"`
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdate
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user := userFrom(r.Context())
	p, err := s.profileFor(r, user)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Theme != nil {
		n, err := theme.Parse(*req.Theme)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %q", errUnknownTheme, *req.Theme))
			return
		}
		p.Theme = string(n)
	}
	if req.Language != nil {
		if !s.catalog.Supported(*req.Language) {
			writeError(w, fmt.Errorf("%w: %q", errUnknownLanguage, *req.Language))
			return
		}
		p.Language = *req.Language
	}
	if req.Name != nil {
		if err := s.auth.UpdateName(r.Context(), user.ID, *req.Name); err != nil {
			writeError(w, err)
			return
		}
		p.Name = *req.Name
	}

	if err := s.docs.PutProfile(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, p)
}

type historyEntry struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Timestamp time.Time          `json:"timestamp"`
	ChatLog   []docstore.Message `json:"chat_log"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	out, err := s.history(r.Context(), userFrom(r.Context()).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, out)
}

func (s *Server) history(ctx context.Context, userID string) ([]historyEntry, error) {
	list, err := s.docs.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]historyEntry, len(list))
	for i, cs := range list {
		out[i] = historyEntry{
			ID:        cs.ID,
			Title:     cs.Title(),
			Timestamp: cs.Timestamp,
			ChatLog:   cs.ChatLog,
		}
	}
	return out, nil
}
