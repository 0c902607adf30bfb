package auth

import (
	"context"
	"sync"

	"github.com/dohr-michael/askbetter/internal/events"
)

// Observe calls fn with the user signed in with token, then again on every
// sign-in or sign-out of that token (nil once signed out). The returned
// function stops the observation.
func (s *Service) Observe(ctx context.Context, token string, fn func(*User)) (func(), error) {
	u, err := s.UserForToken(ctx, token)
	if err != nil {
		return nil, err
	}
	fn(u)

	if s.bus == nil {
		return func() {}, nil
	}
	return s.bus.Subscribe(func(e events.Event) {
		p, ok := events.ExtractPayload[events.AuthChangedPayload](e)
		if !ok || p.Token != token {
			return
		}
		if p.UserID == "" {
			fn(nil)
			return
		}
		u, err := s.UserForToken(context.Background(), token)
		if err != nil {
			fn(nil)
			return
		}
		fn(u)
	}, events.EventAuthChanged), nil
}

// CurrentSession is the signed-in state of one client. Start subscribes to
// session changes; Close unsubscribes.
type CurrentSession struct {
	svc      *Service
	onChange func(*User)

	mu    sync.RWMutex
	token string
	user  *User
	stop  func()
}

// NewCurrentSession creates a signed-out session handle. onChange may be nil.
func NewCurrentSession(svc *Service, onChange func(*User)) *CurrentSession {
	return &CurrentSession{svc: svc, onChange: onChange}
}

// Start resumes an existing session token.
func (c *CurrentSession) Start(ctx context.Context, token string) error {
	c.Close()

	stop, err := c.svc.Observe(ctx, token, c.set)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.stop = stop
	c.mu.Unlock()
	return nil
}

// SignIn signs in with credentials and starts observing the new session.
func (c *CurrentSession) SignIn(ctx context.Context, email, password string) (*User, error) {
	_, token, err := c.svc.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx, token); err != nil {
		return nil, err
	}
	return c.User(), nil
}

// SignOut ends the current session.
func (c *CurrentSession) SignOut(ctx context.Context) error {
	token := c.Token()
	if token == "" {
		return nil
	}
	if err := c.svc.SignOut(ctx, token); err != nil {
		return err
	}
	c.set(nil)
	return nil
}

// User returns the signed-in user, or nil.
func (c *CurrentSession) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Token returns the session token, or "" when signed out.
func (c *CurrentSession) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Close stops observing the session. The session itself stays valid.
func (c *CurrentSession) Close() {
	c.mu.Lock()
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (c *CurrentSession) set(u *User) {
	c.mu.Lock()
	unchanged := u == nil && c.user == nil && c.token == ""
	c.user = u
	if u == nil {
		c.token = ""
	}
	c.mu.Unlock()

	if c.onChange != nil && !unchanged {
		c.onChange(u)
	}
}
