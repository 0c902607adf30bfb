// Package gateway serves the askbetter HTTP API and the websocket feed.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/askbetter/internal/auth"
	"github.com/dohr-michael/askbetter/internal/config"
	"github.com/dohr-michael/askbetter/internal/dialogue"
	"github.com/dohr-michael/askbetter/internal/docstore"
	"github.com/dohr-michael/askbetter/internal/events"
	"github.com/dohr-michael/askbetter/internal/gateway/ws"
	"github.com/dohr-michael/askbetter/internal/i18n"
)

// ModelStatus reports whether the model endpoint is usable.
type ModelStatus interface {
	Ready() bool
	ConfigError() error
	Name() string
}

// Options holds the collaborators of the gateway.
type Options struct {
	Config        config.Config
	Bus           *events.Bus
	Auth          *auth.Service
	Docs          docstore.Store
	Conversations *dialogue.Manager
	Model         ModelStatus
	Catalog       *i18n.Catalog
}

// Server is the askbetter gateway HTTP server.
type Server struct {
	httpServer    *http.Server
	hub           *ws.Hub
	bus           *events.Bus
	auth          *auth.Service
	docs          docstore.Store
	conversations *dialogue.Manager
	model         ModelStatus
	catalog       *i18n.Catalog
	ui            config.UIConfig
}

// NewServer creates a new gateway server.
func NewServer(opts Options) *Server {
	s := &Server{
		bus:           opts.Bus,
		auth:          opts.Auth,
		docs:          opts.Docs,
		conversations: opts.Conversations,
		model:         opts.Model,
		catalog:       opts.Catalog,
		ui:            opts.Config.UI,
	}
	s.hub = ws.NewHub(opts.Bus, opts.Auth, s.dispatch, s.snapshot)

	limiter := newIPLimiter(opts.Config.Gateway.RateLimit)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/modes", s.handleModes)
	r.Get("/api/tones", s.handleTones)
	r.Get("/api/ws", s.hub.ServeWS)

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(limiter.middleware)
		r.Post("/signup", s.handleSignUp)
		r.Post("/signin", s.handleSignIn)
		r.With(s.requireAuth).Post("/signout", s.handleSignOut)
		r.Post("/reset-password", s.handleRequestReset)
		r.Post("/reset-password/confirm", s.handleConfirmReset)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/api/profile", s.handleGetProfile)
		r.Put("/api/profile", s.handlePutProfile)
		r.Get("/api/history", s.handleHistory)
		r.Get("/api/events", s.handleEvents)

		r.Get("/api/conversation", s.handleConversation)
		r.Put("/api/conversation/mode", s.handleSelect)
		r.Post("/api/conversation/messages", s.handleSubmit)
		r.Post("/api/conversation/reset", s.handleReset)
		r.Post("/api/conversation/new", s.handleNewSession)
	})

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.Config.Gateway.Host, opts.Config.Gateway.Port),
		Handler: r,
	}

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("askbetter gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}
