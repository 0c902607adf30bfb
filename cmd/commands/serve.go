package commands

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/askbetter/internal/auth"
	"github.com/dohr-michael/askbetter/internal/config"
	"github.com/dohr-michael/askbetter/internal/dialogue"
	"github.com/dohr-michael/askbetter/internal/docstore"
	"github.com/dohr-michael/askbetter/internal/events"
	"github.com/dohr-michael/askbetter/internal/gateway"
	"github.com/dohr-michael/askbetter/internal/heartbeat"
	"github.com/dohr-michael/askbetter/internal/i18n"
	"github.com/dohr-michael/askbetter/internal/models"
	"github.com/dohr-michael/askbetter/internal/storage"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the askbetter gateway server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, false)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}

	// Event bus
	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	eventLog := storage.NewEventLogger(filepath.Join(config.HomePath(), "logs"), bus)
	defer eventLog.Close()

	// Accounts always live in SQLite; documents follow the storage driver
	db, err := storage.OpenSQLite(cfg.Storage.DatabasePath())
	if err != nil {
		return err
	}
	defer db.Close()

	authSvc, err := openAccounts(db, bus, cfg.Auth)
	if err != nil {
		return err
	}
	docs, err := docstore.Open(cfg.Storage, db)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}

	catalog, err := i18n.Load()
	if err != nil {
		return err
	}

	// A misconfigured model keeps the gateway up; clients show the banner
	model := models.New(ctx, cfg.Model, bus)

	server := gateway.NewServer(gateway.Options{
		Config:        *cfg,
		Bus:           bus,
		Auth:          authSvc,
		Docs:          docs,
		Conversations: dialogue.NewManager(model, docs, bus),
		Model:         model,
		Catalog:       catalog,
	})

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	beat := heartbeat.Start(heartbeat.Path(), heartbeat.DefaultInterval, listenURL(cfg), model.Name())
	defer beat.Stop()

	// Wait for signal or error
	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// openAccounts builds the account service with the mailer auth.mail selects.
func openAccounts(db *sql.DB, bus *events.Bus, cfg config.AuthConfig) (*auth.Service, error) {
	mailer, err := auth.NewMailer(cfg.Mail)
	if err != nil {
		return nil, err
	}
	return auth.New(db, bus, cfg, mailer)
}
