package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/askbetter/internal/config"
	"github.com/dohr-michael/askbetter/internal/heartbeat"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:    "askbetter",
		Usage:   "Refine questions and prompts with a language model",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewServeCommand(),
			NewAskCommand(),
			NewModesCommand(),
			NewHistoryCommand(),
			NewStatusCommand(),
			NewMCPServeCommand(),
			NewSecretCommand(),
		},
	}
}

// setupLogging routes slog to stderr; quiet commands only show warnings.
func setupLogging(cmd *cli.Command, quiet bool) {
	level := slog.LevelInfo
	switch {
	case cmd.Bool("debug"):
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig loads the config file, using defaults when it does not exist.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// gatewayFlag selects the gateway base URL of client commands.
func gatewayFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "gateway",
		Usage: "Gateway base URL (default from config)",
	}
}

// gatewayURL picks the --gateway flag, then the URL of a live local
// gateway, then the configured address.
func gatewayURL(cmd *cli.Command, cfg *config.Config) string {
	if cmd.IsSet("gateway") {
		return cmd.String("gateway")
	}
	if live, beat, err := heartbeat.Read(heartbeat.Path(), 2*heartbeat.DefaultInterval); err == nil && live == heartbeat.Alive {
		return beat.URL
	}
	return listenURL(cfg)
}

func listenURL(cfg *config.Config) string {
	return fmt.Sprintf("http://%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
}
