package commands

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/askbetter/internal/events"
	"github.com/dohr-michael/askbetter/internal/i18n"
	abmcp "github.com/dohr-michael/askbetter/internal/mcp"
	"github.com/dohr-michael/askbetter/internal/models"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp-serve",
		Usage: "Expose the refinement modes as an MCP server (stdio)",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "filter",
				UsageText: "Tool name to expose (empty = all)",
			},
		},
		Action: runMCPServe,
	}
}

func runMCPServe(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the MCP stdio transport
	setupLogging(cmd, true)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	bus := events.NewBus(64)
	defer bus.Close()

	model := models.New(ctx, cfg.Model, bus)
	if !model.Ready() {
		slog.Warn("model not configured, refine calls will fail", "error", model.ConfigError())
	}

	catalog, err := i18n.Load()
	if err != nil {
		return err
	}

	filter := cmd.StringArg("filter")
	slog.Debug("starting MCP server", "filter", filter, "model", model.Name())

	server := abmcp.NewMCPServer(model, catalog, Version, filter)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
