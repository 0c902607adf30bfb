package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/askbetter/clients/api"
	"github.com/dohr-michael/askbetter/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show gateway and model status",
		Flags:  []cli.Flag{gatewayFlag()},
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, true)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	live, beat, err := heartbeat.Read(heartbeat.Path(), 2*heartbeat.DefaultInterval)
	if err != nil {
		return fmt.Errorf("check heartbeat: %w", err)
	}
	switch live {
	case heartbeat.Alive:
		fmt.Printf("Local gateway: ALIVE (PID %d, uptime %s)\n", beat.PID, beat.Uptime())
	case heartbeat.Stale:
		fmt.Printf("Local gateway: STALE (PID %d, last heartbeat %s ago)\n",
			beat.PID, time.Since(beat.Timestamp).Truncate(time.Second))
	case heartbeat.Down:
		fmt.Println("Local gateway: NOT RUNNING")
	}

	url := gatewayURL(cmd, cfg)
	st, err := api.New(url).Status(ctx)
	if err != nil {
		fmt.Printf("Gateway %s: UNREACHABLE\n", url)
		return nil
	}
	if st.Ready {
		fmt.Printf("Gateway %s: model %s READY\n", url, st.Model)
	} else {
		fmt.Printf("Gateway %s: model %s NOT CONFIGURED (%s)\n", url, st.Model, st.ConfigError)
	}
	return nil
}
