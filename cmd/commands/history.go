package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/askbetter/clients/api"
)

// NewHistoryCommand returns the history subcommand.
func NewHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List saved conversations",
		Flags: []cli.Flag{
			gatewayFlag(),
			&cli.StringFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "Account email (prompted when empty)",
			},
			&cli.BoolFlag{
				Name:  "show",
				Usage: "Print each transcript",
			},
		},
		Action: runHistory,
	}
}

func runHistory(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, true)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	client := api.New(gatewayURL(cmd, cfg))
	if _, err := signIn(ctx, client, newPrompter(), cmd.String("email")); err != nil {
		return err
	}

	list, err := client.History(ctx)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No chat history found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tSAVED")
	for _, h := range list {
		title := h.Title
		if title == "" {
			title = "No title"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", h.ID, title, len(h.ChatLog), h.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if cmd.Bool("show") {
		for _, h := range list {
			fmt.Printf("\n# %s\n", h.ID)
			for _, m := range h.ChatLog {
				fmt.Printf("[%s] %s\n", m.Sender, m.Text)
			}
		}
	}
	return nil
}
