package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/askbetter/internal/i18n"
	"github.com/dohr-michael/askbetter/internal/modes"
)

// NewModesCommand returns the modes subcommand.
func NewModesCommand() *cli.Command {
	return &cli.Command{
		Name:  "modes",
		Usage: "List refinement modes and tones",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "lang",
				Usage: "Display language (en, vi)",
			},
		},
		Action: runModes,
	}
}

func runModes(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd, true)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	catalog, err := i18n.Load()
	if err != nil {
		return err
	}
	lang := catalog.Match(cmd.String("lang"), cfg.UI.DefaultLanguage)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, m := range modes.All() {
		prefix := "mode." + string(m.ID) + "."
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, catalog.T(lang, prefix+"name"), catalog.T(lang, prefix+"description"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%s:\n", catalog.T(lang, "tone.label"))
	for _, t := range modes.Tones() {
		fmt.Printf("  %-14s %s\n", t, catalog.T(lang, "tone."+string(t)))
	}
	return nil
}
