package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/askbetter/internal/config"
	"github.com/dohr-michael/askbetter/internal/models"
	"github.com/dohr-michael/askbetter/internal/secrets"
)

// NewSecretCommand returns the secret subcommand.
func NewSecretCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "Manage sealed model credentials",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Seal an API key into the .env file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "var",
						Usage: "Variable name (default: the model driver's key variable)",
					},
				},
				Action: runSecretSet,
			},
		},
	}
}

func runSecretSet(_ context.Context, cmd *cli.Command) error {
	setupLogging(cmd, true)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	name := cmd.String("var")
	if name == "" {
		vars := models.EnvVars(cfg.Model.Driver)
		if len(vars) == 0 {
			return fmt.Errorf("driver %q takes no API key; use --var", cfg.Model.Driver)
		}
		name = vars[0]
	}

	value, err := newPrompter().password(name + ": ")
	if err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("empty value, nothing written")
	}

	k, err := secrets.CreateKeyring(secrets.KeyPath())
	if err != nil {
		return err
	}
	sealed, err := k.Seal(value)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(config.HomePath(), 0o700); err != nil {
		return err
	}
	if err := secrets.SetEnv(config.DotenvPath(), name, sealed); err != nil {
		return err
	}

	fmt.Printf("%s sealed into %s\n", name, config.DotenvPath())
	return nil
}
