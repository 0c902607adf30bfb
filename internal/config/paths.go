package config

import (
	"os"
	"path/filepath"
)

// HomePath returns the root directory for askbetter data.
// It uses $ASKBETTER_PATH if set, otherwise defaults to ~/.askbetter.
func HomePath() string {
	if v := os.Getenv("ASKBETTER_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".askbetter")
	}
	return filepath.Join(home, ".askbetter")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(HomePath(), "config.jsonc")
}

// DotenvPath returns the path to the .env file.
func DotenvPath() string {
	return filepath.Join(HomePath(), ".env")
}
