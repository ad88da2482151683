// Package config loads the bot configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	DiscordToken  string `env:"DISCORD_TOKEN"`
	CommandPrefix string `env:"COMMAND_PREFIX" default:"."`

	SpreadsheetID   string `env:"SPREADSHEET_ID"`
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" default:"creds.json"`

	CatalogBaseURL string `env:"CATALOG_BASE_URL" default:"https://itunes.apple.com"`

	OpsPort string `env:"OPS_PORT" default:"8080"`

	ScanStartupDelay time.Duration `env:"SCAN_STARTUP_DELAY" default:"5s"`
	ScanInterval     time.Duration `env:"SCAN_INTERVAL" default:"3m"`
	SessionTimeout   time.Duration `env:"SESSION_TIMEOUT" default:"50s"`
	SearchTimeout    time.Duration `env:"SEARCH_TIMEOUT" default:"30s"`
	RefreshInterval  time.Duration `env:"CREDENTIAL_REFRESH_INTERVAL" default:"3800s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DISCORD_TOKEN":  cfg.DiscordToken,
		"SPREADSHEET_ID": cfg.SpreadsheetID,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if _, err := os.Stat(cfg.CredentialsFile); err != nil {
		return fmt.Errorf("GOOGLE_CREDENTIALS_FILE %q not readable: %w", cfg.CredentialsFile, err)
	}

	if cfg.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %s", cfg.ScanInterval)
	}
	if cfg.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive, got %s", cfg.SessionTimeout)
	}
	if cfg.SearchTimeout <= 0 {
		return fmt.Errorf("SEARCH_TIMEOUT must be positive, got %s", cfg.SearchTimeout)
	}
	if cfg.RefreshInterval <= 0 {
		return fmt.Errorf("CREDENTIAL_REFRESH_INTERVAL must be positive, got %s", cfg.RefreshInterval)
	}
	if cfg.ScanStartupDelay < 0 {
		return fmt.Errorf("SCAN_STARTUP_DELAY must not be negative, got %s", cfg.ScanStartupDelay)
	}

	return nil
}
