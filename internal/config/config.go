package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Scryfall ScryfallConfig
	Worker   WorkerConfig
	Snapshot SnapshotConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port         int
	CORSOrigins  []string
	FrontendPath string
}

// DatabaseConfig holds the sqlite database configuration
type DatabaseConfig struct {
	Path   string
	LogSQL bool
}

type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// ScryfallConfig controls the external card catalog client
type ScryfallConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
}

// WorkerConfig controls the background price refresh worker.
// A zero interval disables the worker.
type WorkerConfig struct {
	PriceRefreshInterval time.Duration
	Platform             string
}

// SnapshotConfig controls automatic daily collection value snapshots
type SnapshotConfig struct {
	Auto     bool
	Hour     int
	Platform string
}

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string]string{
	"server.port":                   "PORT",
	"server.cors_origins":           "CORS_ALLOWED_ORIGINS",
	"server.frontend_path":          "FRONTEND_DIST_PATH",
	"database.path":                 "DB_PATH",
	"database.log_sql":              "DB_LOG_SQL",
	"log.level":                     "LOG_LEVEL",
	"log.format":                    "LOG_FORMAT",
	"scryfall.base_url":             "SCRYFALL_BASE_URL",
	"scryfall.timeout":              "SCRYFALL_TIMEOUT",
	"scryfall.rate_per_second":      "SCRYFALL_RATE",
	"worker.price_refresh_interval": "PRICE_REFRESH_INTERVAL",
	"worker.platform":               "PRICE_PLATFORM",
	"snapshot.auto":                 "SNAPSHOT_AUTO",
	"snapshot.hour":                 "SNAPSHOT_HOUR",
	"snapshot.platform":             "SNAPSHOT_PLATFORM",
}

// Load reads configuration from an optional .env file, an optional
// config.yaml (./configs or .) and environment variables, in increasing
// order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			CORSOrigins:  splitList(v.GetString("server.cors_origins")),
			FrontendPath: v.GetString("server.frontend_path"),
		},
		Database: DatabaseConfig{
			Path:   v.GetString("database.path"),
			LogSQL: v.GetBool("database.log_sql"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Scryfall: ScryfallConfig{
			BaseURL:       strings.TrimRight(v.GetString("scryfall.base_url"), "/"),
			Timeout:       v.GetDuration("scryfall.timeout"),
			RatePerSecond: v.GetFloat64("scryfall.rate_per_second"),
		},
		Worker: WorkerConfig{
			PriceRefreshInterval: v.GetDuration("worker.price_refresh_interval"),
			Platform:             v.GetString("worker.platform"),
		},
		Snapshot: SnapshotConfig{
			Auto:     v.GetBool("snapshot.auto"),
			Hour:     v.GetInt("snapshot.hour"),
			Platform: v.GetString("snapshot.platform"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("server.frontend_path", "")

	v.SetDefault("database.path", "./magicgest.db")
	v.SetDefault("database.log_sql", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("scryfall.base_url", "https://api.scryfall.com")
	v.SetDefault("scryfall.timeout", "10s")
	v.SetDefault("scryfall.rate_per_second", 10)

	v.SetDefault("worker.price_refresh_interval", "0s")
	v.SetDefault("worker.platform", "scryfall_usd")

	v.SetDefault("snapshot.auto", false)
	v.SetDefault("snapshot.hour", 23)
	v.SetDefault("snapshot.platform", "scryfall_usd")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Snapshot.Hour < 0 || c.Snapshot.Hour > 23 {
		return fmt.Errorf("snapshot hour must be between 0 and 23, got %d", c.Snapshot.Hour)
	}
	if c.Scryfall.RatePerSecond <= 0 {
		return fmt.Errorf("scryfall rate must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
