package config

import (
	"fmt"
	"os"
	"time"

	"discord-antinuke-bot/internal/redis"

	"gopkg.in/yaml.v3"
)

// Attribution modes
const (
	AttributionLookup = "lookup"
	AttributionStream = "stream"
)

// Settings backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// BotConfig is the process configuration read from bot.yaml
type BotConfig struct {
	Token            string         `yaml:"token" validate:"required"`
	GuildID          string         `yaml:"guild_id" validate:"required,numeric"`
	CommandPrefix    string         `yaml:"command_prefix" validate:"required"`
	SettingsBackend  string         `yaml:"settings_backend" validate:"oneof=file postgres"`
	SettingsPath     string         `yaml:"settings_path"`
	Postgres         PostgresConfig `yaml:"postgres"`
	Redis            redis.Config   `yaml:"redis"`
	MetricsAddr      string         `yaml:"metrics_addr"`
	Attribution      string         `yaml:"attribution" validate:"oneof=lookup stream"`
	AuditLookupLimit int            `yaml:"audit_lookup_limit" validate:"gte=1,lte=100"`
	AttributionTTL   time.Duration  `yaml:"attribution_ttl"`
	EventQueueSize   int            `yaml:"event_queue_size" validate:"gte=1"`
	MaxTrackedActors int            `yaml:"max_tracked_actors" validate:"gte=0"`
	SweepInterval    time.Duration  `yaml:"sweep_interval"`
	LogLevel         string         `yaml:"log_level"`
}

// PostgresConfig locates the optional Postgres settings backend
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// DefaultBotConfig returns the defaults applied before the YAML file is decoded
func DefaultBotConfig() *BotConfig {
	return &BotConfig{
		CommandPrefix:    "!",
		SettingsBackend:  BackendFile,
		SettingsPath:     "config.json",
		Attribution:      AttributionLookup,
		AuditLookupLimit: 1,
		AttributionTTL:   30 * time.Second,
		EventQueueSize:   1024,
		MaxTrackedActors: 10000,
		SweepInterval:    5 * time.Minute,
		LogLevel:         "info",
	}
}

// LoadBotConfig reads path, applies environment overrides and validates the result.
// A missing file is fine when the environment provides token and guild.
func LoadBotConfig(path string) (*BotConfig, error) {
	cfg := DefaultBotConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// environment only
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Token = token
	}
	if guildID := os.Getenv("GUILD_ID"); guildID != "" {
		cfg.GuildID = guildID
	}
	if settingsPath := os.Getenv("SETTINGS_PATH"); settingsPath != "" {
		cfg.SettingsPath = settingsPath
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid bot config: %w", err)
	}
	return cfg, nil
}
