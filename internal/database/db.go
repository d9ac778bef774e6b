package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"discord-antinuke-bot/internal/config"

	_ "github.com/lib/pq"
)

type Database struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS antinuke_settings (
    guild_id TEXT PRIMARY KEY,
    threshold_bans INTEGER NOT NULL,
    threshold_deletions INTEGER NOT NULL,
    time_window INTEGER NOT NULL,
    log_channel_id BIGINT NOT NULL DEFAULT 0,
    whitelist BIGINT[] NOT NULL DEFAULT '{}',
    updated_at BIGINT NOT NULL
);
`

func NewDatabase(ctx context.Context, cfg config.PostgresConfig) (*Database, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.User, cfg.Password, cfg.Database, sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// One guild, one row: a small pool is plenty
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(1 * time.Hour)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}
