package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"discord-antinuke-bot/internal/config"
	"discord-antinuke-bot/internal/models"

	"github.com/lib/pq"
)

// SettingsStore persists one guild's anti-nuke settings in Postgres
type SettingsStore struct {
	db      *Database
	guildID string
}

var _ config.Store = (*SettingsStore)(nil)

// Settings returns a config.Store scoped to guildID
func (d *Database) Settings(guildID string) *SettingsStore {
	return &SettingsStore{db: d, guildID: guildID}
}

func (s *SettingsStore) Load(ctx context.Context) (config.Settings, error) {
	var (
		out       config.Settings
		channelID int64
		whitelist []int64
	)
	err := s.db.db.QueryRowContext(ctx, `
		SELECT threshold_bans, threshold_deletions, time_window, log_channel_id, whitelist
		FROM antinuke_settings
		WHERE guild_id = $1
	`, s.guildID).Scan(&out.BanThreshold, &out.DeletionThreshold, &out.TimeWindow, &channelID, pq.Array(&whitelist))

	if errors.Is(err, sql.ErrNoRows) {
		return config.Settings{}, config.ErrNotFound
	}
	if err != nil {
		return config.Settings{}, fmt.Errorf("%w: query settings for guild %s: %v", config.ErrConfigIO, s.guildID, err)
	}

	out.LogChannelID = uint64(channelID)
	out.Whitelist = make([]models.ActorID, 0, len(whitelist))
	for _, id := range whitelist {
		out.Whitelist = append(out.Whitelist, models.ActorID(id))
	}

	if err := config.Validate(out); err != nil {
		return config.Settings{}, fmt.Errorf("%w: %v", config.ErrMalformed, err)
	}
	return out, nil
}

func (s *SettingsStore) Save(ctx context.Context, settings config.Settings) error {
	whitelist := make([]int64, 0, len(settings.Whitelist))
	for _, id := range settings.Whitelist {
		whitelist = append(whitelist, int64(id))
	}

	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO antinuke_settings (guild_id, threshold_bans, threshold_deletions, time_window, log_channel_id, whitelist, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (guild_id) DO UPDATE SET
			threshold_bans = EXCLUDED.threshold_bans,
			threshold_deletions = EXCLUDED.threshold_deletions,
			time_window = EXCLUDED.time_window,
			log_channel_id = EXCLUDED.log_channel_id,
			whitelist = EXCLUDED.whitelist,
			updated_at = EXCLUDED.updated_at
	`, s.guildID, settings.BanThreshold, settings.DeletionThreshold, settings.TimeWindow,
		int64(settings.LogChannelID), pq.Array(whitelist), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: save settings for guild %s: %v", config.ErrConfigIO, s.guildID, err)
	}
	return nil
}
