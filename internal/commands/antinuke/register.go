package antinuke

import (
	"context"
	"fmt"

	service "discord-antinuke-bot/internal/antinuke"

	"github.com/bwmarrin/discordgo"
)

// Registrar replaces a guild's command set in one call
type Registrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Register syncs Commands to the guild. A rejection wraps ErrCommandRegistration.
func Register(ctx context.Context, reg Registrar, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	synced, err := reg.ApplicationCommandBulkOverwrite(appID, guildID, Commands, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrCommandRegistration, err)
	}
	return synced, nil
}
