package bot

import (
	"github.com/bwmarrin/discordgo"
)

// ChannelLookup answers whether a channel exists in the protected guild, using the
// state cache first and REST on a miss
type ChannelLookup struct {
	Session *discordgo.Session
	GuildID string
}

// ChannelExists implements config.ChannelResolver
func (c ChannelLookup) ChannelExists(channelID string) bool {
	if channelID == "" {
		return false
	}
	if c.Session.StateEnabled && c.Session.State != nil {
		if ch, err := c.Session.State.Channel(channelID); err == nil {
			return ch.GuildID == c.GuildID
		}
	}
	ch, err := c.Session.Channel(channelID)
	if err != nil {
		return false
	}
	return ch.GuildID == c.GuildID
}
