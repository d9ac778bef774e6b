package antinuke

import (
	"fmt"
	"strings"
	"time"

	"discord-antinuke-bot/internal/config"
	"discord-antinuke-bot/internal/models"

	"github.com/bwmarrin/discordgo"
)

// Embed colors
const (
	ColorSuccess = 0x2b2d31 // Dark gray for success
	ColorError   = 0xed4245 // Red for errors
	ColorInfo    = 0x5865f2 // Blurple for info
)

// CreateSuccessEmbed creates a clean success embed
func CreateSuccessEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✓ " + title,
		Description: description,
		Color:       ColorSuccess,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "AntiNuke System",
		},
	}
}

// CreateErrorEmbed creates a clean error embed
func CreateErrorEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✗ " + title,
		Description: description,
		Color:       ColorError,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "AntiNuke System",
		},
	}
}

// CreateInfoEmbed creates a clean info embed
func CreateInfoEmbed(title string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:     title,
		Color:     ColorInfo,
		Timestamp: time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "AntiNuke System",
		},
	}
}

// CreateInfoEmbedWithDescription creates an info embed with a body
func CreateInfoEmbedWithDescription(title, description string) *discordgo.MessageEmbed {
	embed := CreateInfoEmbed(title)
	embed.Description = description
	return embed
}

// settingsFields renders settings as embed fields
func settingsFields(s config.Settings) []*discordgo.MessageEmbedField {
	window := models.FormatWindow(s.Window())

	logChannel := "Not set"
	if ch := s.LogChannel(); ch != "" {
		logChannel = "<#" + ch + ">"
	}

	return []*discordgo.MessageEmbedField{
		{Name: "Ban threshold", Value: fmt.Sprintf("%d in %s", s.BanThreshold, window), Inline: true},
		{Name: "Deletion threshold", Value: fmt.Sprintf("%d in %s", s.DeletionThreshold, window), Inline: true},
		{Name: "Log channel", Value: logChannel, Inline: true},
		{Name: "Whitelist", Value: formatWhitelist(s.Whitelist)},
	}
}

func formatWhitelist(ids []models.ActorID) string {
	if len(ids) == 0 {
		return "Empty"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	out := strings.Join(parts, ", ")
	if len(out) > 1000 {
		out = out[:997] + "..."
	}
	return out
}

// CreateSettingsEmbed confirms an applied configuration
func CreateSettingsEmbed(s config.Settings) *discordgo.MessageEmbed {
	embed := CreateSuccessEmbed("Configuration updated", "")
	embed.Fields = settingsFields(s)
	return embed
}
