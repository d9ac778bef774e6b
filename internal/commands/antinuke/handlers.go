package antinuke

import (
	"context"
	"fmt"

	service "discord-antinuke-bot/internal/antinuke"
	"discord-antinuke-bot/internal/commands/framework"
	"discord-antinuke-bot/internal/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Responder answers interactions
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Platform is the subset of *discordgo.Session the command handlers use
type Platform interface {
	Responder
	CommandRegistry
}

// Handler routes anti-nuke commands. Every method must run on the event loop.
type Handler struct {
	svc      *service.Service
	channels config.ChannelResolver
	logger   *zap.Logger
}

// NewHandler creates the command handler
func NewHandler(svc *service.Service, channels config.ChannelResolver, logger *zap.Logger) *Handler {
	return &Handler{
		svc:      svc,
		channels: channels,
		logger:   logger.Named("commands"),
	}
}

// HandleInteraction dispatches slash commands and modal submissions
func (h *Handler) HandleInteraction(ctx context.Context, p Platform, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		if !isAdmin(i) {
			respondError(p, i, "Missing permission", "You need the Administrator permission to use this command.")
			return
		}
		switch data.Name {
		case NukeConfigName:
			h.OpenConfigForm(p, i)
		case CleanupCommandsName:
			h.CleanupCommands(ctx, p, i)
		case NukeStatusName:
			h.Status(p, i)
		case WhitelistName:
			h.Whitelist(ctx, framework.NewSlashContext(p, i, slashArgs(data)))
		case RemoveWhitelistName:
			h.RemoveWhitelist(ctx, framework.NewSlashContext(p, i, slashArgs(data)))
		}

	case discordgo.InteractionModalSubmit:
		if i.ModalSubmitData().CustomID != ConfigModalID {
			return
		}
		if !isAdmin(i) {
			respondError(p, i, "Missing permission", "You need the Administrator permission to change the configuration.")
			return
		}
		h.SubmitConfigForm(ctx, p, i)
	}
}

// HandlePrefix dispatches a text command. It returns false for unknown commands.
func (h *Handler) HandlePrefix(ctx context.Context, c framework.Context, command string) bool {
	switch command {
	case WhitelistName:
		h.Whitelist(ctx, c)
	case RemoveWhitelistName:
		h.RemoveWhitelist(ctx, c)
	default:
		return false
	}
	return true
}

// Status shows settings and tracker state
func (h *Handler) Status(p Responder, i *discordgo.InteractionCreate) {
	st := h.svc.Status()

	embed := CreateInfoEmbed("🛡️ AntiNuke Status")
	embed.Fields = append(settingsFields(st.Settings),
		&discordgo.MessageEmbedField{Name: "Tracked buckets", Value: fmt.Sprintf("%d", st.Tracker.ActiveBuckets), Inline: true},
		&discordgo.MessageEmbedField{Name: "Events in memory", Value: fmt.Sprintf("%d", st.Tracker.TotalEvents), Inline: true},
		&discordgo.MessageEmbedField{Name: "Queued jobs", Value: fmt.Sprintf("%d", st.PendingJobs), Inline: true},
		&discordgo.MessageEmbedField{Name: "Attribution", Value: st.Attribution, Inline: true},
	)
	respondEmbed(p, i, embed)
}

// slashArgs flattens option values into positional arguments
func slashArgs(data discordgo.ApplicationCommandInteractionData) []string {
	args := make([]string, 0, len(data.Options))
	for _, opt := range data.Options {
		if opt.Value != nil {
			args = append(args, fmt.Sprint(opt.Value))
		}
	}
	return args
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func respondEmbed(p Responder, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	p.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondError(p Responder, i *discordgo.InteractionCreate, title, desc string) {
	respondEmbed(p, i, CreateErrorEmbed(title, desc))
}
