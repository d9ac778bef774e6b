package antinuke

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"discord-antinuke-bot/internal/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ConfigModalID identifies the configuration form submission
const ConfigModalID = "nuke_config_modal"

// Form field IDs
const (
	fieldBanThreshold      = "threshold_bans"
	fieldDeletionThreshold = "threshold_deletions"
	fieldTimeWindow        = "time_window"
	fieldLogChannel        = "log_channel_id"
	fieldWhitelist         = "whitelist"
)

// ConfigModal builds the five-field configuration form prefilled from s
func ConfigModal(s config.Settings) *discordgo.InteractionResponse {
	whitelist := make([]string, len(s.Whitelist))
	for i, id := range s.Whitelist {
		whitelist[i] = id.String()
	}

	row := func(input discordgo.TextInput) discordgo.MessageComponent {
		return discordgo.ActionsRow{Components: []discordgo.MessageComponent{input}}
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: ConfigModalID,
			Title:    "AntiNuke configuration",
			Components: []discordgo.MessageComponent{
				row(discordgo.TextInput{
					CustomID:    fieldBanThreshold,
					Label:       "Ban threshold",
					Style:       discordgo.TextInputShort,
					Placeholder: "Bans within the window that trigger a ban",
					Value:       strconv.Itoa(s.BanThreshold),
					Required:    true,
					MaxLength:   6,
				}),
				row(discordgo.TextInput{
					CustomID:    fieldDeletionThreshold,
					Label:       "Deletion threshold",
					Style:       discordgo.TextInputShort,
					Placeholder: "Channel/role deletions within the window",
					Value:       strconv.Itoa(s.DeletionThreshold),
					Required:    true,
					MaxLength:   6,
				}),
				row(discordgo.TextInput{
					CustomID:    fieldTimeWindow,
					Label:       "Time window (seconds)",
					Style:       discordgo.TextInputShort,
					Placeholder: "Window length in seconds",
					Value:       strconv.Itoa(s.TimeWindow),
					Required:    true,
					MaxLength:   9,
				}),
				row(discordgo.TextInput{
					CustomID:    fieldLogChannel,
					Label:       "Log channel ID",
					Style:       discordgo.TextInputShort,
					Placeholder: "ID of the channel that receives ban logs",
					Value:       s.LogChannel(),
					Required:    true,
					MaxLength:   20,
				}),
				row(discordgo.TextInput{
					CustomID:    fieldWhitelist,
					Label:       "Whitelist changes (+ID add, -ID remove)",
					Style:       discordgo.TextInputParagraph,
					Placeholder: "Example: +123456789,-987654321",
					Value:       strings.Join(whitelist, ", "),
					Required:    false,
				}),
			},
		},
	}
}

// ProposalFromModal reads the submitted form fields into a Proposal
func ProposalFromModal(data discordgo.ModalSubmitInteractionData) config.Proposal {
	values := make(map[string]string, 5)
	var collect func(components []discordgo.MessageComponent)
	collect = func(components []discordgo.MessageComponent) {
		for _, c := range components {
			switch v := c.(type) {
			case *discordgo.ActionsRow:
				collect(v.Components)
			case discordgo.ActionsRow:
				collect(v.Components)
			case *discordgo.TextInput:
				values[v.CustomID] = v.Value
			case discordgo.TextInput:
				values[v.CustomID] = v.Value
			}
		}
	}
	collect(data.Components)

	return config.Proposal{
		BanThreshold:      values[fieldBanThreshold],
		DeletionThreshold: values[fieldDeletionThreshold],
		TimeWindow:        values[fieldTimeWindow],
		LogChannel:        values[fieldLogChannel],
		WhitelistDiff:     values[fieldWhitelist],
	}
}

// OpenConfigForm answers /nuke_config with the form
func (h *Handler) OpenConfigForm(p Responder, i *discordgo.InteractionCreate) {
	if err := p.InteractionRespond(i.Interaction, ConfigModal(h.svc.Settings().Current())); err != nil {
		h.logger.Error("failed to open config form", zap.Error(err))
	}
}

// SubmitConfigForm validates, applies and persists a form submission
func (h *Handler) SubmitConfigForm(ctx context.Context, p Responder, i *discordgo.InteractionCreate) {
	proposal := ProposalFromModal(i.ModalSubmitData())

	settings, err := h.svc.Settings().ApplyForm(ctx, proposal, h.channels)
	var verr *config.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(p, i, "Invalid configuration", verr.Error())
		return
	case err != nil:
		h.logger.Error("configuration applied but not saved", zap.Error(err))
		embed := CreateSettingsEmbed(settings)
		embed.Description = "⚠️ Applied until restart: the configuration could not be saved."
		respondEmbed(p, i, embed)
		return
	}

	respondEmbed(p, i, CreateSettingsEmbed(settings))
}
