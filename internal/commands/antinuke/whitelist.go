package antinuke

import (
	"context"
	"fmt"

	"discord-antinuke-bot/internal/commands/framework"
	"discord-antinuke-bot/internal/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Whitelist handles `whitelist <user>`
func (h *Handler) Whitelist(ctx context.Context, c framework.Context) {
	user, ok := h.whitelistTarget(c, WhitelistName)
	if !ok {
		return
	}
	actor, _ := models.ParseActorID(user.ID)

	added, err := h.svc.Settings().AddWhitelist(ctx, actor)
	switch {
	case err != nil:
		h.logger.Error("whitelist add not persisted", zap.String("actor", actor.String()), zap.Error(err))
		c.ReplyEmbed(CreateErrorEmbed("Not saved",
			fmt.Sprintf("User %s is whitelisted until restart, but the configuration could not be saved.", actor.Mention())))
	case !added:
		c.ReplyEmbed(CreateInfoEmbedWithDescription("Already whitelisted",
			fmt.Sprintf("User %s is already in the whitelist.", actor.Mention())))
	default:
		h.logger.Info("whitelist add", zap.String("actor", actor.String()), zap.String("by", c.GetAuthor().ID))
		c.ReplyEmbed(CreateSuccessEmbed("Whitelist updated",
			fmt.Sprintf("User %s added to the whitelist.", actor.Mention())))
	}
}

// RemoveWhitelist handles `remove_whitelist <user>`
func (h *Handler) RemoveWhitelist(ctx context.Context, c framework.Context) {
	user, ok := h.whitelistTarget(c, RemoveWhitelistName)
	if !ok {
		return
	}
	actor, _ := models.ParseActorID(user.ID)

	removed, err := h.svc.Settings().RemoveWhitelist(ctx, actor)
	switch {
	case err != nil:
		h.logger.Error("whitelist remove not persisted", zap.String("actor", actor.String()), zap.Error(err))
		c.ReplyEmbed(CreateErrorEmbed("Not saved",
			fmt.Sprintf("User %s is removed until restart, but the configuration could not be saved.", actor.Mention())))
	case !removed:
		c.ReplyEmbed(CreateInfoEmbedWithDescription("Not whitelisted",
			fmt.Sprintf("User %s is not in the whitelist.", actor.Mention())))
	default:
		h.logger.Info("whitelist remove", zap.String("actor", actor.String()), zap.String("by", c.GetAuthor().ID))
		c.ReplyEmbed(CreateSuccessEmbed("Whitelist updated",
			fmt.Sprintf("User %s removed from the whitelist.", actor.Mention())))
	}
}

// whitelistTarget checks permission and resolves the single user argument
func (h *Handler) whitelistTarget(c framework.Context, command string) (*discordgo.User, bool) {
	if !c.IsAdmin() {
		c.ReplyEmbed(CreateErrorEmbed("Missing permission", "You need the Administrator permission to use this command."))
		return nil, false
	}

	args := c.GetArgs()
	if len(args) != 1 {
		c.ReplyEmbed(CreateErrorEmbed("Invalid usage", fmt.Sprintf("Usage: `%s <user>`", command)))
		return nil, false
	}

	user, err := c.ResolveUser(args[0])
	if err != nil {
		c.ReplyEmbed(CreateErrorEmbed("Unknown user", fmt.Sprintf("Could not find user `%s`.", args[0])))
		return nil, false
	}
	return user, true
}
