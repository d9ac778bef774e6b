package bot

import (
	"context"
	"time"

	"discord-antinuke-bot/internal/commands/antinuke"
	"discord-antinuke-bot/internal/engine/auditor"
	"discord-antinuke-bot/internal/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Ready records the bot's own identity and syncs the guild commands
func (b *Bot) Ready(s *discordgo.Session, r *discordgo.Ready) {
	self, err := models.ParseActorID(r.User.ID)
	if err != nil {
		b.logger.Error("invalid self id in READY", zap.String("id", r.User.ID))
		return
	}
	b.svc.Detector().SetSelf(self)

	b.logger.Info("logged in",
		zap.String("user", r.User.Username),
		zap.String("id", r.User.ID),
		zap.Int("guilds", len(r.Guilds)),
	)

	ctx, cancel := context.WithTimeout(b.ctx, 15*time.Second)
	defer cancel()

	synced, err := antinuke.Register(ctx, s, r.User.ID, b.cfg.GuildID)
	if err != nil {
		b.logger.Error("failed to register commands", zap.String("guild", b.cfg.GuildID), zap.Error(err))
		return
	}
	b.logger.Info("registered commands", zap.String("guild", b.cfg.GuildID), zap.Int("count", len(synced)))
}

// GuildBanAdd observes a ban; the banning moderator is looked up in the audit log
func (b *Bot) GuildBanAdd(s *discordgo.Session, e *discordgo.GuildBanAdd) {
	if e.User == nil {
		return
	}
	b.observe(e.GuildID, e.User.ID, models.CategoryBan)
}

// ChannelDelete observes a channel deletion
func (b *Bot) ChannelDelete(s *discordgo.Session, e *discordgo.ChannelDelete) {
	if e.Channel == nil || e.GuildID == "" {
		return
	}
	b.observe(e.GuildID, e.ID, models.CategoryChannelDeletion)
}

// GuildRoleDelete observes a role deletion
func (b *Bot) GuildRoleDelete(s *discordgo.Session, e *discordgo.GuildRoleDelete) {
	b.observe(e.GuildID, e.RoleID, models.CategoryRoleDeletion)
}

func (b *Bot) observe(guildID, targetID string, category models.EventCategory) {
	if err := b.svc.Observe(b.ctx, guildID, targetID, category, time.Now()); err != nil {
		b.logger.Warn("event dropped", zap.String("category", category.String()), zap.Error(err))
	}
}

// AuditLogEntry consumes GUILD_AUDIT_LOG_ENTRY_CREATE frames, which carry the actor
func (b *Bot) AuditLogEntry(s *discordgo.Session, e *discordgo.Event) {
	if e.Type != auditor.EventAuditLogEntryCreate {
		return
	}
	receivedAt := time.Now()

	entry, err := auditor.ParseEntryFrame(e.RawData)
	if err != nil {
		if !auditor.IsUntracked(err) {
			b.logger.Warn("unreadable audit log frame", zap.Error(err))
		}
		return
	}

	err = b.svc.ObserveAttributed(b.ctx, models.EventRecord{
		GuildID:   entry.GuildID,
		Actor:     entry.Actor,
		Category:  entry.Category,
		TargetID:  entry.TargetID,
		Timestamp: receivedAt,
	})
	if err != nil {
		b.logger.Warn("event dropped", zap.String("category", entry.Category.String()), zap.Error(err))
	}
}

// InteractionCreate hands slash commands and modal submissions to the event loop
func (b *Bot) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID != b.cfg.GuildID {
		return
	}

	err := b.svc.Submit(b.ctx, "interaction", func(ctx context.Context) {
		b.handler.HandleInteraction(ctx, s, i)
	})
	if err != nil {
		b.logger.Warn("interaction dropped", zap.Error(err))
	}
}
