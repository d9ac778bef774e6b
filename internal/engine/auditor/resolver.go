package auditor

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"discord-antinuke-bot/internal/cache"
	"discord-antinuke-bot/internal/metrics"
	"discord-antinuke-bot/internal/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ErrUnattributed is returned when the audit log has no entry for the action yet
var ErrUnattributed = errors.New("no audit log entry for action")

// AuditLogFetcher is the subset of *discordgo.Session used for attribution
type AuditLogFetcher interface {
	GuildAuditLog(guildID, userID, beforeID string, actionType, limit int, options ...discordgo.RequestOption) (*discordgo.GuildAuditLog, error)
}

// ActionFor maps a tracked category to the audit-log action that records it
func ActionFor(category models.EventCategory) discordgo.AuditLogAction {
	switch category {
	case models.CategoryBan:
		return discordgo.AuditLogActionMemberBanAdd
	case models.CategoryChannelDeletion:
		return discordgo.AuditLogActionChannelDelete
	case models.CategoryRoleDeletion:
		return discordgo.AuditLogActionRoleDelete
	default:
		return 0
	}
}

// CategoryFor is the inverse of ActionFor
func CategoryFor(action discordgo.AuditLogAction) (models.EventCategory, bool) {
	switch action {
	case discordgo.AuditLogActionMemberBanAdd:
		return models.CategoryBan, true
	case discordgo.AuditLogActionChannelDelete:
		return models.CategoryChannelDeletion, true
	case discordgo.AuditLogActionRoleDelete:
		return models.CategoryRoleDeletion, true
	default:
		return 0, false
	}
}

// Resolver finds the actor responsible for a gateway event by reading the guild audit log.
//
// The newest `limit` entries for the action are fetched. An entry whose target is the
// affected object wins; otherwise the newest entry is used. With limit 1 this is a plain
// "most recent entry" lookup and may misattribute concurrent actions by different actors.
type Resolver struct {
	fetcher AuditLogFetcher
	cache   *cache.Cache
	limit   int
	logger  *zap.Logger
}

// NewResolver creates a resolver. c may be nil to disable caching.
func NewResolver(fetcher AuditLogFetcher, c *cache.Cache, limit int, logger *zap.Logger) *Resolver {
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	return &Resolver{
		fetcher: fetcher,
		cache:   c,
		limit:   limit,
		logger:  logger.Named("attribution"),
	}
}

// Resolve returns the actor behind category on targetID in guildID
func (r *Resolver) Resolve(ctx context.Context, guildID, targetID string, category models.EventCategory) (models.ActorID, error) {
	action := ActionFor(category)
	if action == 0 {
		return 0, fmt.Errorf("unsupported category %s", category)
	}

	fetch := func(ctx context.Context) (string, error) {
		return r.lookup(ctx, guildID, targetID, action)
	}

	var (
		userID string
		err    error
	)
	if r.cache != nil && targetID != "" {
		userID, err = r.cache.Get(ctx, cacheKey(guildID, action, targetID), fetch)
	} else {
		userID, err = fetch(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrUnattributed) {
			metrics.AttributionMisses.Inc()
		}
		return 0, err
	}

	actor, err := models.ParseActorID(userID)
	if err != nil {
		return 0, fmt.Errorf("audit log entry has bad user id: %w", err)
	}
	return actor, nil
}

// Remember stores an attribution learned from the audit stream so a later lookup
// for the same object skips the REST call
func (r *Resolver) Remember(ctx context.Context, guildID, targetID string, category models.EventCategory, actor models.ActorID) {
	if r.cache == nil || targetID == "" {
		return
	}
	r.cache.Set(ctx, cacheKey(guildID, ActionFor(category), targetID), actor.String())
}

func (r *Resolver) lookup(ctx context.Context, guildID, targetID string, action discordgo.AuditLogAction) (string, error) {
	auditLog, err := r.fetcher.GuildAuditLog(guildID, "", "", int(action), r.limit, discordgo.WithContext(ctx))
	if err != nil {
		r.logger.Warn("audit log fetch failed",
			zap.String("guild", guildID),
			zap.Int("action", int(action)),
			zap.Error(err),
		)
		return "", fmt.Errorf("fetch audit log: %w", err)
	}

	entry := SelectEntry(auditLog.AuditLogEntries, targetID, action)
	if entry == nil || entry.UserID == "" {
		r.logger.Debug("no audit log entry",
			zap.String("guild", guildID),
			zap.String("target", targetID),
			zap.Int("action", int(action)),
		)
		return "", ErrUnattributed
	}

	if targetID != "" && entry.TargetID != targetID {
		r.logger.Debug("attributed by recency, target mismatch",
			zap.String("target", targetID),
			zap.String("entry_target", entry.TargetID),
			zap.String("actor", entry.UserID),
		)
	}
	return entry.UserID, nil
}

// SelectEntry picks the entry for targetID from entries (newest first). It falls back to
// the newest entry of the right action when no target matches.
func SelectEntry(entries []*discordgo.AuditLogEntry, targetID string, action discordgo.AuditLogAction) *discordgo.AuditLogEntry {
	var newest *discordgo.AuditLogEntry
	for _, entry := range entries {
		if entry == nil || entry.ActionType == nil || *entry.ActionType != action {
			continue
		}
		if targetID != "" && entry.TargetID == targetID {
			return entry
		}
		if newest == nil {
			newest = entry
		}
	}
	return newest
}

func cacheKey(guildID string, action discordgo.AuditLogAction, targetID string) string {
	return "attr:" + guildID + ":" + strconv.Itoa(int(action)) + ":" + targetID
}
