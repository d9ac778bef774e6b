package auditor

import (
	"errors"

	"discord-antinuke-bot/internal/models"

	"github.com/bwmarrin/discordgo"
	"github.com/tidwall/gjson"
)

// EventAuditLogEntryCreate is the gateway event type carrying new audit-log entries
const EventAuditLogEntryCreate = "GUILD_AUDIT_LOG_ENTRY_CREATE"

var (
	errBadFrame      = errors.New("invalid audit log frame")
	errUntrackedType = errors.New("untracked audit log action")
)

// StreamEntry is a tracked audit-log entry delivered by the gateway. The actor comes
// from the payload itself, so no lookup race applies.
type StreamEntry struct {
	GuildID  string
	Actor    models.ActorID
	TargetID string
	Category models.EventCategory
}

// ParseEntryFrame extracts a StreamEntry from the raw GUILD_AUDIT_LOG_ENTRY_CREATE payload.
// Entries for actions that are not tracked return an error.
func ParseEntryFrame(raw []byte) (StreamEntry, error) {
	if !gjson.ValidBytes(raw) {
		return StreamEntry{}, errBadFrame
	}

	fields := gjson.GetManyBytes(raw, "guild_id", "user_id", "target_id", "action_type")
	guildID, userID, targetID, actionType := fields[0], fields[1], fields[2], fields[3]

	if !actionType.Exists() {
		return StreamEntry{}, errBadFrame
	}
	category, ok := CategoryFor(discordgo.AuditLogAction(actionType.Int()))
	if !ok {
		return StreamEntry{}, errUntrackedType
	}

	if guildID.String() == "" || userID.String() == "" {
		return StreamEntry{}, errBadFrame
	}
	actor, err := models.ParseActorID(userID.String())
	if err != nil {
		return StreamEntry{}, errBadFrame
	}

	return StreamEntry{
		GuildID:  guildID.String(),
		Actor:    actor,
		TargetID: targetID.String(),
		Category: category,
	}, nil
}

// IsUntracked reports whether err came from a frame for an action that is not tracked
func IsUntracked(err error) bool {
	return errors.Is(err, errUntrackedType)
}
