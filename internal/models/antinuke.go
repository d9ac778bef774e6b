package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActorID is a Discord user snowflake
type ActorID uint64

// ParseActorID parses a raw snowflake or a user mention (<@id> / <@!id>)
func ParseActorID(s string) (ActorID, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimPrefix(strings.TrimSuffix(s[2:], ">"), "!")
	}
	if s == "" {
		return 0, fmt.Errorf("empty user id")
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return ActorID(id), nil
}

func (a ActorID) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Mention formats the actor as a Discord user mention
func (a ActorID) Mention() string {
	return "<@" + a.String() + ">"
}

// EventCategory is the kind of destructive action being tracked
type EventCategory uint8

const (
	CategoryBan EventCategory = iota + 1
	CategoryChannelDeletion
	CategoryRoleDeletion
)

// Bucket is the counter an event category is accounted in.
// Channel and role deletions share BucketStructural.
type Bucket uint8

const (
	BucketBan Bucket = iota + 1
	BucketStructural
)

// Bucket returns the counter bucket for the category
func (c EventCategory) Bucket() Bucket {
	switch c {
	case CategoryBan:
		return BucketBan
	default:
		return BucketStructural
	}
}

func (c EventCategory) String() string {
	switch c {
	case CategoryBan:
		return "ban"
	case CategoryChannelDeletion:
		return "channel_deletion"
	case CategoryRoleDeletion:
		return "role_deletion"
	default:
		return "unknown"
	}
}

// ParseCategory is the inverse of EventCategory.String
func ParseCategory(s string) (EventCategory, error) {
	for _, c := range []EventCategory{CategoryBan, CategoryChannelDeletion, CategoryRoleDeletion} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown event category %q", s)
}

// UnmarshalText lets categories be decoded from config and scenario files
func (c *EventCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DisplayName returns a human-readable name for the category
func (c EventCategory) DisplayName() string {
	switch c {
	case CategoryBan:
		return "Mass ban"
	case CategoryChannelDeletion:
		return "Mass channel deletion"
	case CategoryRoleDeletion:
		return "Mass role deletion"
	default:
		return "Unknown action"
	}
}

// Noun is the plural unit used in reason strings
func (c EventCategory) Noun() string {
	switch c {
	case CategoryBan:
		return "bans"
	case CategoryChannelDeletion:
		return "channel deletions"
	case CategoryRoleDeletion:
		return "role deletions"
	default:
		return "actions"
	}
}

// EventRecord is one attributed destructive action
type EventRecord struct {
	GuildID   string
	Actor     ActorID
	Category  EventCategory
	TargetID  string
	Timestamp time.Time
}

// ViolationReport describes an actor whose rate met the configured threshold
type ViolationReport struct {
	Actor     ActorID
	Category  EventCategory
	Count     int
	Threshold int
	Window    time.Duration
}

// Reason is the audit-log reason attached to the ban
func (r ViolationReport) Reason() string {
	return fmt.Sprintf("%s (%d %s in %s)", r.Category.DisplayName(), r.Count, r.Category.Noun(), FormatWindow(r.Window))
}

// FormatWindow formats a window as whole seconds
func FormatWindow(d time.Duration) string {
	secs := int(d / time.Second)
	if secs == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", secs)
}
