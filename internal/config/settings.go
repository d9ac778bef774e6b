package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"discord-antinuke-bot/internal/models"

	"github.com/go-playground/validator/v10"
)

// Built-in defaults used when the settings file is missing or malformed
const (
	DefaultBanThreshold      = 3
	DefaultDeletionThreshold = 3
	DefaultTimeWindow        = 60

	// MaxTimeWindow caps time_window at one year so Window never overflows
	MaxTimeWindow = 365 * 24 * 60 * 60
)

// Settings is the persisted anti-nuke configuration
type Settings struct {
	BanThreshold      int              `json:"threshold_bans" validate:"gt=0"`
	DeletionThreshold int              `json:"threshold_deletions" validate:"gt=0"`
	TimeWindow        int              `json:"time_window" validate:"gt=0,lte=31536000"`
	LogChannelID      uint64           `json:"log_channel_id"`
	Whitelist         []models.ActorID `json:"whitelist"`
}

// DefaultSettings returns the built-in defaults
func DefaultSettings() Settings {
	return Settings{
		BanThreshold:      DefaultBanThreshold,
		DeletionThreshold: DefaultDeletionThreshold,
		TimeWindow:        DefaultTimeWindow,
		Whitelist:         []models.ActorID{},
	}
}

// Window returns the sliding window length
func (s Settings) Window() time.Duration {
	return time.Duration(s.TimeWindow) * time.Second
}

// ThresholdFor returns the threshold that applies to a category
func (s Settings) ThresholdFor(category models.EventCategory) int {
	if category.Bucket() == models.BucketBan {
		return s.BanThreshold
	}
	return s.DeletionThreshold
}

// IsWhitelisted reports whether the actor is exempt from tracking
func (s Settings) IsWhitelisted(actor models.ActorID) bool {
	return slices.Contains(s.Whitelist, actor)
}

// LogChannel returns the log channel as a snowflake string, or "" when unset
func (s Settings) LogChannel() string {
	if s.LogChannelID == 0 {
		return ""
	}
	return strconv.FormatUint(s.LogChannelID, 10)
}

// Clone returns a deep copy
func (s Settings) Clone() Settings {
	s.Whitelist = slices.Clone(s.Whitelist)
	if s.Whitelist == nil {
		s.Whitelist = []models.ActorID{}
	}
	return s
}

// normalize sorts and dedupes the whitelist so persisted files are stable
func (s Settings) normalize() Settings {
	s = s.Clone()
	slices.Sort(s.Whitelist)
	s.Whitelist = slices.Compact(s.Whitelist)
	return s
}

// ErrValidation is wrapped by every ValidationError
var ErrValidation = errors.New("invalid settings")

// ValidationError describes malformed admin input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks that thresholds are positive and the window is in range
func Validate(s Settings) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		msg := "must be greater than 0"
		if fe.Tag() == "lte" {
			msg = fmt.Sprintf("must be at most %s", fe.Param())
		}
		return &ValidationError{Field: fe.Field(), Message: msg}
	}
	return &ValidationError{Message: err.Error()}
}

// Proposal is a raw settings submission, one string per form field
type Proposal struct {
	BanThreshold      string
	DeletionThreshold string
	TimeWindow        string
	LogChannel        string
	WhitelistDiff     string
}

// ParseProposal converts a submission into new settings derived from current.
// It does not check that the log channel exists.
func ParseProposal(p Proposal, current Settings) (Settings, error) {
	next := current.Clone()

	var err error
	if next.BanThreshold, err = parseInt("threshold_bans", p.BanThreshold); err != nil {
		return current, err
	}
	if next.DeletionThreshold, err = parseInt("threshold_deletions", p.DeletionThreshold); err != nil {
		return current, err
	}
	if next.TimeWindow, err = parseInt("time_window", p.TimeWindow); err != nil {
		return current, err
	}
	if err := Validate(next); err != nil {
		return current, err
	}

	channelID, err := strconv.ParseUint(strings.TrimSpace(p.LogChannel), 10, 64)
	if err != nil {
		return current, &ValidationError{Field: "log_channel_id", Message: "must be a channel ID"}
	}
	next.LogChannelID = channelID

	diff, err := ParseWhitelistDiff(p.WhitelistDiff)
	if err != nil {
		return current, err
	}
	next.Whitelist = diff.Apply(next.Whitelist)

	return next.normalize(), nil
}

func parseInt(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ValidationError{Field: field, Message: "must be a number"}
	}
	return n, nil
}

// WhitelistDiff is an additive/subtractive change to the whitelist
type WhitelistDiff struct {
	Add    []models.ActorID
	Remove []models.ActorID
}

// ParseWhitelistDiff parses "+id,-id,..." into a diff. Items without a sign are ignored.
func ParseWhitelistDiff(raw string) (WhitelistDiff, error) {
	var diff WhitelistDiff
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		sign := item[0]
		if sign != '+' && sign != '-' {
			continue
		}

		id, err := strconv.ParseUint(strings.TrimSpace(item[1:]), 10, 64)
		if err != nil {
			return WhitelistDiff{}, &ValidationError{
				Field:   "whitelist",
				Message: fmt.Sprintf("%q is not a user ID; use +ID to add and -ID to remove", item),
			}
		}

		if sign == '+' {
			diff.Add = append(diff.Add, models.ActorID(id))
		} else {
			diff.Remove = append(diff.Remove, models.ActorID(id))
		}
	}
	return diff, nil
}

// Apply returns list with additions applied first, then removals
func (d WhitelistDiff) Apply(list []models.ActorID) []models.ActorID {
	out := slices.Clone(list)
	for _, id := range d.Add {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return slices.DeleteFunc(out, func(id models.ActorID) bool {
		return slices.Contains(d.Remove, id)
	})
}

// Empty reports whether the diff changes nothing
func (d WhitelistDiff) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}
