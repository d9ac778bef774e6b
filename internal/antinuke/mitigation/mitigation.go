package mitigation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"discord-antinuke-bot/internal/metrics"
	"discord-antinuke-bot/internal/models"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var (
	// ErrInsufficientPermission means the platform refused the ban. Not retried.
	ErrInsufficientPermission = errors.New("insufficient permission to ban")
	// ErrDestinationUnavailable means the ban stood but the log message could not be delivered
	ErrDestinationUnavailable = errors.New("log destination unavailable")
)

// Platform is the subset of *discordgo.Session used to mitigate
type Platform interface {
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Action bans violators and reports the ban to the log channel
type Action struct {
	platform Platform
	logger   *zap.Logger
}

// NewAction creates a mitigation action
func NewAction(platform Platform, logger *zap.Logger) *Action {
	return &Action{
		platform: platform,
		logger:   logger.Named("mitigation"),
	}
}

// Apply bans report.Actor from guildID and then logs to logChannelID.
// A logging failure never undoes the ban; it is returned as ErrDestinationUnavailable.
func (a *Action) Apply(ctx context.Context, report *models.ViolationReport, guildID, logChannelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reason := report.Reason()
	start := time.Now()

	err := a.platform.GuildBanCreateWithReason(guildID, report.Actor.String(), reason, 0, discordgo.WithContext(ctx))
	if err != nil {
		if isForbidden(err) {
			metrics.Mitigations.WithLabelValues("forbidden").Inc()
			a.logger.Error("cannot ban violator: missing permission",
				zap.String("actor", report.Actor.String()),
				zap.String("reason", reason),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %v", ErrInsufficientPermission, err)
		}
		metrics.Mitigations.WithLabelValues("failed").Inc()
		a.logger.Error("ban failed",
			zap.String("actor", report.Actor.String()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return fmt.Errorf("ban %s: %w", report.Actor, err)
	}

	metrics.Mitigations.WithLabelValues("banned").Inc()
	a.logger.Warn("violator banned",
		zap.String("actor", report.Actor.String()),
		zap.String("category", report.Category.String()),
		zap.Int("count", report.Count),
		zap.Duration("window", report.Window),
		zap.Duration("latency", time.Since(start)),
	)

	if logChannelID == "" {
		a.logger.Warn("no log channel configured, ban not reported")
		return fmt.Errorf("%w: no log channel configured", ErrDestinationUnavailable)
	}

	if _, err := a.platform.ChannelMessageSendEmbed(logChannelID, BanEmbed(report), discordgo.WithContext(ctx)); err != nil {
		a.logger.Error("failed to send ban log",
			zap.String("channel", logChannelID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: channel %s: %v", ErrDestinationUnavailable, logChannelID, err)
	}
	return nil
}

// BanEmbed builds the log-channel message for a ban
func BanEmbed(report *models.ViolationReport) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🛡️ AntiNuke: violator banned",
		Description: fmt.Sprintf("User %s (%s) banned for: %s", report.Actor.Mention(), report.Actor, report.Reason()),
		Color:       0xFF0000,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Action", Value: report.Category.DisplayName(), Inline: true},
			{Name: "Count", Value: fmt.Sprintf("%d / %d", report.Count, report.Threshold), Inline: true},
			{Name: "Window", Value: models.FormatWindow(report.Window), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func isForbidden(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
		return true
	}
	return restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeMissingPermissions
}
