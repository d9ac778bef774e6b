package mitigation

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"discord-antinuke-bot/internal/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePlatform struct {
	banErr  error
	sendErr error

	bans  []string
	sends []*discordgo.MessageEmbed

	banGuild, banReason, sendChannel string
}

func (f *fakePlatform) GuildBanCreateWithReason(guildID, userID, reason string, _ int, _ ...discordgo.RequestOption) error {
	if f.banErr != nil {
		return f.banErr
	}
	f.banGuild = guildID
	f.banReason = reason
	f.bans = append(f.bans, userID)
	return nil
}

func (f *fakePlatform) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sendChannel = channelID
	f.sends = append(f.sends, embed)
	return &discordgo.Message{}, nil
}

func report() *models.ViolationReport {
	return &models.ViolationReport{
		Actor:     123,
		Category:  models.CategoryBan,
		Count:     3,
		Threshold: 3,
		Window:    60 * time.Second,
	}
}

func TestApply_BansAndLogs(t *testing.T) {
	platform := &fakePlatform{}
	action := NewAction(platform, zaptest.NewLogger(t))

	err := action.Apply(context.Background(), report(), "guild", "logs")
	require.NoError(t, err)

	assert.Equal(t, []string{"123"}, platform.bans)
	assert.Equal(t, "guild", platform.banGuild)
	assert.Equal(t, "Mass ban (3 bans in 60 seconds)", platform.banReason)

	require.Len(t, platform.sends, 1)
	assert.Equal(t, "logs", platform.sendChannel)
	assert.Contains(t, platform.sends[0].Description, "<@123>")
	assert.Contains(t, platform.sends[0].Description, "(123)")
	assert.Contains(t, platform.sends[0].Description, platform.banReason)
}

func TestApply_Forbidden(t *testing.T) {
	platform := &fakePlatform{banErr: &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
	}}
	action := NewAction(platform, zaptest.NewLogger(t))

	err := action.Apply(context.Background(), report(), "guild", "logs")
	assert.ErrorIs(t, err, ErrInsufficientPermission)
	assert.Empty(t, platform.sends, "nothing is logged when the ban failed")
}

func TestApply_MissingPermissionCode(t *testing.T) {
	platform := &fakePlatform{banErr: &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusBadRequest},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions},
	}}
	action := NewAction(platform, zaptest.NewLogger(t))

	err := action.Apply(context.Background(), report(), "guild", "logs")
	assert.ErrorIs(t, err, ErrInsufficientPermission)
}

func TestApply_OtherBanFailure(t *testing.T) {
	boom := errors.New("network down")
	action := NewAction(&fakePlatform{banErr: boom}, zaptest.NewLogger(t))

	err := action.Apply(context.Background(), report(), "guild", "logs")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInsufficientPermission)
}

func TestApply_DestinationUnavailableKeepsBan(t *testing.T) {
	platform := &fakePlatform{sendErr: errors.New("unknown channel")}
	action := NewAction(platform, zaptest.NewLogger(t))

	err := action.Apply(context.Background(), report(), "guild", "gone")
	assert.ErrorIs(t, err, ErrDestinationUnavailable)
	assert.Equal(t, []string{"123"}, platform.bans)
}

func TestApply_NoLogChannel(t *testing.T) {
	platform := &fakePlatform{}
	action := NewAction(platform, zaptest.NewLogger(t))

	err := action.Apply(context.Background(), report(), "guild", "")
	assert.ErrorIs(t, err, ErrDestinationUnavailable)
	assert.Equal(t, []string{"123"}, platform.bans)
	assert.Empty(t, platform.sends)
}
