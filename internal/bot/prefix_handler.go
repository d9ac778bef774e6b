package bot

import (
	"context"
	"strings"

	"discord-antinuke-bot/internal/commands/framework"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ParsePrefixCommand splits "<prefix>command args..." into a lowercase command and
// its arguments. ok is false when content is not a command.
func ParsePrefixCommand(content, prefix string) (command string, args []string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	parts := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(parts) == 0 {
		return "", nil, false
	}
	return strings.ToLower(parts[0]), parts[1:], true
}

// MessageCreate routes prefix commands to the event loop
func (b *Bot) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID != b.cfg.GuildID {
		return
	}

	command, args, ok := ParsePrefixCommand(m.Content, b.cfg.CommandPrefix)
	if !ok {
		return
	}

	err := b.svc.Submit(b.ctx, "prefix:"+command, func(ctx context.Context) {
		b.handler.HandlePrefix(ctx, framework.NewPrefixContext(s, m, args), command)
	})
	if err != nil {
		b.logger.Warn("command dropped", zap.String("command", command), zap.Error(err))
	}
}
