package framework

import (
	"fmt"

	"discord-antinuke-bot/internal/models"

	"github.com/bwmarrin/discordgo"
)

// Context is what a command handler sees, whichever way the command was invoked
type Context interface {
	GetGuildID() string
	GetChannelID() string
	GetAuthor() *discordgo.User
	GetArgs() []string
	// IsAdmin reports whether the invoker holds Administrator in the guild
	IsAdmin() bool
	// ResolveUser turns a mention or raw ID into an existing user
	ResolveUser(arg string) (*discordgo.User, error)
	Reply(content string) error
	ReplyEphemeral(content string) error
	ReplyEmbed(embed *discordgo.MessageEmbed) error
}

func resolveUser(s *discordgo.Session, arg string) (*discordgo.User, error) {
	id, err := models.ParseActorID(arg)
	if err != nil {
		return nil, err
	}
	user, err := s.User(id.String())
	if err != nil {
		return nil, fmt.Errorf("user %s not found: %w", id, err)
	}
	return user, nil
}

// InteractionResponder answers an interaction
type InteractionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// SlashContext implements Context for Slash Commands
type SlashContext struct {
	Responder   InteractionResponder
	Interaction *discordgo.InteractionCreate
	Args        []string
}

func NewSlashContext(r InteractionResponder, i *discordgo.InteractionCreate, args []string) *SlashContext {
	return &SlashContext{Responder: r, Interaction: i, Args: args}
}

func (c *SlashContext) GetGuildID() string {
	return c.Interaction.GuildID
}

func (c *SlashContext) GetChannelID() string {
	return c.Interaction.ChannelID
}

func (c *SlashContext) GetAuthor() *discordgo.User {
	if c.Interaction.Member != nil {
		return c.Interaction.Member.User
	}
	return c.Interaction.User
}

func (c *SlashContext) GetArgs() []string {
	return c.Args
}

// IsAdmin uses the permissions Discord resolved into the interaction payload
func (c *SlashContext) IsAdmin() bool {
	m := c.Interaction.Member
	return m != nil && m.Permissions&discordgo.PermissionAdministrator != 0
}

// ResolveUser looks the user up in the resolved data Discord sends with user options
func (c *SlashContext) ResolveUser(arg string) (*discordgo.User, error) {
	id, err := models.ParseActorID(arg)
	if err != nil {
		return nil, err
	}
	if c.Interaction.Type == discordgo.InteractionApplicationCommand {
		if res := c.Interaction.ApplicationCommandData().Resolved; res != nil {
			if u, ok := res.Users[id.String()]; ok {
				return u, nil
			}
		}
	}
	return nil, fmt.Errorf("user %s not found", id)
}

func (c *SlashContext) respond(data *discordgo.InteractionResponseData) error {
	return c.Responder.InteractionRespond(c.Interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (c *SlashContext) Reply(content string) error {
	return c.respond(&discordgo.InteractionResponseData{Content: content})
}

func (c *SlashContext) ReplyEphemeral(content string) error {
	return c.respond(&discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

func (c *SlashContext) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	return c.respond(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
}

// PrefixContext implements Context for Prefix Commands
type PrefixContext struct {
	Session *discordgo.Session
	Message *discordgo.MessageCreate
	Args    []string
}

func NewPrefixContext(s *discordgo.Session, m *discordgo.MessageCreate, args []string) *PrefixContext {
	return &PrefixContext{Session: s, Message: m, Args: args}
}

func (c *PrefixContext) GetGuildID() string {
	return c.Message.GuildID
}

func (c *PrefixContext) GetChannelID() string {
	return c.Message.ChannelID
}

func (c *PrefixContext) GetAuthor() *discordgo.User {
	return c.Message.Author
}

func (c *PrefixContext) GetArgs() []string {
	return c.Args
}

// IsAdmin computes channel permissions from cached state, falling back to REST
func (c *PrefixContext) IsAdmin() bool {
	if c.Message.Author == nil {
		return false
	}
	perms, err := c.Session.State.UserChannelPermissions(c.Message.Author.ID, c.Message.ChannelID)
	if err != nil {
		perms, err = c.Session.UserChannelPermissions(c.Message.Author.ID, c.Message.ChannelID)
		if err != nil {
			return false
		}
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (c *PrefixContext) ResolveUser(arg string) (*discordgo.User, error) {
	for _, u := range c.Message.Mentions {
		if arg == "<@"+u.ID+">" || arg == "<@!"+u.ID+">" {
			return u, nil
		}
	}
	return resolveUser(c.Session, arg)
}

func (c *PrefixContext) Reply(content string) error {
	_, err := c.Session.ChannelMessageSend(c.Message.ChannelID, content)
	return err
}

// ReplyEphemeral replies normally; plain messages cannot be ephemeral
func (c *PrefixContext) ReplyEphemeral(content string) error {
	return c.Reply(content)
}

func (c *PrefixContext) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	_, err := c.Session.ChannelMessageSendEmbed(c.Message.ChannelID, embed)
	return err
}
