package antinuke

import (
	"github.com/bwmarrin/discordgo"
)

const (
	NukeConfigName      = "nuke_config"
	CleanupCommandsName = "cleanup_commands"
	NukeStatusName      = "nuke_status"

	// Available as prefix and slash commands
	WhitelistName       = "whitelist"
	RemoveWhitelistName = "remove_whitelist"
)

var (
	// Permissions
	adminPerms = int64(discordgo.PermissionAdministrator)

	// /nuke_config
	NukeConfigCmd = &discordgo.ApplicationCommand{
		Name:                     NukeConfigName,
		Description:              "Configure anti-nuke thresholds, log channel and whitelist",
		DefaultMemberPermissions: &adminPerms,
	}

	// /cleanup_commands
	CleanupCommandsCmd = &discordgo.ApplicationCommand{
		Name:        CleanupCommandsName,
		Description: "Check registered copies of a command and remove broken or duplicate ones",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "command_name",
				Description: "Command to check (default: nuke_config)",
				Required:    false,
			},
		},
		DefaultMemberPermissions: &adminPerms,
	}

	// /nuke_status
	NukeStatusCmd = &discordgo.ApplicationCommand{
		Name:                     NukeStatusName,
		Description:              "Show anti-nuke settings and tracker state",
		DefaultMemberPermissions: &adminPerms,
	}

	// /whitelist
	WhitelistCmd = &discordgo.ApplicationCommand{
		Name:                     WhitelistName,
		Description:              "Exempt a user from anti-nuke tracking",
		Options:                  []*discordgo.ApplicationCommandOption{userOption("User to whitelist")},
		DefaultMemberPermissions: &adminPerms,
	}

	// /remove_whitelist
	RemoveWhitelistCmd = &discordgo.ApplicationCommand{
		Name:                     RemoveWhitelistName,
		Description:              "Remove a user from the anti-nuke whitelist",
		Options:                  []*discordgo.ApplicationCommandOption{userOption("User to remove")},
		DefaultMemberPermissions: &adminPerms,
	}
)

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

// Commands is every slash command registered for the guild
var Commands = []*discordgo.ApplicationCommand{
	NukeConfigCmd,
	CleanupCommandsCmd,
	NukeStatusCmd,
	WhitelistCmd,
	RemoveWhitelistCmd,
}

// Canonical returns the definition of a command by name, or nil
func Canonical(name string) *discordgo.ApplicationCommand {
	for _, cmd := range Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}
