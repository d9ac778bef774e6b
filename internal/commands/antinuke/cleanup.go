package antinuke

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	service "discord-antinuke-bot/internal/antinuke"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// CommandRegistry lists, removes and creates guild application commands
type CommandRegistry interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
	ApplicationCommandCreate(appID string, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
}

// ErrUnknownCommand is returned when cleanup is asked about a command this bot does not define
var ErrUnknownCommand = errors.New("not a command of this bot")

// CommandCheck is the health verdict for one registered copy
type CommandCheck struct {
	ID          string
	Description string
	Healthy     bool
	Problem     string
}

// CleanupReport describes what a reconciliation found and did
type CleanupReport struct {
	Name      string
	Checks    []CommandCheck
	Kept      string
	Deleted   []string
	Failed    map[string]error
	Recreated string
}

// CheckCommand compares a registered command with its canonical definition.
// An empty problem string means the copy is healthy.
func CheckCommand(cmd, canonical *discordgo.ApplicationCommand, appID string) string {
	if cmd.ApplicationID != "" && appID != "" && cmd.ApplicationID != appID {
		return "registered by another application"
	}
	if cmd.Type != 0 && cmd.Type != discordgo.ChatApplicationCommand {
		return "not a slash command"
	}
	if cmd.Description != canonical.Description {
		return "description differs from definition"
	}
	if len(cmd.Options) != len(canonical.Options) {
		return "options differ from definition"
	}
	for i, opt := range canonical.Options {
		got := cmd.Options[i]
		if got == nil || got.Name != opt.Name || got.Type != opt.Type || got.Required != opt.Required {
			return fmt.Sprintf("option %q differs from definition", opt.Name)
		}
	}
	return ""
}

// Reconcile lists guild commands called name, keeps the first healthy copy, deletes
// broken copies and duplicates, and creates the canonical command when no healthy copy
// is left.
func Reconcile(ctx context.Context, reg CommandRegistry, appID, guildID, name string) (CleanupReport, error) {
	report := CleanupReport{Name: name, Failed: make(map[string]error)}

	canonical := Canonical(name)
	if canonical == nil {
		return report, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	registered, err := reg.ApplicationCommands(appID, guildID, discordgo.WithContext(ctx))
	if err != nil {
		return report, fmt.Errorf("list commands: %w", err)
	}

	for _, cmd := range registered {
		if cmd.Name != name {
			continue
		}
		check := CommandCheck{ID: cmd.ID, Description: cmd.Description}
		check.Problem = CheckCommand(cmd, canonical, appID)
		check.Healthy = check.Problem == ""

		if check.Healthy && report.Kept == "" {
			report.Kept = cmd.ID
		} else {
			if check.Healthy {
				check.Problem = "duplicate"
			}
			if err := reg.ApplicationCommandDelete(appID, guildID, cmd.ID, discordgo.WithContext(ctx)); err != nil {
				report.Failed[cmd.ID] = err
			} else {
				report.Deleted = append(report.Deleted, cmd.ID)
			}
		}
		report.Checks = append(report.Checks, check)
	}

	if report.Kept == "" {
		created, err := reg.ApplicationCommandCreate(appID, guildID, canonical, discordgo.WithContext(ctx))
		if err != nil {
			return report, fmt.Errorf("%w: recreate %s: %v", service.ErrCommandRegistration, name, err)
		}
		report.Recreated = created.ID
	}
	return report, nil
}

// String renders the report for the admin
func (r CleanupReport) String() string {
	var b strings.Builder

	if len(r.Checks) == 0 {
		fmt.Fprintf(&b, "No commands named `%s` were registered.\n", r.Name)
	} else {
		fmt.Fprintf(&b, "Found %d command(s) named `%s`:\n", len(r.Checks), r.Name)
		for _, c := range r.Checks {
			status := "✓ healthy"
			if c.Problem != "" {
				status = "✗ " + c.Problem
			}
			fmt.Fprintf(&b, "- `%s` %s\n", c.ID, status)
		}
	}

	for _, id := range r.Deleted {
		fmt.Fprintf(&b, "Deleted `%s`\n", id)
	}
	for id, err := range r.Failed {
		fmt.Fprintf(&b, "Could not delete `%s`: %v\n", id, err)
	}

	switch {
	case r.Recreated != "":
		fmt.Fprintf(&b, "Re-registered `/%s` as `%s`.\n", r.Name, r.Recreated)
	case len(r.Deleted) == 0 && len(r.Failed) == 0:
		b.WriteString("All commands are healthy, nothing removed.\n")
	default:
		fmt.Fprintf(&b, "Kept `%s`.\n", r.Kept)
	}

	return truncateLines(b.String(), reportLimit)
}

// reportLimit keeps the report under Discord's 2000 character message cap
const reportLimit = 1900

// truncateLines drops whole trailing lines until s fits in limit bytes
func truncateLines(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := strings.LastIndexByte(s[:limit], '\n')
	if cut < 0 {
		// a single oversized line, back off to a rune boundary
		cut = limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
	}
	return s[:cut] + "\n..."
}

// CleanupCommands handles /cleanup_commands
func (h *Handler) CleanupCommands(ctx context.Context, p Platform, i *discordgo.InteractionCreate) {
	name := NukeConfigName
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "command_name" {
			if v := strings.TrimSpace(opt.StringValue()); v != "" {
				name = v
			}
		}
	}

	err := p.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		h.logger.Error("failed to defer cleanup response", zap.Error(err))
		return
	}

	report, err := Reconcile(ctx, p, i.AppID, i.GuildID, name)
	content := report.String()
	if err != nil {
		h.logger.Error("command cleanup failed", zap.String("command", name), zap.Error(err))
		content = fmt.Sprintf("Cleanup of `%s` failed: %v", name, err)
	} else {
		h.logger.Info("command cleanup",
			zap.String("command", name),
			zap.Int("found", len(report.Checks)),
			zap.Int("deleted", len(report.Deleted)),
			zap.Bool("recreated", report.Recreated != ""),
		)
	}

	_, err = p.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		h.logger.Error("failed to send cleanup report", zap.Error(err))
	}
}
