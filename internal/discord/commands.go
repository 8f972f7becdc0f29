package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"wosbot/pkg/logx"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	minDays := 1.0
	return []*discordgo.ApplicationCommand{
		{
			Name:        "register",
			Description: "Link your Whiteout Survival player ID to your Discord account",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "fid",
					Description: "Your in-game player ID",
					Required:    true,
				},
			},
		},
		{
			Name:        "userinfo",
			Description: "Show the registered player profile for a member",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Member to look up (defaults to you)",
				},
			},
		},
		{
			Name:        "codes",
			Description: "List the gift codes currently active",
		},
		{
			Name:        "setalert",
			Description: "Choose the channel for gift-code announcements",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Announcement channel",
					Required:    true,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildText,
					},
				},
			},
		},
		{
			Name:        "remindonce",
			Description: "Schedule a one-time reminder in this channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "time",
					Description: "When to fire: HH:MM or YYYY-MM-DD HH:MM (UTC)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "Reminder text",
					Required:    true,
				},
			},
		},
		{
			Name:        "remindrepeat",
			Description: "Schedule a recurring reminder in this channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "time",
					Description: "First firing: HH:MM or YYYY-MM-DD HH:MM (UTC)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "Reminder text",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "days",
					Description: "Days between firings (default 2)",
					MinValue:    &minDays,
				},
			},
		},
		{
			Name:        "reminders",
			Description: "List pending reminders",
		},
		{
			Name:        "cancelreminder",
			Description: "Cancel a reminder by ID",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "id",
					Description: "Reminder ID from /reminders",
					Required:    true,
				},
			},
		},
		{
			Name:        "addadmin",
			Description: "Grant a member bot admin rights (owner only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Member to promote",
					Required:    true,
				},
			},
		},
		{
			Name:        "removeadmin",
			Description: "Revoke a member's bot admin rights (owner only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Member to demote",
					Required:    true,
				},
			},
		},
		{
			Name:        "listadmins",
			Description: "List bot admins (owner only)",
		},
		{
			Name:        "ping",
			Description: "Show gateway latency",
		},
		{
			Name:        "shutdown",
			Description: "Stop the bot (owner only)",
		},
	}
}

// registerCommands overwrites the command set in one call. With a guild ID
// configured the commands are guild-scoped, which Discord applies instantly;
// global commands can take up to an hour to propagate.
func (a *Adapter) registerCommands(ctx context.Context) error {
	appID := a.session.State.User.ID
	defs := commandDefinitions()
	created, err := a.session.ApplicationCommandBulkOverwrite(appID, a.guildID, defs, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: register commands: %w", err)
	}
	scope := "global"
	if a.guildID != "" {
		scope = "guild " + a.guildID
	}
	a.log.Info("slash commands registered", logx.Int("count", len(created)), logx.String("scope", scope))
	return nil
}
