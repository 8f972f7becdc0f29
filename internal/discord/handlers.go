package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"wosbot/internal/gate"
	"wosbot/internal/registry"
	"wosbot/internal/reminder"
	"wosbot/internal/wos"
	"wosbot/pkg/logx"
)

const interactionTimeout = 30 * time.Second

func (a *Adapter) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	data := i.ApplicationCommandData()
	log := a.log.With(
		logx.String("command", data.Name),
		logx.String("user_id", interactionUserID(i)))
	log.Debug("command received")

	switch data.Name {
	case "register":
		a.handleRegister(ctx, s, i)
	case "userinfo":
		a.handleUserInfo(s, i)
	case "codes":
		a.handleCodes(ctx, s, i)
	case "setalert":
		a.handleSetAlert(s, i)
	case "remindonce":
		a.handleRemindOnce(s, i)
	case "remindrepeat":
		a.handleRemindRepeat(s, i)
	case "reminders":
		a.handleReminderList(s, i)
	case "cancelreminder":
		a.handleCancelReminder(s, i)
	case "addadmin":
		a.handleAddAdmin(s, i)
	case "removeadmin":
		a.handleRemoveAdmin(s, i)
	case "listadmins":
		a.handleListAdmins(s, i)
	case "ping":
		a.handlePing(s, i)
	case "shutdown":
		a.handleShutdown(s, i)
	default:
		log.Warn("unknown command")
	}
}

func (a *Adapter) handleRegister(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	fid := strings.TrimSpace(optionString(i, "fid"))
	if fid == "" {
		respondEphemeral(s, i.Interaction, "Please provide your player ID.")
		return
	}
	// The player API can take a few seconds; defer so the token doesn't
	// expire while we wait.
	deferEphemeral(s, i.Interaction)

	profile, err := a.deps.Registry.Register(ctx, interactionUserID(i), fid)
	if err != nil {
		if errors.Is(err, wos.ErrLookupFailed) {
			followupEphemeral(s, i.Interaction, fmt.Sprintf("❌ No player found for ID `%s`. Double-check and try again.", fid))
			return
		}
		a.log.Warn("register failed", logx.String("fid", fid), logx.Err(err))
		followupEphemeral(s, i.Interaction, "❌ Registration failed, please try again later.")
		return
	}
	_, _ = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{profileEmbed(profile)},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
}

func (a *Adapter) handleUserInfo(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := interactionUserID(i)
	if u := optionUser(s, i, "member"); u != nil {
		target = u.ID
	}
	profile, err := a.deps.Registry.Lookup(target)
	if err != nil {
		respondEphemeral(s, i.Interaction, fmt.Sprintf("<@%s> has no registered player ID. Use /register first.", target))
		return
	}
	respondEmbed(s, i.Interaction, profileEmbed(profile))
}

func (a *Adapter) handleCodes(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	deferEphemeral(s, i.Interaction)
	codes := a.deps.Codes.ActiveCodes(ctx)
	if len(codes) == 0 {
		followupEphemeral(s, i.Interaction, "No active gift codes found right now.")
		return
	}
	var b strings.Builder
	b.WriteString("🎁 Active gift codes:\n")
	for _, c := range codes {
		fmt.Fprintf(&b, "• `%s`\n", c)
	}
	followupEphemeral(s, i.Interaction, b.String())
}

func (a *Adapter) handleSetAlert(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !a.requirePrivileged(s, i) {
		return
	}
	ch := optionChannel(s, i, "channel")
	if ch == nil {
		respondEphemeral(s, i.Interaction, "Please pick a text channel.")
		return
	}
	a.deps.Settings.SetAlertChannelID(ch.ID)
	respondEphemeral(s, i.Interaction, fmt.Sprintf("✅ Gift-code alerts will be posted in <#%s>.", ch.ID))
}

func (a *Adapter) handleRemindOnce(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !a.requirePrivileged(s, i) {
		return
	}
	fireAt, err := reminder.ParseTime(optionString(i, "time"), time.Now())
	if err != nil {
		respondEphemeral(s, i.Interaction, "❌ "+err.Error())
		return
	}
	id := a.deps.Reminders.Add(i.ChannelID, optionString(i, "message"), fireAt)
	respondEphemeral(s, i.Interaction, fmt.Sprintf("⏰ Reminder `%s` set for %s.", id, fireAt.Format("2006-01-02 15:04 MST")))
}

func (a *Adapter) handleRemindRepeat(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !a.requirePrivileged(s, i) {
		return
	}
	fireAt, err := reminder.ParseTime(optionString(i, "time"), time.Now())
	if err != nil {
		respondEphemeral(s, i.Interaction, "❌ "+err.Error())
		return
	}
	days := int(optionInt(i, "days"))
	if days == 0 {
		days = 2
	}
	id := a.deps.Reminders.AddRepeat(i.ChannelID, optionString(i, "message"), fireAt, days)
	respondEphemeral(s, i.Interaction, fmt.Sprintf("🔁 Reminder `%s` set for %s, repeating every %d day(s).",
		id, fireAt.Format("2006-01-02 15:04 MST"), days))
}

func (a *Adapter) handleReminderList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !a.requirePrivileged(s, i) {
		return
	}
	pending := a.deps.Reminders.List()
	if len(pending) == 0 {
		respondEphemeral(s, i.Interaction, "No pending reminders.")
		return
	}
	var b strings.Builder
	b.WriteString("⏰ Pending reminders:\n")
	for _, r := range pending {
		fmt.Fprintf(&b, "• `%s` — %s in <#%s>", r.ID, r.FireAt.Format("2006-01-02 15:04 MST"), r.ChannelID)
		if r.EveryDays > 0 {
			fmt.Fprintf(&b, " (every %d day(s))", r.EveryDays)
		}
		fmt.Fprintf(&b, ": %s\n", r.Message)
	}
	respondEphemeral(s, i.Interaction, b.String())
}

func (a *Adapter) handleCancelReminder(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !a.requirePrivileged(s, i) {
		return
	}
	id := strings.TrimSpace(optionString(i, "id"))
	if a.deps.Reminders.Cancel(id) {
		respondEphemeral(s, i.Interaction, fmt.Sprintf("🗑️ Reminder `%s` cancelled.", id))
		return
	}
	respondEphemeral(s, i.Interaction, fmt.Sprintf("No reminder with ID `%s`.", id))
}

func (a *Adapter) handleAddAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionUser(s, i, "member")
	if target == nil {
		respondEphemeral(s, i.Interaction, "Please pick a member.")
		return
	}
	if err := a.deps.Gate.Grant(interactionUserID(i), target.ID); err != nil {
		a.respondGateError(s, i, err)
		return
	}
	respondEphemeral(s, i.Interaction, fmt.Sprintf("✅ <@%s> is now a bot admin.", target.ID))
}

func (a *Adapter) handleRemoveAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionUser(s, i, "member")
	if target == nil {
		respondEphemeral(s, i.Interaction, "Please pick a member.")
		return
	}
	removed, err := a.deps.Gate.Revoke(interactionUserID(i), target.ID)
	if err != nil {
		a.respondGateError(s, i, err)
		return
	}
	if !removed {
		respondEphemeral(s, i.Interaction, fmt.Sprintf("<@%s> was not an admin.", target.ID))
		return
	}
	respondEphemeral(s, i.Interaction, fmt.Sprintf("✅ <@%s> is no longer a bot admin.", target.ID))
}

func (a *Adapter) handleListAdmins(s *discordgo.Session, i *discordgo.InteractionCreate) {
	admins, err := a.deps.Gate.Admins(interactionUserID(i))
	if err != nil {
		a.respondGateError(s, i, err)
		return
	}
	if len(admins) == 0 {
		respondEphemeral(s, i.Interaction, "No bot admins configured.")
		return
	}
	mentions := make([]string, 0, len(admins))
	for _, id := range admins {
		mentions = append(mentions, "<@"+id+">")
	}
	respondEphemeral(s, i.Interaction, "👑 Bot admins: "+strings.Join(mentions, ", "))
}

func (a *Adapter) handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	latency := s.HeartbeatLatency().Round(time.Millisecond)
	uptime := time.Since(a.startedAt).Round(time.Second)
	respondEmbed(s, i.Interaction, &discordgo.MessageEmbed{
		Title: "🏓 Pong",
		Color: 0x5865f2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Gateway latency", Value: latency.String(), Inline: true},
			{Name: "Uptime", Value: uptime.String(), Inline: true},
		},
	})
}

func (a *Adapter) handleShutdown(s *discordgo.Session, i *discordgo.InteractionCreate) {
	actor := interactionUserID(i)
	if !a.deps.Gate.IsOwner(actor) {
		a.respondGateError(s, i, gate.ErrNotOwner)
		return
	}
	respondEphemeral(s, i.Interaction, "🛑 Shutting down.")
	a.log.Info("shutdown requested", logx.String("user_id", actor))
	go a.deps.Shutdown()
}

// requirePrivileged answers the interaction with a refusal when the caller is
// neither the owner nor an admin. While the owner lookup is still pending
// nobody is privileged, and the refusal says so.
func (a *Adapter) requirePrivileged(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if a.deps.Gate.IsPrivileged(interactionUserID(i)) {
		return true
	}
	if !a.deps.Gate.Resolved() {
		respondEphemeral(s, i.Interaction, "⏳ Still starting up, owner not resolved yet. Try again shortly.")
		return false
	}
	respondEphemeral(s, i.Interaction, "❌ You need bot admin rights for that.")
	return false
}

func (a *Adapter) respondGateError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if errors.Is(err, gate.ErrNotOwner) {
		respondEphemeral(s, i.Interaction, "❌ Only the bot owner can do that.")
		return
	}
	a.log.Warn("command failed", logx.Err(err))
	respondEphemeral(s, i.Interaction, "❌ Something went wrong, please try again.")
}

func profileEmbed(p registry.Profile) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: p.Nickname,
		Color: 0x3498db,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Player ID", Value: p.GameID, Inline: true},
			{Name: "State", Value: strconv.Itoa(p.StateID), Inline: true},
			{Name: "Furnace", Value: strconv.Itoa(p.FurnaceLevel), Inline: true},
		},
	}
	if p.AvatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: p.AvatarURL}
	}
	if p.FurnaceImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: p.FurnaceImageURL}
	}
	return embed
}

// interactionUserID works for both guild (Member) and DM (User) interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func findOption(i *discordgo.InteractionCreate, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

func optionString(i *discordgo.InteractionCreate, name string) string {
	if opt := findOption(i, name); opt != nil {
		return opt.StringValue()
	}
	return ""
}

func optionInt(i *discordgo.InteractionCreate, name string) int64 {
	if opt := findOption(i, name); opt != nil {
		return opt.IntValue()
	}
	return 0
}

func optionUser(s *discordgo.Session, i *discordgo.InteractionCreate, name string) *discordgo.User {
	if opt := findOption(i, name); opt != nil {
		return opt.UserValue(s)
	}
	return nil
}

func optionChannel(s *discordgo.Session, i *discordgo.InteractionCreate, name string) *discordgo.Channel {
	if opt := findOption(i, name); opt != nil {
		return opt.ChannelValue(s)
	}
	return nil
}

func respondEphemeral(s *discordgo.Session, i *discordgo.Interaction, content string) {
	_ = s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondEmbed(s *discordgo.Session, i *discordgo.Interaction, embed *discordgo.MessageEmbed) {
	_ = s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func deferEphemeral(s *discordgo.Session, i *discordgo.Interaction) {
	_ = s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func followupEphemeral(s *discordgo.Session, i *discordgo.Interaction, content string) {
	_, _ = s.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}
