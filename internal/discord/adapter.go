// Package discord is the chat-platform adapter: it owns the gateway session,
// registers the slash commands, and translates interactions into calls on the
// bot's services.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"wosbot/internal/gate"
	"wosbot/internal/registry"
	"wosbot/internal/reminder"
	"wosbot/internal/settings"
	"wosbot/pkg/logx"
)

// Deps are the services the command handlers call into. Shutdown stops the
// whole process; the adapter invokes it from /shutdown only.
type Deps struct {
	Gate      *gate.Gate
	Settings  *settings.Settings
	Registry  *registry.Registry
	Reminders *reminder.Service
	Codes     CodeLister
	Shutdown  func()
}

// CodeLister fetches the currently active gift codes on demand.
type CodeLister interface {
	ActiveCodes(ctx context.Context) []string
}

type Adapter struct {
	session *discordgo.Session
	deps    Deps
	guildID string
	log     logx.Logger

	readyOnce sync.Once
	ready     chan struct{}
	startedAt time.Time
}

func New(token, guildID string, log logx.Logger) (*Adapter, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages
	s.StateEnabled = true

	a := &Adapter{
		session:   s,
		guildID:   guildID,
		log:       log,
		ready:     make(chan struct{}),
		startedAt: time.Now(),
	}
	s.AddHandler(a.onReady)
	s.AddHandler(a.onConnect)
	s.AddHandler(a.onMemberDelete)
	s.AddHandler(a.onInteraction)
	return a, nil
}

// Bind attaches the services the handlers call. The gate and the reminder
// service are constructed with the adapter as their sender, so wiring is two
// phase: New, build services, Bind, then Open.
func (a *Adapter) Bind(deps Deps) { a.deps = deps }

// Open connects to the gateway and registers the slash commands. Command
// registration waits for the first Ready so the application ID is known.
func (a *Adapter) Open(ctx context.Context) error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	select {
	case <-a.ready:
	case <-ctx.Done():
		_ = a.session.Close()
		return ctx.Err()
	}
	if err := a.registerCommands(ctx); err != nil {
		_ = a.session.Close()
		return err
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.session.Close()
}

// Ready is closed once the gateway session has received its first Ready
// event. Schedulers wait on it before their first tick.
func (a *Adapter) Ready() <-chan struct{} { return a.ready }

func (a *Adapter) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	a.log.Info("gateway ready",
		logx.String("user", r.User.String()),
		logx.Int("guilds", len(r.Guilds)))
	a.readyOnce.Do(func() { close(a.ready) })
}

// onConnect fires on every (re)connect, so a failed owner lookup gets a fresh
// attempt as soon as the gateway comes back.
func (a *Adapter) onConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	if a.deps.Gate != nil {
		a.deps.Gate.Rearm()
	}
}

// onMemberDelete drops the registration of anyone who leaves a guild.
func (a *Adapter) onMemberDelete(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.User == nil {
		return
	}
	if a.deps.Registry.Remove(m.User.ID) {
		a.log.Info("removed registration for departed member",
			logx.String("user_id", m.User.ID),
			logx.String("guild_id", m.GuildID))
	}
}

// SendMessage posts plain content to a channel. It satisfies the sender
// interfaces of the watcher, reminder, and log-sink packages.
func (a *Adapter) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := a.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

// ApplicationOwner resolves the bot's owning user via the application object.
// The REST call runs on the session's own client timeout; ctx is accepted for
// interface symmetry with the other lookups.
func (a *Adapter) ApplicationOwner(_ context.Context) (string, error) {
	app, err := a.session.Application("@me")
	if err != nil {
		return "", fmt.Errorf("discord: fetch application: %w", err)
	}
	if app.Owner == nil || app.Owner.ID == "" {
		return "", errors.New("discord: application has no owner")
	}
	return app.Owner.ID, nil
}

// GuildIDs lists the guilds the session currently sees.
func (a *Adapter) GuildIDs() []string {
	guilds := a.session.State.Guilds
	ids := make([]string, 0, len(guilds))
	for _, g := range guilds {
		ids = append(ids, g.ID)
	}
	return ids
}

// Members lists a guild's members, paging through the REST endpoint. The
// state cache is not used here: nickname sync needs the full roster, not
// whatever the gateway happened to deliver.
func (a *Adapter) Members(guildID string) []registry.Member {
	var out []registry.Member
	after := ""
	for {
		page, err := a.session.GuildMembers(guildID, after, 1000)
		if err != nil {
			a.log.Warn("member page fetch failed", logx.String("guild_id", guildID), logx.Err(err))
			return out
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			after = m.User.ID
			if m.User.Bot {
				continue
			}
			out = append(out, registry.Member{
				UserID:      m.User.ID,
				DisplayName: displayName(m),
			})
		}
		if len(page) < 1000 {
			return out
		}
	}
}

// SetNickname renames a member within a guild.
func (a *Adapter) SetNickname(ctx context.Context, guildID, userID, nick string) error {
	return a.session.GuildMemberNickname(guildID, userID, nick, discordgo.WithContext(ctx))
}

// displayName prefers nick > global name > username.
func displayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}
