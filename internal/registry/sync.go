package registry

import (
	"context"

	"wosbot/pkg/logx"
)

// Member is a connected guild member as seen by the platform.
type Member struct {
	UserID      string
	DisplayName string
}

// MemberDirectory is the slice of the platform adapter the nickname sweep
// needs: who is connected, and the ability to rename them.
type MemberDirectory interface {
	GuildIDs() []string
	Members(guildID string) []Member
	SetNickname(ctx context.Context, guildID, userID, nick string) error
}

// SyncDisplayNames walks every member of every connected guild and renames
// those whose display name drifted from their registered nickname. Rename
// failures (usually missing permission against the guild owner) are logged
// per member and never abort the sweep.
func (r *Registry) SyncDisplayNames(ctx context.Context, dir MemberDirectory) {
	synced, failed := 0, 0
	for _, guildID := range dir.GuildIDs() {
		for _, m := range dir.Members(guildID) {
			if ctx.Err() != nil {
				return
			}
			p, err := r.Lookup(m.UserID)
			if err != nil || p.Nickname == "" || m.DisplayName == p.Nickname {
				continue
			}
			if err := dir.SetNickname(ctx, guildID, m.UserID, p.Nickname); err != nil {
				failed++
				r.log.Warn("nickname sync failed",
					logx.String("guild_id", guildID),
					logx.String("user_id", m.UserID),
					logx.Err(err))
				continue
			}
			synced++
			r.log.Info("nickname synced",
				logx.String("user_id", m.UserID),
				logx.String("nickname", p.Nickname))
		}
	}
	if synced > 0 || failed > 0 {
		r.log.Info("nickname sweep done", logx.Int("synced", synced), logx.Int("failed", failed))
	}
}
