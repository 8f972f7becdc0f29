package discord

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"

	"wosbot/internal/registry"
	"wosbot/internal/storage"
	"wosbot/internal/wos"
	"wosbot/pkg/logx"
)

type staticLookup struct{}

func (staticLookup) PlayerInfo(_ context.Context, fid string) (wos.Player, error) {
	return wos.Player{FID: fid, Nickname: "Frosty", StateID: 42, FurnaceLevel: 30}, nil
}

func TestMemberRemoveDropsRegistration(t *testing.T) {
	t.Parallel()
	store := storage.New(t.TempDir(), logx.Nop())
	reg := registry.Load(staticLookup{}, store, logx.Nop())
	if _, err := reg.Register(context.Background(), "u1", "100"); err != nil {
		t.Fatal(err)
	}

	a, err := New("token", "g1", logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	a.Bind(Deps{Registry: reg})

	a.onMemberDelete(nil, &discordgo.GuildMemberRemove{Member: &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "u1"},
	}})
	if _, err := reg.Lookup("u1"); err == nil {
		t.Fatal("registration survived member removal")
	}

	// Events without a user payload are ignored.
	a.onMemberDelete(nil, &discordgo.GuildMemberRemove{Member: &discordgo.Member{GuildID: "g1"}})
}
