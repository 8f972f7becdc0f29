package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"wosbot/internal/storage"
	"wosbot/pkg/logx"
)

type fakeDirectory struct {
	mu      sync.Mutex
	members map[string][]Member
	renamed map[string]string
	fail    map[string]error
}

func (f *fakeDirectory) GuildIDs() []string {
	ids := make([]string, 0, len(f.members))
	for id := range f.members {
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeDirectory) Members(guildID string) []Member { return f.members[guildID] }

func (f *fakeDirectory) SetNickname(_ context.Context, _, userID, nick string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[userID]; err != nil {
		return err
	}
	if f.renamed == nil {
		f.renamed = map[string]string{}
	}
	f.renamed[userID] = nick
	return nil
}

func TestSyncDisplayNames(t *testing.T) {
	t.Parallel()
	r := Load(testLookup(), storage.New(t.TempDir(), logx.Nop()), logx.Nop())
	ctx := context.Background()
	if _, err := r.Register(ctx, "u1", "100"); err != nil { // Frosty
		t.Fatal(err)
	}
	if _, err := r.Register(ctx, "u2", "200"); err != nil { // Ember
		t.Fatal(err)
	}

	dir := &fakeDirectory{
		members: map[string][]Member{
			"g1": {
				{UserID: "u1", DisplayName: "OldName"},  // mismatched, renamed
				{UserID: "u2", DisplayName: "Ember"},    // already correct
				{UserID: "u3", DisplayName: "Stranger"}, // not registered
			},
		},
	}
	r.SyncDisplayNames(ctx, dir)

	if dir.renamed["u1"] != "Frosty" {
		t.Fatalf("u1 rename = %q, want Frosty", dir.renamed["u1"])
	}
	if _, ok := dir.renamed["u2"]; ok {
		t.Fatal("matching nickname was rewritten")
	}
	if _, ok := dir.renamed["u3"]; ok {
		t.Fatal("unregistered member was renamed")
	}
}

func TestSyncDisplayNamesContinuesPastFailures(t *testing.T) {
	t.Parallel()
	r := Load(testLookup(), storage.New(t.TempDir(), logx.Nop()), logx.Nop())
	ctx := context.Background()
	if _, err := r.Register(ctx, "u1", "100"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register(ctx, "u2", "200"); err != nil {
		t.Fatal(err)
	}

	dir := &fakeDirectory{
		members: map[string][]Member{
			"g1": {
				{UserID: "u1", DisplayName: "wrong"},
				{UserID: "u2", DisplayName: "wrong"},
			},
		},
		fail: map[string]error{"u1": errors.New("missing permission")},
	}
	r.SyncDisplayNames(ctx, dir)

	if _, ok := dir.renamed["u1"]; ok {
		t.Fatal("failed rename recorded as success")
	}
	if dir.renamed["u2"] != "Ember" {
		t.Fatalf("sweep stopped at first failure; u2 = %q", dir.renamed["u2"])
	}
}
