// Package registry maps Discord users to their registered in-game identity.
// The registry owns the "users" document exclusively; other components only
// read snapshots of it.
package registry

import (
	"context"
	"errors"
	"sort"
	"sync"

	"wosbot/internal/storage"
	"wosbot/internal/wos"
	"wosbot/pkg/logx"
)

var ErrNotRegistered = errors.New("user is not registered")

const docName = "users"

// Profile is a registered player's cached game identity.
// JSON keys match the on-disk users document.
type Profile struct {
	ChatUserID      string `json:"chat_user_id"`
	GameID          string `json:"game_id"`
	Nickname        string `json:"nickname"`
	StateID         int    `json:"state_id"`
	FurnaceLevel    int    `json:"furnace_level"`
	FurnaceImageURL string `json:"furnace_image,omitempty"`
	AvatarURL       string `json:"avatar,omitempty"`
}

// PlayerLookup is the slice of the wos client the registry needs.
type PlayerLookup interface {
	PlayerInfo(ctx context.Context, fid string) (wos.Player, error)
}

type Registry struct {
	lookup PlayerLookup
	store  *storage.Store
	log    logx.Logger

	mu    sync.RWMutex
	users map[string]Profile
}

func Load(lookup PlayerLookup, store *storage.Store, log logx.Logger) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Registry{
		lookup: lookup,
		store:  store,
		log:    log,
		users:  map[string]Profile{},
	}
	store.Load(docName, &r.users)
	if r.users == nil {
		r.users = map[string]Profile{}
	}
	return r
}

// Register fetches the profile for gameID and binds it to userID, replacing
// any previous registration wholesale. On lookup failure nothing changes.
func (r *Registry) Register(ctx context.Context, userID, gameID string) (Profile, error) {
	player, err := r.lookup.PlayerInfo(ctx, gameID)
	if err != nil {
		return Profile{}, err
	}

	p := Profile{
		ChatUserID:      userID,
		GameID:          player.FID,
		Nickname:        player.Nickname,
		StateID:         player.StateID,
		FurnaceLevel:    player.FurnaceLevel,
		FurnaceImageURL: player.FurnaceImageURL,
		AvatarURL:       player.AvatarURL,
	}

	r.mu.Lock()
	r.users[userID] = p
	r.saveLocked()
	r.mu.Unlock()

	r.log.Info("player registered",
		logx.String("user_id", userID),
		logx.String("game_id", p.GameID),
		logx.String("nickname", p.Nickname))
	return p, nil
}

func (r *Registry) Lookup(userID string) (Profile, error) {
	r.mu.RLock()
	p, ok := r.users[userID]
	r.mu.RUnlock()
	if !ok {
		return Profile{}, ErrNotRegistered
	}
	return p, nil
}

// LookupByGameID queries the game API directly, bypassing local state. Used
// for inspecting arbitrary, possibly-unregistered players.
func (r *Registry) LookupByGameID(ctx context.Context, gameID string) (wos.Player, error) {
	return r.lookup.PlayerInfo(ctx, gameID)
}

// Remove drops a registration, typically because the member left the server.
// It reports whether a registration existed; removing an absent user is a
// no-op.
func (r *Registry) Remove(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return false
	}
	delete(r.users, userID)
	r.saveLocked()
	return true
}

// Snapshot returns the profiles sorted by user id. Auto-redeem iterates this
// copy so a concurrent registration can't disturb the sweep.
func (r *Registry) Snapshot() []Profile {
	r.mu.RLock()
	out := make([]Profile, 0, len(r.users))
	for _, p := range r.users {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ChatUserID < out[j].ChatUserID })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *Registry) saveLocked() {
	r.store.Save(docName, r.users)
}
