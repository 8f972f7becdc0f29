// Package gate decides who may run privileged commands: the bot owner
// (discovered asynchronously from the platform's application metadata) and a
// persisted set of admin ids.
package gate

import (
	"context"
	"errors"
	"sync"
	"time"

	"wosbot/internal/settings"
	"wosbot/pkg/logx"
)

var (
	// ErrNotOwner is returned for owner-only operations, including the window
	// before owner discovery has resolved.
	ErrNotOwner = errors.New("only the bot owner may do this")
)

// OwnerSource answers the platform's "who owns this application" query.
type OwnerSource interface {
	ApplicationOwner(ctx context.Context) (string, error)
}

const retryInterval = 10 * time.Second

// Gate starts unresolved and flips to resolved exactly once per discovery.
// While unresolved, every owner-gated check denies instead of blocking or
// erroring.
type Gate struct {
	source   OwnerSource
	settings *settings.Settings
	log      logx.Logger

	mu      sync.RWMutex
	ownerID string // empty until resolved

	rearm chan struct{}
}

func New(source OwnerSource, st *settings.Settings, log logx.Logger) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Gate{
		source:   source,
		settings: st,
		log:      log,
		rearm:    make(chan struct{}, 1),
	}
}

// Run drives owner discovery until ctx is canceled: retry every 10s while
// unresolved, then park. Rearm() wakes the loop after a reconnect in case the
// first discovery never landed.
func (g *Gate) Run(ctx context.Context) error {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	g.tryResolve(ctx)
	for {
		if g.Resolved() {
			// Parked: nothing to do until a reconnect suggests we may have
			// missed the metadata query earlier in this session.
			select {
			case <-ctx.Done():
				return nil
			case <-g.rearm:
				continue
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-g.rearm:
			g.tryResolve(ctx)
		case <-ticker.C:
			g.tryResolve(ctx)
		}
	}
}

// Rearm nudges the discovery loop. The adapter calls this on every reconnect;
// it is a no-op while resolved.
func (g *Gate) Rearm() {
	select {
	case g.rearm <- struct{}{}:
	default:
	}
}

func (g *Gate) tryResolve(ctx context.Context) {
	if g.Resolved() {
		return
	}
	id, err := g.source.ApplicationOwner(ctx)
	if err != nil {
		g.log.Warn("owner discovery failed, will retry", logx.Err(err))
		return
	}
	g.mu.Lock()
	g.ownerID = id
	g.mu.Unlock()
	g.log.Info("bot owner resolved", logx.String("owner_id", id))
}

func (g *Gate) Resolved() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ownerID != ""
}

// OwnerID returns the resolved owner id, or "" while unresolved.
func (g *Gate) OwnerID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ownerID
}

func (g *Gate) IsOwner(userID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ownerID != "" && userID == g.ownerID
}

// IsPrivileged reports whether the user is an admin or the resolved owner.
func (g *Gate) IsPrivileged(userID string) bool {
	return g.settings.IsAdmin(userID) || g.IsOwner(userID)
}

// Grant adds target to the admin set. Owner only.
func (g *Gate) Grant(actorID, targetID string) error {
	if !g.IsOwner(actorID) {
		return ErrNotOwner
	}
	if g.settings.AddAdmin(targetID) {
		g.log.Info("admin granted", logx.String("user_id", targetID))
	}
	return nil
}

// Revoke removes target from the admin set. Owner only.
// Reports whether the target was an admin at all.
func (g *Gate) Revoke(actorID, targetID string) (bool, error) {
	if !g.IsOwner(actorID) {
		return false, ErrNotOwner
	}
	removed := g.settings.RemoveAdmin(targetID)
	if removed {
		g.log.Info("admin revoked", logx.String("user_id", targetID))
	}
	return removed, nil
}

// Admins lists the admin set. Owner only.
func (g *Gate) Admins(actorID string) ([]string, error) {
	if !g.IsOwner(actorID) {
		return nil, ErrNotOwner
	}
	return g.settings.Admins(), nil
}
