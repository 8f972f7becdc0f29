// Package codes watches the gift-code page and announces newly published
// codes to the configured alert channel, optionally attempting auto-redeem
// for every registered player.
package codes

import (
	"context"
	"fmt"

	"wosbot/internal/registry"
	"wosbot/internal/settings"
	"wosbot/internal/storage"
	"wosbot/internal/wos"
	"wosbot/pkg/logx"
)

const docName = "last_codes"

// Source lists the currently active codes in page order. An empty list is a
// normal outcome (page unreachable or simply no codes), not a failure.
type Source interface {
	ActiveCodes(ctx context.Context) []string
}

// Redeemer attempts one redemption. Today this is always a stub outcome; the
// watcher reports it anyway so the status is visible.
type Redeemer interface {
	Redeem(ctx context.Context, fid, code string) wos.RedeemResult
}

// Announcer delivers one message to a channel.
type Announcer interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

type Watcher struct {
	source   Source
	redeemer Redeemer
	announce Announcer
	settings *settings.Settings
	reg      *registry.Registry
	store    *storage.Store
	log      logx.Logger

	autoRedeem bool

	// seen mirrors the persisted last_codes document. It is only touched
	// from Tick, which the scheduler never runs concurrently.
	seen []string
}

func NewWatcher(src Source, rd Redeemer, an Announcer, st *settings.Settings, reg *registry.Registry, store *storage.Store, autoRedeem bool, log logx.Logger) *Watcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	w := &Watcher{
		source:     src,
		redeemer:   rd,
		announce:   an,
		settings:   st,
		reg:        reg,
		store:      store,
		log:        log,
		autoRedeem: autoRedeem,
	}
	store.Load(docName, &w.seen)
	return w
}

// SetAutoRedeem flips the auto-redeem sweep on or off (config hot reload).
func (w *Watcher) SetAutoRedeem(on bool) { w.autoRedeem = on }

// Tick runs one scan: fetch, diff against the last-seen list, announce new
// codes in page order, persist the full current list, then (optionally) sweep
// redemption attempts. An empty fetch result skips the tick without touching
// any state, so a flaky page can't wipe the last-seen list.
func (w *Watcher) Tick(ctx context.Context) error {
	active := w.source.ActiveCodes(ctx)
	if len(active) == 0 {
		return nil
	}

	fresh := diff(active, w.seen)
	if len(fresh) == 0 {
		return nil
	}

	channelID := w.settings.AlertChannelID()
	if channelID == "" {
		w.log.Debug("new codes found but no alert channel configured", logx.Int("count", len(fresh)))
		return nil
	}

	for _, code := range fresh {
		msg := fmt.Sprintf("🎉 New gift code: `%s`", code)
		if err := w.announce.SendMessage(ctx, channelID, msg); err != nil {
			w.log.Warn("code announcement failed", logx.String("code", code), logx.Err(err))
			continue
		}
		w.log.Info("announced new code", logx.String("code", code))
	}

	// Persist the FULL active list, not seen ∪ active: codes that drop off
	// the page are forgotten on purpose, so a code that disappears and later
	// reappears is announced again.
	w.seen = active
	w.store.Save(docName, w.seen)

	if w.autoRedeem {
		w.redeemSweep(ctx, channelID, fresh)
	}
	return nil
}

// redeemSweep attempts every (new code × registered player) combination and
// posts one status line per attempt. Outcomes are independent: a failure for
// one player never stops the rest of the sweep.
func (w *Watcher) redeemSweep(ctx context.Context, channelID string, fresh []string) {
	profiles := w.reg.Snapshot()
	if len(profiles) == 0 {
		return
	}
	for _, code := range fresh {
		for _, p := range profiles {
			if ctx.Err() != nil {
				return
			}
			res := w.redeemer.Redeem(ctx, p.GameID, code)
			status := "⚠️ " + res.Message
			if res.Status == wos.RedeemOK {
				status = "✅ redeemed"
			}
			msg := fmt.Sprintf("🎁 Auto-redeem `%s` for <@%s>: %s", code, p.ChatUserID, status)
			if err := w.announce.SendMessage(ctx, channelID, msg); err != nil {
				w.log.Warn("redeem status post failed",
					logx.String("code", code),
					logx.String("user_id", p.ChatUserID),
					logx.Err(err))
			}
		}
	}
}

// diff returns the members of active missing from seen, preserving active's
// order. Matching is exact and case-sensitive.
func diff(active, seen []string) []string {
	known := make(map[string]struct{}, len(seen))
	for _, c := range seen {
		known[c] = struct{}{}
	}
	var fresh []string
	for _, c := range active {
		if _, ok := known[c]; !ok {
			fresh = append(fresh, c)
		}
	}
	return fresh
}
