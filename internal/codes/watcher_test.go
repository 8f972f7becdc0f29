package codes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"wosbot/internal/registry"
	"wosbot/internal/settings"
	"wosbot/internal/storage"
	"wosbot/internal/wos"
	"wosbot/pkg/logx"
)

type fakeSource struct {
	mu    sync.Mutex
	codes []string
}

func (f *fakeSource) ActiveCodes(context.Context) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes
}

func (f *fakeSource) set(codes ...string) {
	f.mu.Lock()
	f.codes = codes
	f.mu.Unlock()
}

type fakeRedeemer struct{}

func (fakeRedeemer) Redeem(_ context.Context, _, _ string) wos.RedeemResult {
	return wos.RedeemResult{Status: wos.RedeemNotImplemented, Message: "stub"}
}

type fakeAnnouncer struct {
	mu   sync.Mutex
	sent []string
	fail error
}

func (f *fakeAnnouncer) SendMessage(_ context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, channelID+"|"+content)
	return nil
}

func (f *fakeAnnouncer) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeLookup struct{}

func (fakeLookup) PlayerInfo(_ context.Context, fid string) (wos.Player, error) {
	return wos.Player{FID: fid, Nickname: "Player" + fid}, nil
}

type fixture struct {
	src *fakeSource
	an  *fakeAnnouncer
	reg *registry.Registry
	w   *Watcher
	dir string
}

func newFixture(t *testing.T, autoRedeem bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	store := storage.New(dir, logx.Nop())
	sets := settings.Load(store)
	sets.SetAlertChannelID("alerts")
	reg := registry.Load(fakeLookup{}, store, logx.Nop())
	src := &fakeSource{}
	an := &fakeAnnouncer{}
	return &fixture{
		src: src,
		an:  an,
		reg: reg,
		w:   NewWatcher(src, fakeRedeemer{}, an, sets, reg, store, autoRedeem, logx.Nop()),
		dir: dir,
	}
}

func TestNewCodesAnnouncedOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.src.set("GIFT100")

	if err := f.w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if msgs := f.an.messages(); len(msgs) != 1 || !strings.Contains(msgs[0], "GIFT100") {
		t.Fatalf("messages = %v", msgs)
	}

	// Same list again: nothing new, nothing announced.
	if err := f.w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if msgs := f.an.messages(); len(msgs) != 1 {
		t.Fatalf("repeat tick re-announced: %v", msgs)
	}
}

func TestOnlyNewCodesAnnounced(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.src.set("GIFT100")
	if err := f.w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.src.set("GIFT100", "GIFT200")
	if err := f.w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	msgs := f.an.messages()
	if len(msgs) != 2 || !strings.Contains(msgs[1], "GIFT200") {
		t.Fatalf("messages = %v", msgs)
	}
}

// A code that drops off the page is forgotten, so its reappearance counts as
// new again.
func TestDisappearedCodeIsForgotten(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	ctx := context.Background()

	f.src.set("GIFT100")
	if err := f.w.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	f.src.set("GIFT200")
	if err := f.w.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	f.src.set("GIFT100")
	if err := f.w.Tick(ctx); err != nil {
		t.Fatal(err)
	}

	msgs := f.an.messages()
	if len(msgs) != 3 {
		t.Fatalf("messages = %v", msgs)
	}
	if !strings.Contains(msgs[2], "GIFT100") {
		t.Fatalf("reappeared code not re-announced: %v", msgs)
	}
}

func TestEmptyFetchSkipsTick(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	ctx := context.Background()

	f.src.set("GIFT100")
	if err := f.w.Tick(ctx); err != nil {
		t.Fatal(err)
	}

	// Page flakes out: empty result must not wipe the last-seen list.
	f.src.set()
	if err := f.w.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	f.src.set("GIFT100")
	if err := f.w.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	if msgs := f.an.messages(); len(msgs) != 1 {
		t.Fatalf("flaky fetch caused re-announcement: %v", msgs)
	}
}

func TestNoChannelConfiguredSkipsSilently(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := storage.New(dir, logx.Nop())
	sets := settings.Load(store) // no alert channel
	reg := registry.Load(fakeLookup{}, store, logx.Nop())
	src := &fakeSource{}
	an := &fakeAnnouncer{}
	w := NewWatcher(src, fakeRedeemer{}, an, sets, reg, store, false, logx.Nop())

	src.set("GIFT100")
	if err := w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if msgs := an.messages(); len(msgs) != 0 {
		t.Fatalf("announced without channel: %v", msgs)
	}

	// The code must still count as new once a channel exists.
	sets.SetAlertChannelID("alerts")
	if err := w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if msgs := an.messages(); len(msgs) != 1 {
		t.Fatalf("messages = %v", msgs)
	}
}

func TestLastSeenPersists(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.src.set("GIFT100")
	if err := f.w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Fresh watcher over the same data dir: GIFT100 is already known.
	store := storage.New(f.dir, logx.Nop())
	sets := settings.Load(store)
	an := &fakeAnnouncer{}
	w := NewWatcher(f.src, fakeRedeemer{}, an, sets, f.reg, store, false, logx.Nop())
	if err := w.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if msgs := an.messages(); len(msgs) != 0 {
		t.Fatalf("restart re-announced known code: %v", msgs)
	}
}

func TestAutoRedeemSweep(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	ctx := context.Background()
	if _, err := f.reg.Register(ctx, "u1", "100"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.reg.Register(ctx, "u2", "200"); err != nil {
		t.Fatal(err)
	}

	f.src.set("GIFT100")
	if err := f.w.Tick(ctx); err != nil {
		t.Fatal(err)
	}

	msgs := f.an.messages()
	// 1 announcement + 2 redeem status lines.
	if len(msgs) != 3 {
		t.Fatalf("messages = %v", msgs)
	}
	var statuses int
	for _, m := range msgs {
		if strings.Contains(m, "Auto-redeem") {
			statuses++
		}
	}
	if statuses != 2 {
		t.Fatalf("want one status per registered user, got %d: %v", statuses, msgs)
	}
}

func TestAnnounceFailureDoesNotAbort(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.an.fail = errors.New("channel deleted")
	f.src.set("GIFT100")

	if err := f.w.Tick(context.Background()); err != nil {
		t.Fatalf("Tick must swallow send failures, got %v", err)
	}
}
