package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"wosbot/pkg/logx"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendMessage(_ context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, channelID+"|"+content)
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func TestParseTime(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "time today", raw: "15:30", want: time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC)},
		{name: "time already past keeps today", raw: "09:30", want: time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)},
		{name: "past time with marker keeps today", raw: "09:30 UTC", want: time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)},
		{name: "utc marker", raw: "15:30 UTC", want: time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC)},
		{name: "lowercase marker", raw: "15:30 utc", want: time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC)},
		{name: "full date", raw: "2024-04-01 08:00", want: time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)},
		{name: "full date with marker", raw: "2024-04-01 08:00 UTC", want: time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)},
		{name: "extra whitespace", raw: "  2024-04-01   08:00  ", want: time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.raw, now)
			if err != nil {
				t.Fatalf("ParseTime(%q) error: %v", tt.raw, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("ParseTime(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseTimeInvalid(t *testing.T) {
	t.Parallel()
	now := time.Now()
	for _, raw := range []string{"", "noon", "25:00", "2024-13-01 09:30", "tomorrow 09:30"} {
		if _, err := ParseTime(raw, now); !errors.Is(err, ErrInvalidTime) {
			t.Fatalf("ParseTime(%q) err = %v, want ErrInvalidTime", raw, err)
		}
	}
}

func TestOneShotDeliveredOnce(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s := NewService(sender, 30*time.Second, logx.Nop())

	id := s.Add("chan1", "water the plants", time.Now().Add(-time.Second))
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	msgs := sender.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "water the plants") {
		t.Fatalf("messages = %v", msgs)
	}
	if len(s.List()) != 0 {
		t.Fatal("one-shot reminder still listed after delivery")
	}
	if s.Cancel(id) {
		t.Fatal("delivered reminder still cancellable")
	}

	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sender.messages()) != 1 {
		t.Fatal("one-shot delivered twice")
	}
}

func TestRecurringAdvances(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s := NewService(sender, 30*time.Second, logx.Nop())

	fireAt := time.Now().UTC().Add(-time.Second)
	s.AddRepeat("chan1", "alliance duel", fireAt, 2)
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sender.messages()) != 1 {
		t.Fatalf("messages = %v", sender.messages())
	}

	pending := s.List()
	if len(pending) != 1 {
		t.Fatalf("recurring reminder missing after delivery: %v", pending)
	}
	next := pending[0].FireAt
	if want := fireAt.Add(48 * time.Hour); !next.Equal(want) {
		t.Fatalf("next firing = %v, want %v", next, want)
	}

	// Not due again within one tick.
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sender.messages()) != 1 {
		t.Fatal("recurring reminder fired early")
	}
}

func TestFutureReminderNotDelivered(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s := NewService(sender, 30*time.Second, logx.Nop())

	s.Add("chan1", "later", time.Now().Add(time.Hour))
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sender.messages()) != 0 {
		t.Fatalf("future reminder delivered: %v", sender.messages())
	}
	if len(s.List()) != 1 {
		t.Fatal("pending reminder vanished")
	}
}

func TestListOrderedAndCancel(t *testing.T) {
	t.Parallel()
	s := NewService(&fakeSender{}, 30*time.Second, logx.Nop())

	later := s.Add("c", "second", time.Now().Add(2*time.Hour))
	s.Add("c", "first", time.Now().Add(time.Hour))

	pending := s.List()
	if len(pending) != 2 || pending[0].Message != "first" {
		t.Fatalf("list order wrong: %+v", pending)
	}

	if !s.Cancel(later) {
		t.Fatal("Cancel returned false for pending reminder")
	}
	if s.Cancel(later) {
		t.Fatal("Cancel returned true twice")
	}
	if len(s.List()) != 1 {
		t.Fatalf("list = %+v", s.List())
	}
}

func TestResidualDelayRespected(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s := NewService(sender, 30*time.Second, logx.Nop())

	// Due within the tick but not yet: Tick should wait it out.
	s.Add("c", "soon", time.Now().Add(120*time.Millisecond))
	start := time.Now()
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("Tick returned after %v without waiting for fire time", elapsed)
	}
	if len(sender.messages()) != 1 {
		t.Fatalf("messages = %v", sender.messages())
	}
}
