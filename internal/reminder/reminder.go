// Package reminder keeps in-memory one-shot and recurring reminders and
// delivers them on a coarse periodic tick. Reminders are deliberately not
// persisted; a restart clears them.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wosbot/pkg/logx"
)

// ErrInvalidTime reports a time string that matches none of the accepted
// layouts.
var ErrInvalidTime = errors.New("reminder: invalid time format, use HH:MM or YYYY-MM-DD HH:MM (UTC)")

// Sender delivers one reminder message to a channel.
type Sender interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

// Reminder is one scheduled delivery. EveryDays == 0 means one-shot.
type Reminder struct {
	ID        string
	ChannelID string
	Message   string
	FireAt    time.Time
	EveryDays int
}

type Service struct {
	sender Sender
	log    logx.Logger
	tick   time.Duration

	mu      sync.Mutex
	entries map[string]*Reminder
}

func NewService(sender Sender, tick time.Duration, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		sender:  sender,
		log:     log,
		tick:    tick,
		entries: make(map[string]*Reminder),
	}
}

// ParseTime accepts "HH:MM" (today's date, even when the moment has already
// passed) or "YYYY-MM-DD HH:MM". Both are read as UTC; an optional trailing
// "UTC" marker and surrounding whitespace are tolerated. A fire time in the
// past is delivered on the next tick.
func ParseTime(s string, now time.Time) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	if marker := strings.ToUpper(s); strings.HasSuffix(marker, " UTC") {
		s = strings.TrimSpace(s[:len(s)-len(" UTC")])
	}

	if t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("15:04", s, time.UTC); err == nil {
		now = now.UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
	}
	return time.Time{}, ErrInvalidTime
}

// Add schedules a one-shot reminder and returns its ID.
func (s *Service) Add(channelID, message string, fireAt time.Time) string {
	return s.add(channelID, message, fireAt, 0)
}

// AddRepeat schedules a recurring reminder firing every everyDays days,
// starting at fireAt.
func (s *Service) AddRepeat(channelID, message string, fireAt time.Time, everyDays int) string {
	if everyDays < 1 {
		everyDays = 1
	}
	return s.add(channelID, message, fireAt, everyDays)
}

func (s *Service) add(channelID, message string, fireAt time.Time, everyDays int) string {
	r := &Reminder{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Message:   message,
		FireAt:    fireAt.UTC(),
		EveryDays: everyDays,
	}
	s.mu.Lock()
	s.entries[r.ID] = r
	s.mu.Unlock()
	s.log.Info("reminder scheduled",
		logx.String("id", r.ID),
		logx.Time("fire_at", r.FireAt),
		logx.Int("every_days", everyDays))
	return r.ID
}

// Cancel removes a reminder by ID. It reports whether anything was removed.
func (s *Service) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

// List returns all pending reminders ordered by fire time.
func (s *Service) List() []Reminder {
	s.mu.Lock()
	out := make([]Reminder, 0, len(s.entries))
	for _, r := range s.entries {
		out = append(out, *r)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}

// Tick delivers every reminder due within one tick interval. Delivery waits
// out the residual sub-tick delay so reminders fire at their scheduled minute
// rather than up to a tick early. One-shot reminders are removed after
// delivery; recurring ones advance by their period.
func (s *Service) Tick(ctx context.Context) error {
	now := time.Now().UTC()
	horizon := now.Add(s.tick)

	s.mu.Lock()
	var due []*Reminder
	for _, r := range s.entries {
		if !r.FireAt.After(horizon) {
			due = append(due, r)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })

	for _, r := range due {
		if wait := time.Until(r.FireAt); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		msg := fmt.Sprintf("⏰ Reminder: %s", r.Message)
		if err := s.sender.SendMessage(ctx, r.ChannelID, msg); err != nil {
			s.log.Warn("reminder delivery failed", logx.String("id", r.ID), logx.Err(err))
		}
		s.mu.Lock()
		if cur, ok := s.entries[r.ID]; ok {
			if cur.EveryDays > 0 {
				cur.FireAt = cur.FireAt.Add(time.Duration(cur.EveryDays) * 24 * time.Hour)
			} else {
				delete(s.entries, r.ID)
			}
		}
		s.mu.Unlock()
	}
	return nil
}
