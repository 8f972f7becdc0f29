// Package settings owns the persisted "settings" document: the alert channel
// target and the admin id set. Every reader and writer goes through the
// shared handle, so there is no per-component cached copy to go stale;
// mutations persist the whole document synchronously.
package settings

import (
	"sort"
	"sync"

	"wosbot/internal/storage"
)

const docName = "settings"

type document struct {
	AlertChannelID string   `json:"alert_channel_id,omitempty"`
	Admins         []string `json:"admins,omitempty"`
}

type Settings struct {
	mu    sync.RWMutex
	store *storage.Store
	doc   document
}

func Load(store *storage.Store) *Settings {
	s := &Settings{store: store}
	store.Load(docName, &s.doc)
	return s
}

func (s *Settings) AlertChannelID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.AlertChannelID
}

func (s *Settings) SetAlertChannelID(channelID string) {
	s.mu.Lock()
	s.doc.AlertChannelID = channelID
	s.saveLocked()
	s.mu.Unlock()
}

// Admins returns the admin ids in stable order.
func (s *Settings) Admins() []string {
	s.mu.RLock()
	out := append([]string(nil), s.doc.Admins...)
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (s *Settings) IsAdmin(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.doc.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// AddAdmin reports whether the id was newly added.
func (s *Settings) AddAdmin(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.doc.Admins {
		if id == userID {
			return false
		}
	}
	s.doc.Admins = append(s.doc.Admins, userID)
	s.saveLocked()
	return true
}

// RemoveAdmin reports whether the id was present.
func (s *Settings) RemoveAdmin(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range s.doc.Admins {
		if id == userID {
			s.doc.Admins = append(s.doc.Admins[:i], s.doc.Admins[i+1:]...)
			s.saveLocked()
			return true
		}
	}
	return false
}

func (s *Settings) saveLocked() {
	s.store.Save(docName, &s.doc)
}
