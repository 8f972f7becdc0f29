package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"wosbot/pkg/logx"
)

// Store reads and writes whole JSON documents under a data directory.
// Documents are addressed by logical name; "users" maps to <dir>/users.json.
type Store struct {
	dir string
	log logx.Logger
}

func New(dir string, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{dir: dir, log: log}
}

// Dir returns the data directory the store is rooted at.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load decodes the named document into v. It reports whether the document was
// read; on any error (missing file, malformed JSON) v is left at the caller's
// default and Load returns false. Callers never see storage errors.
func (s *Store) Load(name string, v any) bool {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("document read failed", logx.String("name", name), logx.Err(err))
		}
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		s.log.Warn("document corrupt, using default", logx.String("name", name), logx.Err(err))
		return false
	}
	return true
}

// Save writes v as an indented JSON document, creating parent directories as
// needed. Failures are logged and swallowed: in-memory state stays ahead of
// disk and the next Save may succeed.
func (s *Store) Save(name string, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.log.Error("document encode failed", logx.String("name", name), logx.Err(err))
		return
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Error("data dir create failed", logx.String("dir", s.dir), logx.Err(err))
		return
	}
	if err := os.WriteFile(s.path(name), append(b, '\n'), 0o644); err != nil {
		s.log.Error("document write failed", logx.String("name", name), logx.Err(err))
	}
}
