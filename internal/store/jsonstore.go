// Package store provides atomic JSON state files for the engine's
// persisted ledgers. Writes go to a temp file first and are renamed
// into place so a crash mid-write never truncates existing state.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// JSONFile persists a single JSON document at a fixed path.
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

func (f *JSONFile) Path() string { return f.path }

// Load decodes the document into v. A missing or unreadable file is not an
// error: v is left untouched so the caller's default applies. Corrupt state
// is logged and likewise falls back to the default rather than wedging the
// engine at startup.
func (f *JSONFile) Load(v interface{}) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", f.path).Msg("State file unreadable, using default")
		}
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("path", f.path).Msg("State file corrupt, using default")
		return nil
	}
	return nil
}

// Save writes v atomically. Errors surface to the caller: a lost write here
// means a claim or cache entry was not made durable, and the caller must not
// pretend it was.
func (f *JSONFile) Save(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
