// Package state records which alternative was last made active.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/example/aws-credentials-switcher/internal/awsswitch/storage"
)

// SwitchState is persisted after every successful switch.
type SwitchState struct {
	Alternative string    `toml:"alternative"`
	SwitchedAt  time.Time `toml:"switched_at"`
	Profiles    []string  `toml:"restored_profiles,omitempty"`
}

// Store reads and writes the state file.
type Store struct {
	storage *storage.Storage
	path    string
}

// New creates a Store backed by the file at path.
func New(storage *storage.Storage, path string) *Store {
	return &Store{storage: storage, path: path}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored state. A missing file yields a zero state.
func (s *Store) Load() (SwitchState, error) {
	var st SwitchState
	data, err := s.storage.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return st, fmt.Errorf("failed to read state: %w", err)
	}
	if err := toml.Unmarshal(data, &st); err != nil {
		return SwitchState{}, fmt.Errorf("failed to decode state %s: %w", s.path, err)
	}
	return st, nil
}

// Save replaces the state file.
func (s *Store) Save(st SwitchState) error {
	data, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := s.storage.MkdirAll(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := s.storage.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}
