// Package state persists lade's global, per-machine settings.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
)

// PathEnv overrides the location of the state file.
const PathEnv = "LADE_CONFIG_PATH"

// State is the content of the global state file.
type State struct {
	// User overrides the identity used to pick per-user secrets.
	User        string    `json:"user,omitempty"`
	UpdateCheck time.Time `json:"update_check"`
}

// DefaultPath returns the state file location
func DefaultPath() (string, error) {
	if path := os.Getenv(PathEnv); path != "" {
		return path, nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".config", "lade", "config.json"), nil
}

// Store reads and writes the state file at a fixed path
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore creates a store backed by path
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the state file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file, creating it with defaults when missing
func (s *Store) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read state file: %w", err)
		}

		st := &State{UpdateCheck: s.now().UTC()}
		if err := s.write(st); err != nil {
			return nil, err
		}
		return st, nil
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file %s: %w", s.path, err)
	}
	return &st, nil
}

// Save writes st to the state file
func (s *Store) Save(st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(st)
}

func (s *Store) write(st *State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
