package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"connwatch/internal/models"
)

// TransitionStorage persists the connectivity transition history to disk.
type TransitionStorage struct {
	mu      sync.RWMutex
	path    string
	limit   int
	history []models.Transition
}

// NewTransitionStorage creates a storage instance and loads existing history
// if present. limit caps how many transitions are retained; zero or negative
// means unbounded.
func NewTransitionStorage(path string, limit int) (*TransitionStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	s := &TransitionStorage{path: path, limit: limit}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Append adds a transition and persists the history to disk.
func (s *TransitionStorage) Append(t models.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, t)
	if s.limit > 0 && len(s.history) > s.limit {
		s.history = s.history[len(s.history)-s.limit:]
	}
	return s.persistLocked()
}

// Latest returns the most recent transition if one exists.
func (s *TransitionStorage) Latest() (models.Transition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.history) == 0 {
		return models.Transition{}, false
	}
	return s.history[len(s.history)-1], true
}

// History returns a copy of the persisted transitions.
func (s *TransitionStorage) History() []models.Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.history) == 0 {
		return nil
	}
	out := make([]models.Transition, len(s.history))
	copy(out, s.history)
	return out
}

func (s *TransitionStorage) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.history = nil
			return nil
		}
		return fmt.Errorf("read transition history: %w", err)
	}
	if len(data) == 0 {
		s.history = nil
		return nil
	}

	var entries []models.Transition
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse transition history: %w", err)
	}
	for i := range entries {
		entries[i].State = entries[i].State.Normalize()
	}
	if s.limit > 0 && len(entries) > s.limit {
		entries = entries[len(entries)-s.limit:]
	}
	s.history = entries
	return nil
}

func (s *TransitionStorage) persistLocked() error {
	bytes, err := json.MarshalIndent(s.history, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transition history: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return fmt.Errorf("write temp transition history: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace transition history file: %w", err)
	}
	return nil
}
