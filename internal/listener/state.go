package listener

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tidwall/btree"
	"gopkg.in/yaml.v3"
)

// State is the listener's durable memory: which mention events were already
// answered and how far polling has progressed. It survives restarts so the
// bot never replies to the same note twice.
type State struct {
	mu        sync.Mutex
	path      string
	lastPoll  time.Time
	responded btree.Set[string]
}

type stateFile struct {
	LastPoll  int64    `yaml:"last_poll"`
	Responded []string `yaml:"responded"`
}

// LoadState reads the state file, starting fresh when it does not exist.
func LoadState(path string) (*State, error) {
	s := &State{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read listener state: %w", err)
	}

	var file stateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("corrupt listener state %s: %w", path, err)
	}
	if file.LastPoll > 0 {
		s.lastPoll = time.Unix(file.LastPoll, 0)
	}
	for _, id := range file.Responded {
		s.responded.Insert(id)
	}
	return s, nil
}

// Responded reports whether the event was already answered.
func (s *State) Responded(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responded.Contains(eventID)
}

// MarkResponded records the event as answered.
func (s *State) MarkResponded(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responded.Insert(eventID)
}

// LastPoll returns when the previous poll ran; zero on a fresh state.
func (s *State) LastPoll() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPoll
}

// SetLastPoll advances the poll cursor.
func (s *State) SetLastPoll(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPoll = t
}

// Save writes the state to disk. The lock is held through the write so
// concurrent savers cannot clobber a newer snapshot with an older one.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := stateFile{
		LastPoll:  s.lastPoll.Unix(),
		Responded: make([]string, 0, s.responded.Len()),
	}
	if s.lastPoll.IsZero() {
		file.LastPoll = 0
	}
	s.responded.Scan(func(id string) bool {
		file.Responded = append(file.Responded, id)
		return true
	})

	out, err := yaml.Marshal(file)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write listener state: %w", err)
	}
	return nil
}
