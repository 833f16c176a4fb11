package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smokyabdulrahman/ramadan-times/internal/ramadan"
)

// Snapshot is the externally visible loader state at one instant.
type Snapshot struct {
	Data       *ramadan.Data
	Loading    bool
	Err        error
	LastUpdate time.Time
}

// State holds the current snapshot and fans changes out to subscribers.
// There is no process-global data store: the loader owns its State, and
// interested callers subscribe explicitly.
type State struct {
	mu          sync.Mutex
	snapshot    Snapshot
	subscribers map[string]func(Snapshot)
}

// NewState creates an empty State.
func NewState() *State {
	return &State{subscribers: make(map[string]func(Snapshot))}
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Subscribe registers a callback invoked on every state change.
// The returned token is passed to Unsubscribe.
func (s *State) Subscribe(fn func(Snapshot)) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.subscribers[token] = fn
	s.mu.Unlock()
	return token
}

// Unsubscribe removes a previously registered callback.
func (s *State) Unsubscribe(token string) {
	s.mu.Lock()
	delete(s.subscribers, token)
	s.mu.Unlock()
}

// set replaces the snapshot and notifies subscribers outside the lock.
func (s *State) set(snap Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	fns := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
