// Package session keeps per-identity conversation state in memory.
// Sessions are process-local and disposable: eviction simply lands the
// user back on the main menu at next contact.
package session

import (
	"log/slog"
	"sync"
	"time"
)

// Session is the conversational position of one identity.
type Session struct {
	State     string
	UpdatedAt time.Time
}

// Store is a concurrency-safe session map.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]Session
	defaultState string
	logger       *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewStore creates a session store. Unknown identities resolve to defaultState.
func NewStore(log *slog.Logger, defaultState string) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		sessions:     make(map[string]Session),
		defaultState: defaultState,
		logger:       log.With(slog.String("service", "session")),
		now:          time.Now,
	}
}

// Get returns the current state for key, falling back to the default.
func (s *Store) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[key]; ok {
		return sess.State
	}
	return s.defaultState
}

// Put records the state for key and refreshes its activity stamp.
func (s *Store) Put(key, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = Session{State: state, UpdatedAt: s.now()}
}

// Reset drops the session so the identity restarts from the default state.
func (s *Store) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle longer than maxAge and returns the count.
func (s *Store) Sweep(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for key, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, key)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Info("evicted idle sessions", slog.Int("count", evicted))
	}
	return evicted
}
