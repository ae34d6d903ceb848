package ingestion

import (
	"sync"

	"milkportal/domain/ingestion"
)

// Session holds the current upload attempt for one uploader. Each new file
// starts a new generation; a result computed for an older generation is
// dropped instead of overwriting the newer attempt.
type Session struct {
	mu         sync.Mutex
	generation uint64
	current    *ingestion.Result
}

// Begin discards the current attempt and returns the generation tag for the
// parse that is about to start
func (s *Session) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.current = nil
	return s.generation
}

// Complete stores result if gen is still the latest generation. It reports
// whether the result was applied.
func (s *Session) Complete(gen uint64, result ingestion.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	result.Generation = gen
	s.current = &result
	return true
}

// Current returns a copy of the latest completed attempt, if any
func (s *Session) Current() (ingestion.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ingestion.Result{}, false
	}
	return *s.current, true
}

// Reset clears the slot and invalidates any parse still in flight
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.current = nil
}

// SessionStore keeps one Session per uploader key
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Get returns the session for key, creating it on first use
func (s *SessionStore) Get(key string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = &Session{}
		s.sessions[key] = sess
	}
	return sess
}

// Drop resets the session for key and forgets it. A parse still holding the
// old session completes into nothing.
func (s *SessionStore) Drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		sess.Reset()
		delete(s.sessions, key)
	}
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
