package session

import (
	"sync"
	"time"
)

// Store keeps sessions by ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	language string
}

// NewStore creates sessions with language as their initial response language.
func NewStore(language string) *Store {
	return &Store{sessions: make(map[string]*Session), language: language}
}

func (st *Store) Create() *Session {
	s := New(st.language)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// GetOrCreate returns the session for id, creating it under that id when missing.
func (st *Store) GetOrCreate(id string) *Session {
	if s, ok := st.Get(id); ok {
		return s
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := New(st.language)
	if id != "" {
		s.ID = id
	}
	st.sessions[s.ID] = s
	return s
}

func (st *Store) Delete(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	return s, ok
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep closes and removes sessions idle for longer than ttl and returns them.
// Sessions that are indexing or answering are kept.
func (st *Store) Sweep(ttl time.Duration) []*Session {
	cutoff := time.Now().Add(-ttl)

	st.mu.Lock()
	defer st.mu.Unlock()

	var removed []*Session
	for id, s := range st.sessions {
		if s.expire(cutoff) {
			delete(st.sessions, id)
			removed = append(removed, s)
		}
	}
	return removed
}

// Language is the response language new sessions start with.
func (st *Store) Language() string {
	return st.language
}
