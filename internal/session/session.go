package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
)

var (
	ErrNoDocument = errors.New("no document uploaded")
	ErrBusy       = errors.New("a question is already being answered")
	ErrIndexing   = errors.New("document is still being indexed")
	ErrClosed     = errors.New("session expired")
)

type State int

const (
	Empty State = iota
	Indexing
	Ready
	Answering
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Indexing:
		return "indexing"
	case Ready:
		return "ready"
	case Answering:
		return "answering"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{Empty, Indexing, Ready, Answering} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Session holds one user's document, chat history and response language.
// All methods are safe for concurrent use.
type Session struct {
	ID string

	mu       sync.Mutex
	state    State
	doc      *domain.Document
	prev     State // state to restore when indexing fails
	history  []domain.Turn
	language string
	lastUsed time.Time
	closed   bool
}

func New(language string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		language: language,
		lastUsed: time.Now(),
	}
}

func (s *Session) touch() {
	s.lastUsed = time.Now()
}

// expire closes the session if it is idle since before cutoff and has no
// upload or question in flight. A closed session rejects new work.
func (s *Session) expire(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Indexing || s.state == Answering || !s.lastUsed.Before(cutoff) {
		return false
	}
	s.closed = true
	return true
}

// BeginIndexing moves to Indexing. It fails while a question or another upload is in flight.
func (s *Session) BeginIndexing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.closed {
		return ErrClosed
	}
	switch s.state {
	case Indexing:
		return ErrIndexing
	case Answering:
		return ErrBusy
	}
	s.prev = s.state
	s.state = Indexing
	return nil
}

// FinishIndexing installs doc as the active document and starts a fresh
// history. It returns the document it replaced, if any.
func (s *Session) FinishIndexing(doc *domain.Document) *domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	old := s.doc
	s.doc = doc
	s.history = nil
	s.state = Ready
	return old
}

// FailIndexing restores the state from before BeginIndexing.
func (s *Session) FailIndexing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.state == Indexing {
		s.state = s.prev
	}
}

// BeginAnswer reserves the session for one question and returns the active
// document and response language.
func (s *Session) BeginAnswer() (*domain.Document, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.closed {
		return nil, "", ErrClosed
	}
	switch s.state {
	case Empty:
		return nil, "", ErrNoDocument
	case Indexing:
		return nil, "", ErrIndexing
	case Answering:
		return nil, "", ErrBusy
	}
	s.state = Answering
	return s.doc, s.language, nil
}

// EndAnswer releases the session. A non-nil turn is appended to the history
// unless the document changed meanwhile.
func (s *Session) EndAnswer(doc *domain.Document, turn *domain.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.state == Answering {
		s.state = Ready
	}
	if turn != nil && s.doc == doc {
		s.history = append(s.history, *turn)
	}
}

// Clear drops the document and history. It returns the dropped document.
func (s *Session) Clear() (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.closed {
		return nil, ErrClosed
	}
	switch s.state {
	case Indexing:
		return nil, ErrIndexing
	case Answering:
		return nil, ErrBusy
	}
	old := s.doc
	s.doc = nil
	s.history = nil
	s.state = Empty
	return old, nil
}

func (s *Session) SetLanguage(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.language = code
}

func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Document() *domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// History returns a copy of the chat history, oldest first.
func (s *Session) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID       string        `json:"id"`
	State    State         `json:"state"`
	Language string        `json:"language"`
	Document *domain.Info  `json:"document,omitempty"`
	History  []domain.Turn `json:"history"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:       s.ID,
		State:    s.state,
		Language: s.language,
		History:  make([]domain.Turn, len(s.history)),
	}
	copy(snap.History, s.history)
	if s.doc != nil {
		info := s.doc.Info()
		snap.Document = &info
	}
	return snap
}
