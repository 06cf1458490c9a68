// Package session keeps per-session chat history in memory. Sessions back
// the optional chat UI: they are discarded on expiry or restart and are
// deliberately never persisted.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/todoagent/internal/agent/core"
)

// DefaultTTL is how long an idle session survives before the sweep drops it.
const DefaultTTL = 30 * time.Minute

// Session is one conversation's ordered message log.
type Session struct {
	id        string
	expiresAt time.Time

	mu       sync.RWMutex
	messages []core.Message
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Append adds one message to the session log.
func (s *Session) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, core.Message{Role: role, Content: content})
}

// History returns a copy of the message log in insertion order.
func (s *Session) History() []core.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Store holds sessions keyed by ID.
type Store struct {
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an in-memory session store. ttl <= 0 uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{ttl: ttl, sessions: make(map[string]*Session)}
}

// Ensure returns the session with the given ID, extending its lifetime, or
// creates a fresh one (with a generated ID) when id is empty or unknown.
func (s *Store) Ensure(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			sess.expiresAt = time.Now().Add(s.ttl)
			return sess
		}
	}

	sess := &Session{
		id:        uuid.NewString(),
		expiresAt: time.Now().Add(s.ttl),
	}
	s.sessions[sess.id] = sess
	return sess
}

// Get returns the session with the given ID, or nil if it does not exist.
func (s *Store) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// sweepLocked drops expired sessions. Caller must hold the write lock.
func (s *Store) sweepLocked() {
	now := time.Now()
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, id)
		}
	}
}
