package agent

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoray/symposium/internal/llm"
)

// Session is one conversation bound to a workspace, a mode, and a
// model tier. The message log is append-only: entries are never
// mutated or reordered once added.
type Session struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Mode        string    `json:"mode"`
	Tier        string    `json:"tier"`
	System      string    `json:"system,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	mu       sync.RWMutex
	messages []llm.Message
}

// NewSession creates a standalone session. Sessions used by the HTTP
// surface go through a SessionStore instead.
func NewSession(workspaceID, mode, tier, system string) *Session {
	now := time.Now()
	return &Session{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Mode:        mode,
		Tier:        tier,
		System:      system,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Append adds messages to the end of the log.
func (s *Session) Append(msgs ...llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
	s.UpdatedAt = time.Now()
}

// History returns a copy of the message log.
func (s *Session) History() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the log.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Reset clears the message log, keeping the session's identity and
// configuration.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.UpdatedAt = time.Now()
}

// SessionStore is the in-memory session registry backing the HTTP
// surface. Sessions are ephemeral; jobs and tasks are what persist.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a new session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create creates and registers a new session
func (st *SessionStore) Create(workspaceID, mode, tier, system string) *Session {
	sess := NewSession(workspaceID, mode, tier, system)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[sess.ID] = sess
	return sess
}

// Get retrieves a session by ID
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sess, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// List returns all sessions, most recently updated first.
func (st *SessionStore) List() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Delete removes a session
func (st *SessionStore) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}
