package assistant

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one transcript entry. Taken is set only on assistant turns that
// changed or showed something.
type Turn struct {
	Role  Role         `json:"role"`
	Text  string       `json:"text"`
	Taken *ActionTaken `json:"taken,omitempty"`
	At    time.Time    `json:"at"`
}

// Session is one conversation. It is safe for concurrent use.
type Session struct {
	ID        string
	UserID    string
	StartedAt time.Time

	mu         sync.Mutex
	transcript []Turn
	prefs      map[string]string
}

func NewSession(userID string, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartedAt: now,
		prefs:     map[string]string{},
	}
}

func (s *Session) record(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, t)
}

// Transcript returns a copy of the turns so far.
func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) Pref(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.prefs[key]
	return v, ok
}

func (s *Session) SetPref(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefs == nil {
		s.prefs = map[string]string{}
	}
	s.prefs[key] = value
}

// Sessions is an in-memory registry of open sessions.
type Sessions struct {
	Now func() time.Time

	mu   sync.RWMutex
	open map[string]*Session
}

func (r *Sessions) Open(userID string) *Session {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	s := NewSession(userID, now)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open == nil {
		r.open = map[string]*Session{}
	}
	r.open[s.ID] = s
	return s
}

func (r *Sessions) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.open[id]
	return s, ok
}

// Close drops the session and reports whether it was open.
func (r *Sessions) Close(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.open[id]; !ok {
		return false
	}
	delete(r.open, id)
	return true
}

func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.open)
}
