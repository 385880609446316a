package session

import (
	"sync"
	"time"

	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry maps session ids to live sessions
type Registry struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		logger:   util.Component("session"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns a live session and marks it as seen
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

// Resolve returns the session for id, creating a fresh one with a new id
// when id is unknown. created reports whether a new session was made.
func (r *Registry) Resolve(id string) (s *Session, created bool, err error) {
	if id != "" {
		if s, ok := r.Get(id); ok {
			return s, false, nil
		}
	}

	s, err = r.build(uuid.New().String())
	if err != nil {
		return nil, false, err
	}
	s.touch(r.now())

	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	util.ActiveSessions.Set(float64(n))
	r.logger.Debug("Session created", zap.String("session_id", s.ID))
	return s, true, nil
}

// Remove drops a session
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	util.ActiveSessions.Set(float64(n))
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Reap removes sessions idle for at least maxIdle and returns how many went.
func (r *Registry) Reap(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		if !s.LastSeen().After(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	util.ActiveSessions.Set(float64(n))
	if removed > 0 {
		r.logger.Info("Reaped idle sessions", zap.Int("removed", removed), zap.Int("remaining", n))
	}
	return removed
}
