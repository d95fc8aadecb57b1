// ABOUTME: In-memory visitor session store with TTL cleanup and capacity limits.
// ABOUTME: Each session owns one visualizer.Controller and the Hub streaming its events; eviction closes both.
package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/modelselector/visualizer"
)

// Session is one browser visitor.
type Session struct {
	ID         string
	Controller *visualizer.Controller
	Hub        *Hub
	CreatedAt  time.Time

	lastAccess time.Time // guarded by SessionStore.mu
}

// close tears down the controller before the hub so the closed event still
// reaches open streams.
func (s *Session) close() {
	s.Controller.Close()
	s.Hub.Close()
}

// ControllerFactory builds the controller of a new session. handler must be
// installed as the controller's EventHandler.
type ControllerFactory func(handler visualizer.EventHandler) (*visualizer.Controller, error)

// SessionStore holds active sessions.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
	factory     ControllerFactory
	md          *Markdown
	onEvent     func(visualizer.Event)
	now         func() time.Time
}

// NewSessionStore creates a session store. onEvent, if set, sees every
// controller event of every session.
func NewSessionStore(maxSessions int, ttl time.Duration, factory ControllerFactory, md *Markdown, onEvent func(visualizer.Event)) *SessionStore {
	if maxSessions <= 0 {
		maxSessions = 200
	}
	return &SessionStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
		factory:     factory,
		md:          md,
		onEvent:     onEvent,
		now:         time.Now,
	}
}

// Create starts a new session, evicting the least recently used one when
// the store is full.
func (s *SessionStore) Create() (*Session, error) {
	hub := NewHub()
	ctrl, err := s.factory(func(evt visualizer.Event) {
		hub.Publish(controllerEventToSSE(evt, s.md))
		if s.onEvent != nil {
			s.onEvent(evt)
		}
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &Session{
		ID:         uuid.New().String(),
		Controller: ctrl,
		Hub:        hub,
		CreatedAt:  now,
		lastAccess: now,
	}

	var evicted *Session
	s.mu.Lock()
	// Check capacity
	if len(s.sessions) >= s.maxSessions {
		// Evict least recently used session
		var oldestID string
		var oldestTime time.Time
		for id, existing := range s.sessions {
			if oldestTime.IsZero() || existing.lastAccess.Before(oldestTime) {
				oldestID = id
				oldestTime = existing.lastAccess
			}
		}
		evicted = s.sessions[oldestID]
		delete(s.sessions, oldestID)
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if evicted != nil {
		evicted.close()
	}
	return sess, nil
}

// Get retrieves a session by ID and updates its last access time.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	sess.lastAccess = s.now()
	return sess, true
}

// Len returns the number of active sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup closes and removes sessions idle longer than the TTL. It returns
// how many were removed.
func (s *SessionStore) Cleanup() int {
	cutoff := s.now().Add(-s.ttl)

	var expired []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastAccess.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.close()
	}
	return len(expired)
}

// StartCleanup starts a background cleanup goroutine and returns a stop function.
func (s *SessionStore) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// CloseAll closes and removes every session.
func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		all = append(all, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, sess := range all {
		sess.close()
	}
}
