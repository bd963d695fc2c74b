// Package session keeps per-visitor form controllers in memory, keyed by a
// random id carried in a cookie.
package session

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
)

// CookieName is the cookie carrying the session id.
const CookieName = "carbonclicks_session"

// DefaultTTL is how long an untouched session survives.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session: not found")

// Builder creates the controller for a form the first time a session uses it.
type Builder func(formID string) (*submission.Controller, error)

// Session holds one visitor's controllers.
type Session struct {
	ID string

	mu          sync.Mutex
	controllers map[string]*submission.Controller
	lastSeen    time.Time
}

// Controller returns the session's controller for formID, building it on
// first use.
func (s *Session) Controller(formID string, build Builder) (*submission.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.controllers[formID]; ok {
		return c, nil
	}
	c, err := build(formID)
	if err != nil {
		return nil, err
	}
	s.controllers[formID] = c
	return c, nil
}

// Forms lists the form ids this session has touched.
func (s *Session) Forms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.controllers))
	for id := range s.controllers {
		out = append(out, id)
	}
	return out
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the idle lifetime of sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(s *Store) {
		s.secure = secure
	}
}

// Store is an in-memory session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	secure   bool
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create starts a new session.
func (s *Store) Create() *Session {
	sess := &Session{
		ID:          uuid.NewString(),
		controllers: make(map[string]*submission.Controller),
		lastSeen:    s.now(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns a live session and refreshes its idle timer.
func (s *Store) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	now := s.now()
	sess.mu.Lock()
	expired := now.Sub(sess.lastSeen) > s.ttl
	if !expired {
		sess.lastSeen = now
	}
	sess.mu.Unlock()
	if expired {
		s.Delete(id)
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete forgets a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len reports the number of stored sessions, expired ones included until the
// next Sweep.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		expired := now.Sub(sess.lastSeen) > s.ttl
		sess.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// FromRequest resolves the session named by the request cookie.
func (s *Store) FromRequest(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.Get(cookie.Value)
}

// Ensure returns the request's session, creating one and setting the cookie
// when the request has none.
func (s *Store) Ensure(w http.ResponseWriter, r *http.Request) *Session {
	if sess, err := s.FromRequest(r); err == nil {
		return sess
	}
	sess := s.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl / time.Second),
	})
	return sess
}
