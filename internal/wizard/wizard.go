// Package wizard tracks the linear analysis flow a user walks through, from
// photo upload to rendered results.
package wizard

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stylisthq/stylist-server/internal/genai"
)

// State names a step of the flow.
type State string

// Flow states in walk order.
const (
	StateUpload             State = "upload"
	StatePreviewPreferences State = "preview_preferences"
	StatePreviewScope       State = "preview_scope"
	StateAnalyzing          State = "analyzing"
	StateResults            State = "results"
)

// DefaultTTL is how long an idle session survives before eviction.
const DefaultTTL = 30 * time.Minute

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = fmt.Errorf("wizard: session not found")

// Session is one user's walk through the flow.
type Session struct {
	ID     string
	UserID uint64
	State  State

	Image       string // Base64 source photo.
	Mode        genai.Mode
	Preferences genai.Preferences

	Analysis        *genai.Analysis
	Recommendations []genai.Recommendation

	touchedAt time.Time
}

// Store keeps sessions in memory with TTL eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	nowFn    func() time.Time
}

// NewStore builds a session store. A non-positive ttl uses DefaultTTL.
func NewStore(ttl time.Duration, nowFn func() time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		nowFn:    nowFn,
	}
}

// Begin opens a fresh session in the upload state and returns a snapshot of it.
func (s *Store) Begin(userID uint64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		State:     StateUpload,
		touchedAt: s.nowFn(),
	}
	s.sessions[session.ID] = session
	return *session
}

// Get returns a snapshot of the session, or ErrSessionNotFound.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, errGet := s.getLocked(id)
	if errGet != nil {
		return Session{}, errGet
	}
	return *session, nil
}

// AttachImage stores the uploaded photo and advances to preference selection.
func (s *Store) AttachImage(id, image string, mode genai.Mode) (Session, error) {
	return s.transition(id, StateUpload, func(session *Session) {
		session.Image = image
		session.Mode = mode
		session.State = StatePreviewPreferences
	})
}

// SetPreferences records season and occasion and advances to scope selection.
func (s *Store) SetPreferences(id, season, occasion string) (Session, error) {
	return s.transition(id, StatePreviewPreferences, func(session *Session) {
		session.Preferences.Season = season
		session.Preferences.Occasion = occasion
		session.State = StatePreviewScope
	})
}

// SetScope records the store scope and moves the session into analysis.
func (s *Store) SetScope(id, scope string) (Session, error) {
	return s.transition(id, StatePreviewScope, func(session *Session) {
		session.Preferences.StoreScope = scope
		session.State = StateAnalyzing
	})
}

// Complete attaches the analysis outcome and lands the session on results.
func (s *Store) Complete(id string, analysis *genai.Analysis, recs []genai.Recommendation) (Session, error) {
	return s.transition(id, StateAnalyzing, func(session *Session) {
		session.Analysis = analysis
		session.Recommendations = recs
		session.State = StateResults
	})
}

// Reset sends the session back to upload, discarding the photo, preferences
// and any partial results. Used on analysis failure.
func (s *Store) Reset(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, errGet := s.getLocked(id)
	if errGet != nil {
		return Session{}, errGet
	}

	session.State = StateUpload
	session.Image = ""
	session.Mode = ""
	session.Preferences = genai.Preferences{}
	session.Analysis = nil
	session.Recommendations = nil
	session.touchedAt = s.nowFn()
	return *session, nil
}

// Drop removes the session outright.
func (s *Store) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *Store) transition(id string, from State, apply func(*Session)) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, errGet := s.getLocked(id)
	if errGet != nil {
		return Session{}, errGet
	}
	if session.State != from {
		return Session{}, fmt.Errorf("wizard: cannot advance from %q, expected %q", session.State, from)
	}

	apply(session)
	session.touchedAt = s.nowFn()
	return *session, nil
}

func (s *Store) getLocked(id string) (*Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.nowFn().Sub(session.touchedAt) > s.ttl {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) sweepLocked() {
	now := s.nowFn()
	for id, session := range s.sessions {
		if now.Sub(session.touchedAt) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
