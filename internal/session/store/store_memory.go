// Package store persists console sessions.
package store

import (
	"context"
	"sync"
	"time"

	"insureadmin/internal/session"
	id "insureadmin/pkg/domain"
	"insureadmin/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in process. Expired sessions are dropped
// lazily on lookup.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*session.Session
	now      func() time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[id.SessionID]*session.Session),
		now:      time.Now,
	}
}

func (s *InMemoryStore) Save(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, sessionID id.SessionID) (*session.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if sess.IsExpired(s.now()) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return nil, sentinel.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Count reports live sessions, expired ones included until next lookup.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
