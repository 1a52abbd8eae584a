package session

import (
	"context"
	"sync"
	"time"

	"github.com/erp/labels/internal/domain/labeling"
	"github.com/erp/labels/internal/domain/shared"
)

// InMemoryStore implements labeling.SessionStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*labeling.PrintSession
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// InMemoryOption configures an InMemoryStore
type InMemoryOption func(*InMemoryStore)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// NewInMemoryStore creates the store and starts a background goroutine that
// drops expired sessions
func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[string]*labeling.PrintSession),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// Open stores a copy of the session
func (s *InMemoryStore) Open(ctx context.Context, session *labeling.PrintSession, ttl time.Duration) error {
	if session == nil || session.ID == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Print session needs an id")
	}
	stored := *session
	stored.ExpiresAt = s.now().Add(ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = &stored
	return nil
}

// Get returns a copy of a live session
func (s *InMemoryStore) Get(ctx context.Context, id string) (*labeling.PrintSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.sessions[id]
	if !ok || stored.Expired(s.now()) {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Print session not found or expired")
	}
	out := *stored
	return &out, nil
}

// Close removes the session
func (s *InMemoryStore) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Shutdown stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryStore) Shutdown() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, stored := range s.sessions {
		if stored.Expired(now) {
			delete(s.sessions, id)
		}
	}
}

// Size returns the number of stored sessions, expired ones included
func (s *InMemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Ensure InMemoryStore implements SessionStore
var _ labeling.SessionStore = (*InMemoryStore)(nil)
