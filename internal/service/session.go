package service

import (
	"context"
	"sync"

	"github.com/flowsend/outreach-server-go/internal/repository"
)

type sessionEntry struct {
	mu     sync.Mutex
	queue  *QueueSession
	loaded bool
}

// SessionManager hands out one QueueSession per user and serializes all
// access to it. The QueueSession itself is a single-actor state machine;
// the per-session lock here is what makes it safe to drive from concurrent
// HTTP requests.
type SessionManager struct {
	repo repository.ContactRepository
	sync SyncEnqueuer

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func NewSessionManager(repo repository.ContactRepository, sync SyncEnqueuer) *SessionManager {
	return &SessionManager{
		repo:     repo,
		sync:     sync,
		sessions: make(map[string]*sessionEntry),
	}
}

func (m *SessionManager) entry(userID string) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[userID]
	if !ok {
		e = &sessionEntry{queue: NewQueueSession(userID, m.repo, m.sync)}
		m.sessions[userID] = e
	}
	return e
}

// With runs fn against the user's queue session while holding its lock.
// The session is loaded from the store on first use.
func (m *SessionManager) With(ctx context.Context, userID string, fn func(*QueueSession) error) error {
	e := m.entry(userID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		if err := e.queue.Load(ctx); err != nil {
			return err
		}
		e.loaded = true
	}

	return fn(e.queue)
}

// Reload discards the cached snapshot and reloads from the store.
func (m *SessionManager) Reload(ctx context.Context, userID string) error {
	e := m.entry(userID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.queue.Load(ctx); err != nil {
		return err
	}
	e.loaded = true
	return nil
}
