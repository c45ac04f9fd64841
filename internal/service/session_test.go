package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsend/outreach-server-go/internal/model"
)

func TestSessionManager(t *testing.T) {
	t.Run("loads the queue on first use", func(t *testing.T) {
		repo := &fakeContactRepo{}
		seedContact(repo, "user-1", "Alice", model.StatusPending)
		m := NewSessionManager(repo, &fakeEnqueuer{})

		err := m.With(context.Background(), "user-1", func(q *QueueSession) error {
			require.NotNil(t, q.Current())
			assert.Equal(t, "Alice", q.Current().Name)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("reuses the same session across calls", func(t *testing.T) {
		repo := &fakeContactRepo{}
		seedContact(repo, "user-1", "Alice", model.StatusPending)
		seedContact(repo, "user-1", "Bob", model.StatusPending)
		m := NewSessionManager(repo, &fakeEnqueuer{})

		require.NoError(t, m.With(context.Background(), "user-1", func(q *QueueSession) error {
			return q.Skip(context.Background())
		}))

		require.NoError(t, m.With(context.Background(), "user-1", func(q *QueueSession) error {
			assert.Equal(t, "Bob", q.Current().Name)
			return nil
		}))
	})

	t.Run("sessions are isolated per user", func(t *testing.T) {
		repo := &fakeContactRepo{}
		seedContact(repo, "user-1", "Mine", model.StatusPending)
		seedContact(repo, "user-2", "Theirs", model.StatusPending)
		m := NewSessionManager(repo, &fakeEnqueuer{})

		require.NoError(t, m.With(context.Background(), "user-1", func(q *QueueSession) error {
			assert.Equal(t, "Mine", q.Current().Name)
			return nil
		}))
		require.NoError(t, m.With(context.Background(), "user-2", func(q *QueueSession) error {
			assert.Equal(t, "Theirs", q.Current().Name)
			return nil
		}))
	})

	t.Run("reload refreshes the snapshot", func(t *testing.T) {
		repo := &fakeContactRepo{}
		m := NewSessionManager(repo, &fakeEnqueuer{})

		require.NoError(t, m.With(context.Background(), "user-1", func(q *QueueSession) error {
			assert.Nil(t, q.Current())
			return nil
		}))

		seedContact(repo, "user-1", "Late arrival", model.StatusPending)
		require.NoError(t, m.Reload(context.Background(), "user-1"))

		require.NoError(t, m.With(context.Background(), "user-1", func(q *QueueSession) error {
			require.NotNil(t, q.Current())
			assert.Equal(t, "Late arrival", q.Current().Name)
			return nil
		}))
	})

	t.Run("concurrent access to one session is serialized", func(t *testing.T) {
		repo := &fakeContactRepo{}
		for i := 0; i < 20; i++ {
			seedContact(repo, "user-1", "Contact", model.StatusPending)
		}
		m := NewSessionManager(repo, &fakeEnqueuer{})

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.With(context.Background(), "user-1", func(q *QueueSession) error {
					if q.Current() != nil {
						return q.Skip(context.Background())
					}
					return nil
				})
			}()
		}
		wg.Wait()

		require.NoError(t, m.With(context.Background(), "user-1", func(q *QueueSession) error {
			assert.Equal(t, 0, q.RemainingCount())
			return nil
		}))
	})
}
