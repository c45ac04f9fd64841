package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowsend/outreach-server-go/internal/config"
	apperrors "github.com/flowsend/outreach-server-go/internal/errors"
	"github.com/flowsend/outreach-server-go/internal/hubspot"
)

type fakeExchanger struct {
	tokens   *hubspot.TokenData
	err      error
	lastCode string
}

func (f *fakeExchanger) AuthorizationURL(state string) string {
	return "https://auth.example.com/?state=" + state
}

func (f *fakeExchanger) ExchangeCode(ctx context.Context, code string) (*hubspot.TokenData, error) {
	f.lastCode = code
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

type fakeStateStore struct {
	states map[string]string
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]string)}
}

func (f *fakeStateStore) StoreOAuthState(ctx context.Context, state, userID string, ttl time.Duration) error {
	f.states[state] = userID
	return nil
}

func (f *fakeStateStore) ConsumeOAuthState(ctx context.Context, state string) (string, error) {
	userID := f.states[state]
	delete(f.states, state)
	return userID, nil
}

func configuredOAuth(t *testing.T, exchange CodeExchanger, states OAuthStateStore) (*OAuthService, *fakeConnectionRepo) {
	t.Helper()
	cfg := &config.Config{
		HubSpotClientID:     "client",
		HubSpotClientSecret: "secret",
		HubSpotRedirectURI:  "https://app.example.com/api/hubspot/callback",
	}
	conns := &fakeConnectionRepo{}
	vault := NewTokenVault(conns, &fakeRefresher{}, testEncryptionKey, 5*time.Minute)
	return NewOAuthService(cfg, exchange, vault, states), conns
}

func TestOAuthConnect(t *testing.T) {
	t.Run("fails when the integration is not configured", func(t *testing.T) {
		svc := NewOAuthService(&config.Config{}, &fakeExchanger{}, nil, newFakeStateStore())

		_, err := svc.Connect(context.Background(), "user-1")

		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("stores a state token and returns the authorization url", func(t *testing.T) {
		states := newFakeStateStore()
		svc, _ := configuredOAuth(t, &fakeExchanger{}, states)

		authURL, err := svc.Connect(context.Background(), "user-1")
		require.NoError(t, err)

		require.Len(t, states.states, 1)
		for state, userID := range states.states {
			assert.Equal(t, "user-1", userID)
			assert.Contains(t, authURL, state)
			assert.Len(t, state, 64)
		}
	})
}

func TestOAuthHandleCallback(t *testing.T) {
	freshTokens := &hubspot.TokenData{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(6 * time.Hour),
	}

	t.Run("rejects an unknown state", func(t *testing.T) {
		svc, _ := configuredOAuth(t, &fakeExchanger{tokens: freshTokens}, newFakeStateStore())

		_, err := svc.HandleCallback(context.Background(), "code", "bogus-state")

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeOAuthState, appErr.Code)
	})

	t.Run("a state is single use", func(t *testing.T) {
		states := newFakeStateStore()
		exchange := &fakeExchanger{tokens: freshTokens}
		svc, _ := configuredOAuth(t, exchange, states)

		_, err := svc.Connect(context.Background(), "user-1")
		require.NoError(t, err)
		var state string
		for s := range states.states {
			state = s
		}

		_, err = svc.HandleCallback(context.Background(), "code", state)
		require.NoError(t, err)

		_, err = svc.HandleCallback(context.Background(), "code", state)
		require.Error(t, err)
	})

	t.Run("exchanges the code and stores the grant", func(t *testing.T) {
		states := newFakeStateStore()
		states.states["state-1"] = "user-1"
		exchange := &fakeExchanger{tokens: freshTokens}
		svc, conns := configuredOAuth(t, exchange, states)

		userID, err := svc.HandleCallback(context.Background(), "auth-code", "state-1")
		require.NoError(t, err)

		assert.Equal(t, "user-1", userID)
		assert.Equal(t, "auth-code", exchange.lastCode)
		require.NotNil(t, conns.conn)
		assert.Equal(t, "user-1", conns.conn.UserID)
		assert.NotEqual(t, "access", conns.conn.AccessTokenEncrypted)
		assert.ElementsMatch(t, hubspot.RequiredScopes, []string(conns.conn.Scopes))
	})

	t.Run("exchange failure surfaces without storing a grant", func(t *testing.T) {
		states := newFakeStateStore()
		states.states["state-1"] = "user-1"
		exchange := &fakeExchanger{err: apperrors.OAuthExchange("invalid code")}
		svc, conns := configuredOAuth(t, exchange, states)

		_, err := svc.HandleCallback(context.Background(), "bad-code", "state-1")

		require.Error(t, err)
		assert.Nil(t, conns.conn)
	})
}
