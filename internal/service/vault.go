package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/flowsend/outreach-server-go/internal/errors"
	"github.com/flowsend/outreach-server-go/internal/hubspot"
	"github.com/flowsend/outreach-server-go/internal/model"
	"github.com/flowsend/outreach-server-go/internal/repository"
	"github.com/flowsend/outreach-server-go/internal/util"
)

// TokenRefresher trades a refresh token for a fresh token pair.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*hubspot.TokenData, error)
}

// TokenVault owns encrypted OAuth credentials. Plaintext tokens exist only in
// memory, immediately around the encrypt/decrypt calls.
type TokenVault struct {
	conns         repository.ConnectionRepository
	refresher     TokenRefresher
	encryptionKey string
	buffer        time.Duration
	now           func() time.Time
}

func NewTokenVault(
	conns repository.ConnectionRepository,
	refresher TokenRefresher,
	encryptionKey string,
	buffer time.Duration,
) *TokenVault {
	return &TokenVault{
		conns:         conns,
		refresher:     refresher,
		encryptionKey: encryptionKey,
		buffer:        buffer,
		now:           time.Now,
	}
}

// GetValidToken returns a usable access token for the user, refreshing
// proactively when the stored token is within the expiry buffer. It returns
// "" when the user has no connection or the refresh fails; callers treat both
// as "not connected", never as a fatal error, because the grant may have been
// legitimately revoked.
func (v *TokenVault) GetValidToken(ctx context.Context, userID string) (string, error) {
	conn, err := v.conns.FindByUserID(ctx, userID)
	if err != nil {
		return "", apperrors.Database(err)
	}
	if conn == nil {
		return "", nil
	}

	// The buffer absorbs the round-trip latency of token-dependent requests:
	// without it a token could expire between validation and use.
	if conn.TokenExpiresAt.Sub(v.now()) > v.buffer {
		token, err := util.Decrypt(v.encryptionKey, conn.AccessTokenEncrypted)
		if err != nil {
			return "", fmt.Errorf("decrypt access token: %w", err)
		}
		return token, nil
	}

	refreshToken, err := util.Decrypt(v.encryptionKey, conn.RefreshTokenEncrypted)
	if err != nil {
		return "", fmt.Errorf("decrypt refresh token: %w", err)
	}

	tokens, err := v.refresher.RefreshToken(ctx, refreshToken)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("token refresh failed, treating connection as disconnected")
		return "", nil
	}

	accessEnc, err := util.Encrypt(v.encryptionKey, tokens.AccessToken)
	if err != nil {
		return "", fmt.Errorf("encrypt access token: %w", err)
	}
	refreshEnc, err := util.Encrypt(v.encryptionKey, tokens.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("encrypt refresh token: %w", err)
	}

	if err := v.conns.UpdateTokens(ctx, userID, accessEnc, refreshEnc, tokens.ExpiresAt); err != nil {
		return "", apperrors.Database(err)
	}

	log.Info().Str("userId", userID).Time("expiresAt", tokens.ExpiresAt).Msg("access token refreshed")

	return tokens.AccessToken, nil
}

// UpsertConnection encrypts and stores a fresh token pair, replacing any
// previous grant for the user. The portal id stays a "pending" placeholder
// until a resolution call exists.
func (v *TokenVault) UpsertConnection(ctx context.Context, userID string, tokens *hubspot.TokenData, scopes []string) (*model.Connection, error) {
	accessEnc, err := util.Encrypt(v.encryptionKey, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	refreshEnc, err := util.Encrypt(v.encryptionKey, tokens.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt refresh token: %w", err)
	}

	conn, err := v.conns.Upsert(ctx, model.UpsertConnectionParams{
		UserID:                userID,
		PortalID:              "pending",
		AccessTokenEncrypted:  accessEnc,
		RefreshTokenEncrypted: refreshEnc,
		TokenExpiresAt:        tokens.ExpiresAt,
		Scopes:                scopes,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return conn, nil
}

// Disconnect removes the user's stored grant.
func (v *TokenVault) Disconnect(ctx context.Context, userID string) error {
	if err := v.conns.Delete(ctx, userID); err != nil {
		return apperrors.Database(err)
	}
	log.Info().Str("userId", userID).Msg("hubspot connection removed")
	return nil
}

// Status reports the redacted connection state without touching tokens.
func (v *TokenVault) Status(ctx context.Context, userID string) (*model.ConnectionInfo, error) {
	conn, err := v.conns.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if conn == nil {
		return &model.ConnectionInfo{
			Status: model.ConnectionDisconnected,
			Scopes: []string{},
		}, nil
	}

	status := model.ConnectionConnected
	if !conn.TokenExpiresAt.After(v.now()) {
		status = model.ConnectionExpired
	}

	return &model.ConnectionInfo{
		Status:      status,
		PortalID:    &conn.PortalID,
		ConnectedAt: &conn.ConnectedAt,
		Scopes:      conn.Scopes,
	}, nil
}
