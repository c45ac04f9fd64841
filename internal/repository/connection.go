package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flowsend/outreach-server-go/internal/model"
)

type ConnectionRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Connection, error)
	Upsert(ctx context.Context, params model.UpsertConnectionParams) (*model.Connection, error)
	UpdateTokens(ctx context.Context, userID, accessTokenEncrypted, refreshTokenEncrypted string, expiresAt time.Time) error
	Delete(ctx context.Context, userID string) error
}

type connectionRepo struct {
	db *sqlx.DB
}

func NewConnectionRepository(db *sqlx.DB) ConnectionRepository {
	return &connectionRepo{db: db}
}

func (r *connectionRepo) FindByUserID(ctx context.Context, userID string) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.GetContext(ctx, &conn, `
		SELECT * FROM hubspot_connections
		WHERE user_id = $1
	`, userID)
	return HandleNotFound(&conn, err)
}

// Upsert replaces any existing grant for the user: a user has exactly one connection.
func (r *connectionRepo) Upsert(ctx context.Context, params model.UpsertConnectionParams) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.GetContext(ctx, &conn, `
		INSERT INTO hubspot_connections (user_id, portal_id, access_token_encrypted, refresh_token_encrypted, token_expires_at, scopes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			portal_id = EXCLUDED.portal_id,
			access_token_encrypted = EXCLUDED.access_token_encrypted,
			refresh_token_encrypted = EXCLUDED.refresh_token_encrypted,
			token_expires_at = EXCLUDED.token_expires_at,
			scopes = EXCLUDED.scopes,
			connected_at = NOW(),
			updated_at = NOW()
		RETURNING *
	`, params.UserID, params.PortalID, params.AccessTokenEncrypted,
		params.RefreshTokenEncrypted, params.TokenExpiresAt, pq.StringArray(params.Scopes))
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) UpdateTokens(ctx context.Context, userID, accessTokenEncrypted, refreshTokenEncrypted string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE hubspot_connections
		SET access_token_encrypted = $2, refresh_token_encrypted = $3, token_expires_at = $4, updated_at = NOW()
		WHERE user_id = $1
	`, userID, accessTokenEncrypted, refreshTokenEncrypted, expiresAt)
	return err
}

func (r *connectionRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM hubspot_connections WHERE user_id = $1`, userID)
	return err
}
