package model

import (
	"time"

	"github.com/lib/pq"
)

// Connection is a user's HubSpot OAuth grant. At most one row per user;
// token columns hold AES-GCM ciphertext, never plaintext.
type Connection struct {
	ID                    string         `db:"id" json:"id"`
	UserID                string         `db:"user_id" json:"-"`
	PortalID              string         `db:"portal_id" json:"portalId"`
	AccessTokenEncrypted  string         `db:"access_token_encrypted" json:"-"`
	RefreshTokenEncrypted string         `db:"refresh_token_encrypted" json:"-"`
	TokenExpiresAt        time.Time      `db:"token_expires_at" json:"-"`
	Scopes                pq.StringArray `db:"scopes" json:"scopes"`
	ConnectedAt           time.Time      `db:"connected_at" json:"connectedAt"`
	UpdatedAt             time.Time      `db:"updated_at" json:"-"`
}

type UpsertConnectionParams struct {
	UserID                string
	PortalID              string
	AccessTokenEncrypted  string
	RefreshTokenEncrypted string
	TokenExpiresAt        time.Time
	Scopes                []string
}

// ConnectionStatus is the connection state reported to clients.
type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionExpired      ConnectionStatus = "expired"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// ConnectionInfo is the redacted status view; it never carries tokens.
type ConnectionInfo struct {
	Status      ConnectionStatus `json:"status"`
	PortalID    *string          `json:"portalId"`
	ConnectedAt *time.Time       `json:"connectedAt"`
	Scopes      []string         `json:"scopes"`
}
