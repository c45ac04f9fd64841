package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowsend/outreach-server-go/internal/config"
	apperrors "github.com/flowsend/outreach-server-go/internal/errors"
	"github.com/flowsend/outreach-server-go/internal/hubspot"
	"github.com/flowsend/outreach-server-go/internal/model"
	"github.com/flowsend/outreach-server-go/internal/util"
)

var ErrNotConfigured = errors.New("hubspot integration not configured")

// CodeExchanger is the gateway surface the OAuth flow needs.
type CodeExchanger interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*hubspot.TokenData, error)
}

// OAuthStateStore persists single-use anti-forgery state tokens.
type OAuthStateStore interface {
	StoreOAuthState(ctx context.Context, state, userID string, ttl time.Duration) error
	ConsumeOAuthState(ctx context.Context, state string) (string, error)
}

// OAuthService runs the HubSpot connect flow: state issuance, callback
// verification, code exchange, and credential storage via the vault.
type OAuthService struct {
	cfg      *config.Config
	exchange CodeExchanger
	vault    *TokenVault
	states   OAuthStateStore
}

func NewOAuthService(cfg *config.Config, exchange CodeExchanger, vault *TokenVault, states OAuthStateStore) *OAuthService {
	return &OAuthService{
		cfg:      cfg,
		exchange: exchange,
		vault:    vault,
		states:   states,
	}
}

// Connect issues a 32-byte random state, records it against the user, and
// returns the authorization URL the browser should visit.
func (s *OAuthService) Connect(ctx context.Context, userID string) (string, error) {
	if !s.cfg.HubSpotConfigured() {
		return "", ErrNotConfigured
	}

	state, err := util.GenerateToken()
	if err != nil {
		return "", err
	}

	if err := s.states.StoreOAuthState(ctx, state, userID, config.OAuthStateTTL); err != nil {
		return "", err
	}

	return s.exchange.AuthorizationURL(state), nil
}

// HandleCallback consumes the state (single use), exchanges the code, and
// stores the encrypted token pair. Returns the user the grant belongs to.
func (s *OAuthService) HandleCallback(ctx context.Context, code, state string) (string, error) {
	userID, err := s.states.ConsumeOAuthState(ctx, state)
	if err != nil {
		return "", err
	}
	if userID == "" {
		return "", apperrors.InvalidOAuthState()
	}

	tokens, err := s.exchange.ExchangeCode(ctx, code)
	if err != nil {
		return "", err
	}

	if _, err := s.vault.UpsertConnection(ctx, userID, tokens, hubspot.RequiredScopes); err != nil {
		return "", err
	}

	log.Info().Str("userId", userID).Msg("hubspot connected")
	return userID, nil
}

// Status reports the connection state for the user.
func (s *OAuthService) Status(ctx context.Context, userID string) (*model.ConnectionInfo, error) {
	return s.vault.Status(ctx, userID)
}

// Disconnect removes the user's grant.
func (s *OAuthService) Disconnect(ctx context.Context, userID string) error {
	return s.vault.Disconnect(ctx, userID)
}
