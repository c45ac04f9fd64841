package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowsend/outreach-server-go/internal/config"
	apperrors "github.com/flowsend/outreach-server-go/internal/errors"
)

// Client talks to the HubSpot REST API. Every call carries a bounded timeout
// so fire-and-forget sync tasks cannot stall indefinitely.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	authURL      string
	apiBase      string
	maxContacts  int
	http         *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		clientID:     cfg.HubSpotClientID,
		clientSecret: cfg.HubSpotClientSecret,
		redirectURI:  cfg.HubSpotRedirectURI,
		authURL:      cfg.HubSpotAuthURL,
		apiBase:      strings.TrimRight(cfg.HubSpotAPIBase, "/"),
		maxContacts:  cfg.HubSpotMaxContacts,
		http:         &http.Client{Timeout: cfg.GatewayTimeout()},
	}
}

// AuthorizationURL builds the OAuth redirect URL. The state token is opaque
// here; the caller generates it with crypto/rand and verifies it on callback.
func (c *Client) AuthorizationURL(state string) string {
	params := url.Values{
		"client_id":    {c.clientID},
		"redirect_uri": {c.redirectURI},
		"scope":        {strings.Join(RequiredScopes, " ")},
		"state":        {state},
	}
	return c.authURL + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenData, error) {
	return c.requestTokens(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"redirect_uri":  {c.redirectURI},
		"code":          {code},
	})
}

// RefreshToken trades a refresh token for a fresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenData, error) {
	return c.requestTokens(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {refreshToken},
	})
}

func (c *Client) requestTokens(ctx context.Context, data url.Values) (*TokenData, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.apiBase+"/oauth/v1/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Gateway("HubSpot token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("HubSpot token request failed")
		return nil, apperrors.OAuthExchange(remoteErrorMessage(body, "Failed to exchange tokens"))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	return &TokenData{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

// remoteErrorMessage prefers the remote-provided description over a generic fallback.
func remoteErrorMessage(body []byte, fallback string) string {
	var remote oauthErrorResponse
	if err := json.Unmarshal(body, &remote); err == nil {
		switch {
		case remote.ErrorDescription != "":
			return remote.ErrorDescription
		case remote.Error != "":
			return remote.Error
		case remote.Message != "":
			return remote.Message
		}
	}
	return fallback
}
