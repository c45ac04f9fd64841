package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// AppBaseURL is where browsers land after the OAuth callback redirect.
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	HubSpotClientID     string `env:"HUBSPOT_CLIENT_ID"`
	HubSpotClientSecret string `env:"HUBSPOT_CLIENT_SECRET"`
	HubSpotRedirectURI  string `env:"HUBSPOT_REDIRECT_URI"`
	HubSpotAuthURL      string `env:"HUBSPOT_AUTH_URL" envDefault:"https://app.hubspot.com/oauth/authorize"`
	HubSpotAPIBase      string `env:"HUBSPOT_API_BASE" envDefault:"https://api.hubapi.com"`
	HubSpotMaxContacts  int    `env:"HUBSPOT_MAX_CONTACTS" envDefault:"1000"`

	EncryptionKey string `env:"ENCRYPTION_KEY"`

	TokenExpiryBufferSeconds int `env:"TOKEN_EXPIRY_BUFFER_SECONDS" envDefault:"300"`
	GatewayTimeoutSeconds    int `env:"GATEWAY_TIMEOUT_SECONDS" envDefault:"20"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) TokenExpiryBuffer() time.Duration {
	return time.Duration(c.TokenExpiryBufferSeconds) * time.Second
}

func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutSeconds) * time.Second
}

func (c *Config) HubSpotConfigured() bool {
	return c.HubSpotClientID != "" && c.HubSpotClientSecret != "" && c.HubSpotRedirectURI != ""
}

func (c *Config) Validate(isProduction bool) error {
	if c.EncryptionKey != "" {
		key, err := hex.DecodeString(c.EncryptionKey)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("ENCRYPTION_KEY must be 64 hex chars (generate with: openssl rand -hex 32)")
		}
	}

	if isProduction {
		if c.EncryptionKey == "" {
			return fmt.Errorf("ENCRYPTION_KEY is required in production: OAuth tokens must be encrypted at rest")
		}
		if !c.HubSpotConfigured() {
			log.Warn().Msg("HubSpot OAuth credentials not set: CRM integration disabled")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
