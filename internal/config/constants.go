package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const SyncRetryJobInterval = 5 * time.Minute

// OAuth state tokens are single use and short lived
const OAuthStateTTL = 10 * time.Minute

// HubSpot contacts listing page size (API maximum)
const HubSpotPageSize = 100

// Import requests are capped per call
const MaxImportBatch = 500

// Default rate limiting
const DefaultRateLimitPerMin = 60
