package model

import "time"

// Account is an authenticated API user. Requests carry a bearer token whose
// SHA-256 hash is matched against APITokenHash.
type Account struct {
	ID              string    `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	APITokenHash    string    `db:"api_token_hash" json:"-"`
	RateLimitPerMin int       `db:"rate_limit_per_min" json:"rateLimitPerMin"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

type CreateAccountParams struct {
	Email           string
	APITokenHash    string
	RateLimitPerMin int
}
