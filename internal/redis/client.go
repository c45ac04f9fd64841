package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

func oauthStateKey(state string) string {
	return fmt.Sprintf("hubspot:oauth_state:%s", state)
}

// StoreOAuthState records an anti-forgery state token awaiting callback.
func (c *Client) StoreOAuthState(ctx context.Context, state, userID string, ttl time.Duration) error {
	return c.Set(ctx, oauthStateKey(state), userID, ttl).Err()
}

// ConsumeOAuthState resolves a state token to its user id and deletes it,
// making every state single use. Returns "" when the state is unknown or expired.
func (c *Client) ConsumeOAuthState(ctx context.Context, state string) (string, error) {
	userID, err := c.GetDel(ctx, oauthStateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
