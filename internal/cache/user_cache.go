package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fieldlog/api/internal/models"
)

// UserCache keeps sanitized user records so the auth gate does not hit
// Postgres on every request. Entries are removed when a user is deleted,
// which keeps tokens for deleted users failing immediately. A nil client
// disables caching entirely.
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUserCache(client *redis.Client, ttl time.Duration) *UserCache {
	return &UserCache{client: client, ttl: ttl}
}

type cachedUser struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

func userKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func (c *UserCache) Get(ctx context.Context, id string) (models.User, bool) {
	if c == nil || c.client == nil {
		return models.User{}, false
	}

	raw, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		return models.User{}, false
	}

	var cached cachedUser
	if err := json.Unmarshal(raw, &cached); err != nil {
		return models.User{}, false
	}

	return models.User{
		ID:        cached.ID,
		Name:      cached.Name,
		Email:     cached.Email,
		Role:      cached.Role,
		CreatedAt: cached.CreatedAt,
	}, true
}

func (c *UserCache) Set(ctx context.Context, user models.User) error {
	if c == nil || c.client == nil {
		return nil
	}

	raw, err := json.Marshal(cachedUser{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userKey(user.ID), raw, c.ttl).Err()
}

// Invalidate drops a user's cache entry. Called on user deletion so stale
// entries never outlive the account.
func (c *UserCache) Invalidate(ctx context.Context, id string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, userKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
