package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shoplinehq/shopline-backend/pkg/redis"
)

// SessionStore persists one cart per browser session. Implementations return
// an empty cart on a miss rather than an error.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

type sessionClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SessionKey(sessionID string) string
}

// RedisStore keeps cart state as a JSON blob under the session key, refreshed
// with a sliding TTL on every save.
type RedisStore struct {
	client sessionClient
	ttl    time.Duration
}

// NewRedisStore builds a session store over the shared redis client.
func NewRedisStore(client sessionClient, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Load reads the session's cart. An absent key yields a fresh empty cart, and
// so does a payload that no longer parses; session state is disposable.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Cart, error) {
	raw, err := s.client.Get(ctx, s.client.SessionKey(sessionID))
	if errors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return New(), nil
	}
	if c.Lines == nil {
		c.Lines = map[string]*Line{}
	}
	return &c, nil
}

// Save serializes the cart under the session key and clears its dirty flag.
func (s *RedisStore) Save(ctx context.Context, sessionID string, c *Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding session cart: %w", err)
	}
	if err := s.client.Set(ctx, s.client.SessionKey(sessionID), payload, s.ttl); err != nil {
		return fmt.Errorf("saving session cart: %w", err)
	}
	c.markPersisted()
	return nil
}

// Delete destroys the whole session cart structure. The next Load starts an
// empty cart.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.client.SessionKey(sessionID)); err != nil {
		return fmt.Errorf("deleting session cart: %w", err)
	}
	return nil
}
