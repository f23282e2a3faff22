package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store shared across server instances. Expiry is delegated to
// key TTLs and consumption uses GETDEL.
type Redis struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

var _ Store = (*Redis)(nil)

// NewRedis creates a redis-backed store
func NewRedis(client *redis.Client, ttl time.Duration, keyPrefix string) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if keyPrefix == "" {
		keyPrefix = "ordersync:oauth_state:"
	}
	return &Redis{client: client, ttl: ttl, keyPrefix: keyPrefix}
}

func (r *Redis) Put(ctx context.Context, state string, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, r.keyPrefix+state, data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	if !ok {
		return fmt.Errorf("store oauth state: state already exists")
	}
	return nil
}

func (r *Redis) Consume(ctx context.Context, state string) (*Entry, error) {
	data, err := r.client.GetDel(ctx, r.keyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode oauth state: %w", err)
	}
	return &entry, nil
}
