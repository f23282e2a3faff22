package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease owner checks keep one process from releasing or extending another's lease
var (
	releaseScript = redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`)

	extendScript = redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("PEXPIRE", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// RedisConfig configures the lease-based locker
type RedisConfig struct {
	KeyPrefix    string        // default "ordersync:lock:"
	TTL          time.Duration // lease length, renewed while held (default 30s)
	PollInterval time.Duration // Acquire retry interval (default 50ms)
}

// Redis is a Locker shared by every process pointing at the same server.
// A held lease is renewed in the background until released.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
	logger *slog.Logger
}

var _ Locker = (*Redis)(nil)

// NewRedis creates a locker on an existing client
func NewRedis(client *redis.Client, cfg RedisConfig, logger *slog.Logger) *Redis {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ordersync:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, cfg: cfg, logger: logger}
}

// Acquire polls until the lease is obtained or ctx is done
func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		rel, ok, err := r.TryAcquire(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return rel, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// TryAcquire makes a single SET NX attempt
func (r *Redis) TryAcquire(ctx context.Context, key string) (Release, bool, error) {
	fullKey := r.cfg.KeyPrefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, fullKey, token, r.cfg.TTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.renew(fullKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{fullKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				r.logger.Warn("failed to release lease", "key", fullKey, "error", err)
			}
		})
	}, true, nil
}

func (r *Redis) renew(fullKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.cfg.TTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.cfg.TTL/3)
			n, err := extendScript.Run(ctx, r.client, []string{fullKey}, token, r.cfg.TTL.Milliseconds()).Int64()
			cancel()
			if err != nil {
				r.logger.Warn("failed to extend lease", "key", fullKey, "error", err)
				continue
			}
			if n == 0 {
				r.logger.Warn("lease lost", "key", fullKey)
				return
			}
		}
	}
}
