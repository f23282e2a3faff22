package statestore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_ConsumeOnce(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	s := NewRedis(client, time.Minute, "test:"+uuid.NewString()+":")
	require.NoError(t, s.Put(ctx, "abc", Entry{PrincipalID: "seller-1"}))
	assert.Error(t, s.Put(ctx, "abc", Entry{PrincipalID: "seller-2"}), "states are never overwritten")

	entry, err := s.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "seller-1", entry.PrincipalID)

	_, err = s.Consume(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}
