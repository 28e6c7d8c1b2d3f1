package redisstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	redisstore "github.com/trezcool/academia/storage/redis"
)

func TestRetryQueue(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	conf := core.NewTestConfig()
	conf.Redis.Addr = addr

	rdb, err := redisstore.Open(conf)
	require.NoError(t, err)
	defer rdb.Close()

	ctx := context.Background()
	key := "academia:test:retry:" + uuid.New().String()
	defer rdb.Del(ctx, key)
	queue := redisstore.NewRetryQueue(rdb, key)

	for _, id := range []string{"u2", "u1", "u2", "u3"} {
		require.NoError(t, queue.Push(ctx, id))
	}
	ids, err := queue.PopAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2", "u3"}, ids)

	ids, err = queue.PopAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestOpen_unreachable(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Redis.Addr = "127.0.0.1:1"
	_, err := redisstore.Open(conf)
	assert.Error(t, err)
}
