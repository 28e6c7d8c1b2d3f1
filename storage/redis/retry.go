// Package redisstore keeps the completion retry queue in a Redis set, shared by every API instance.
package redisstore

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/completion"
)

const pingTimeout = 5 * time.Second

// Open connects to the configured Redis server.
func Open(conf *core.Config) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        conf.Redis.Addr,
		Password:    conf.Redis.Password,
		DB:          conf.Redis.DB,
		DialTimeout: pingTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

type retryQueue struct {
	rdb goredis.UniversalClient
	key string
}

var _ completion.RetryQueue = (*retryQueue)(nil) // interface compliance check

func NewRetryQueue(rdb goredis.UniversalClient, key string) completion.RetryQueue {
	return &retryQueue{rdb: rdb, key: key}
}

func (q *retryQueue) Push(ctx context.Context, userID string) error {
	return errors.Wrap(q.rdb.SAdd(ctx, q.key, userID).Err(), "adding to retry set")
}

// PopAll reads and deletes the set in one MULTI/EXEC transaction.
func (q *retryQueue) PopAll(ctx context.Context) ([]string, error) {
	var members *goredis.StringSliceCmd
	_, err := q.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		members = pipe.SMembers(ctx, q.key)
		pipe.Del(ctx, q.key)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "popping retry set")
	}

	userIDs := members.Val()
	sort.Strings(userIDs)
	return userIDs, nil
}
