package db

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// LimitedRedisClient is the limited set of functionality expected from the redis client in this adapter.
// This allows for easy mocking and swapping of the client. The universal redis client interface is way too big.
type LimitedRedisClient interface {
	// General commands

	// PING
	Ping(ctx context.Context) *redis.StatusCmd
	// DEL key [key ...]
	Del(ctx context.Context, keys ...string) *redis.IntCmd

	// Hash commands

	// HGETALL key
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	// HSET key field value [field value ...]
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd

	// Sorted set commands

	// ZADD key score member [score member ...]
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	// ZREM key member [member ...]
	ZRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	// ZRANGE key start stop [BYSCORE] [LIMIT offset count]
	ZRangeArgs(ctx context.Context, z redis.ZRangeArgs) *redis.StringSliceCmd
}
