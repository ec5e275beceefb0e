package db

import (
	"context"
	"encoding"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// MockRedisClient implements the LimitedRedisClient interface in memory.
// Only suitable for testing and local development.
// The value set for the IntCmd results is always 1 regardless of how many records were affected
// Contexts are completely ignored
type MockRedisClient struct {
	lock  sync.Mutex
	store map[string]any
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{store: map[string]any{}}
}

func convertValuesToMap(values ...any) (map[string]any, error) {
	if len(values)%2 != 0 {
		return map[string]any{}, fmt.Errorf("number of provided values must be even")
	}
	output := map[string]any{}
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return map[string]any{}, fmt.Errorf("hash field names must be strings, got %T", values[i])
		}
		output[key] = values[i+1]
	}
	return output, nil
}

func (m *MockRedisClient) Ping(_ context.Context) *redis.StatusCmd {
	res := redis.StatusCmd{}
	res.SetVal("PONG")
	return &res
}

func (m *MockRedisClient) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.IntCmd{}
	val, err := convertValuesToMap(values...)
	if err != nil {
		res.SetErr(err)
		return &res
	}
	existing, ok := m.store[key].(map[string]any)
	if !ok {
		existing = map[string]any{}
	}
	for k, v := range val {
		existing[k] = v
	}
	m.store[key] = existing
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.MapStringStringCmd{}
	res.SetVal(map[string]string{})
	val, found := m.store[key]
	if !found {
		return &res
	}
	valMap, ok := val.(map[string]any)
	if !ok {
		res.SetErr(fmt.Errorf("WRONGTYPE the key %s does not hold a hash", key))
		return &res
	}
	output := map[string]string{}
	for k, v := range valMap {
		switch typed := v.(type) {
		case string:
			output[k] = typed
		case encoding.TextMarshaler:
			raw, err := typed.MarshalText()
			if err != nil {
				res.SetErr(err)
				return &res
			}
			output[k] = string(raw)
		default:
			output[k] = fmt.Sprint(typed)
		}
	}
	res.SetVal(output)
	return &res
}

func (m *MockRedisClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, k := range keys {
		delete(m.store, k)
	}
	res := redis.IntCmd{}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) sortedSet(key string) []redis.Z {
	val, found := m.store[key]
	if !found {
		return []redis.Z{}
	}
	return val.([]redis.Z)
}

func (m *MockRedisClient) ZAdd(_ context.Context, key string, members ...redis.Z) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	current := m.sortedSet(key)
	for _, member := range members {
		replaced := false
		for i := range current {
			if current[i].Member == member.Member {
				current[i].Score = member.Score
				replaced = true
			}
		}
		if !replaced {
			current = append(current, member)
		}
	}
	sort.SliceStable(current, func(i, j int) bool { return current[i].Score < current[j].Score })
	m.store[key] = current
	res := redis.IntCmd{}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) ZRem(_ context.Context, key string, members ...any) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.IntCmd{}
	current := m.sortedSet(key)
	remaining := []redis.Z{}
	for _, z := range current {
		removeElem := false
		for _, member := range members {
			removeElem = removeElem || (z.Member == member)
		}
		if !removeElem {
			remaining = append(remaining, z)
		}
	}
	m.store[key] = remaining
	res.SetVal(1)
	return &res
}

// ZRangeArgs only supports the BYSCORE form without limits.
func (m *MockRedisClient) ZRangeArgs(_ context.Context, zrange redis.ZRangeArgs) *redis.StringSliceCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	output := redis.StringSliceCmd{}
	if !zrange.ByScore {
		output.SetErr(fmt.Errorf("the mock client only supports ZRANGE BYSCORE"))
		return &output
	}
	start, err := strconv.ParseFloat(fmt.Sprint(zrange.Start), 64)
	if err != nil {
		output.SetErr(err)
		return &output
	}
	stop, err := strconv.ParseFloat(fmt.Sprint(zrange.Stop), 64)
	if err != nil {
		output.SetErr(err)
		return &output
	}
	res := []string{}
	for _, ival := range m.sortedSet(zrange.Key) {
		if ival.Score <= stop && ival.Score >= start {
			res = append(res, fmt.Sprint(ival.Member))
		}
	}
	output.SetVal(res)
	return &output
}
