package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-concord/internal/ports"
)

const redisBackend = "redis"

// RedisClient is the subset of redis.UniversalClient the store needs.
// It is satisfied by *redis.Client and *redis.ClusterClient.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
}

// RedisStore keeps summaries as string values and indexes their names in a
// sorted set scored by write time.
//
// Keys: <prefix>result:<name> holds the JSON; <prefix>results is the index.
type RedisStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

var _ ports.ResultStore = (*RedisStore)(nil)

// NewRedisStore creates a store. A zero ttl keeps summaries forever.
func NewRedisStore(client RedisClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *RedisStore) resultKey(name string) string { return s.prefix + "result:" + name }
func (s *RedisStore) indexKey() string             { return s.prefix + "results" }

// Ensure checks that the server is reachable.
func (s *RedisStore) Ensure(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return ports.NewStoreError(redisBackend, "ensure", "", err)
	}
	return nil
}

// Save stores data and records name in the index.
func (s *RedisStore) Save(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return ports.NewStoreError(redisBackend, "save", name, err)
	}
	if err := s.client.Set(ctx, s.resultKey(name), data, s.ttl).Err(); err != nil {
		return ports.NewStoreError(redisBackend, "save", name, err)
	}
	score := float64(s.now().UnixMilli())
	if err := s.client.ZAdd(ctx, s.indexKey(), redis.Z{Score: score, Member: name}).Err(); err != nil {
		return ports.NewStoreError(redisBackend, "save", name, err)
	}
	return nil
}

// List returns indexed summaries, newest first.
func (s *RedisStore) List(ctx context.Context) ([]ports.StoredResult, error) {
	zs, err := s.client.ZRevRangeWithScores(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, ports.NewStoreError(redisBackend, "list", "", err)
	}
	out := make([]ports.StoredResult, 0, len(zs))
	for _, z := range zs {
		name, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, ports.StoredResult{Name: name, ModifiedAt: time.UnixMilli(int64(z.Score))})
	}
	return out, nil
}

// Load returns one summary. Expired entries report ErrResultNotFound.
func (s *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, ports.NewStoreError(redisBackend, "load", name, err)
	}
	data, err := s.client.Get(ctx, s.resultKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.NewStoreError(redisBackend, "load", name, ports.ErrResultNotFound)
		}
		return nil, ports.NewStoreError(redisBackend, "load", name, err)
	}
	return data, nil
}
