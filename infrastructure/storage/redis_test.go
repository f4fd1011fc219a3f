package storage

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-concord/internal/ports"
)

// fakeRedis keeps strings and one sorted set in memory.
type fakeRedis struct {
	values  map[string][]byte
	sets    map[string]map[string]float64
	pingErr error
	ttls    map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values: map[string][]byte{},
		sets:   map[string]map[string]float64{},
		ttls:   map[string]time.Duration{},
	}
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.pingErr)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = value.([]byte)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) ZAdd(_ context.Context, key string, members ...redis.Z) *redis.IntCmd {
	set, ok := f.sets[key]
	if !ok {
		set = map[string]float64{}
		f.sets[key] = set
	}
	for _, m := range members {
		set[m.Member.(string)] = m.Score
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeRedis) ZRevRangeWithScores(_ context.Context, key string, _, _ int64) *redis.ZSliceCmd {
	var zs []redis.Z
	for member, score := range f.sets[key] {
		zs = append(zs, redis.Z{Member: member, Score: score})
	}
	sort.Slice(zs, func(i, j int) bool { return zs[i].Score > zs[j].Score })
	return redis.NewZSliceCmdResult(zs, nil)
}

// TestRedisStore_RoundTrip verifies keys, ordering and TTL propagation.
func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	s := NewRedisStore(fake, "test:", time.Hour)

	clock := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	require.NoError(t, s.Ensure(ctx))
	require.NoError(t, s.Save(ctx, "first.json", []byte(`{"a":1}`)))
	require.NoError(t, s.Save(ctx, "second.json", []byte(`{"a":2}`)))

	assert.Contains(t, fake.values, "test:result:first.json")
	assert.Equal(t, time.Hour, fake.ttls["test:result:first.json"])

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second.json", list[0].Name)
	assert.Equal(t, clock, list[0].ModifiedAt)

	data, err := s.Load(ctx, "first.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}

// TestRedisStore_Errors verifies not-found mapping and ping failures.
func TestRedisStore_Errors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	s := NewRedisStore(fake, "", 0)

	_, err := s.Load(ctx, "gone.json")
	assert.ErrorIs(t, err, ports.ErrResultNotFound)

	fake.pingErr = errors.New("connection refused")
	err = s.Ensure(ctx)
	var storeErr *ports.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "redis", storeErr.Backend)

	assert.ErrorIs(t, s.Save(ctx, "../x.json", nil), ports.ErrInvalidResultName)
}
