package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catchyfabric/market-backend/pkg/config"
)

type fakeCommands struct {
	values   map[string]string
	counters map[string]int64
	ttls     map[string]time.Duration
	expires  int
	incrErr  error
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{
		values:   map[string]string{},
		counters: map[string]int64{},
		ttls:     map[string]time.Duration{},
	}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, taken := f.values[key]; taken {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeCommands) ExpireNX(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires++
	if _, set := f.ttls[key]; set {
		return redis.NewBoolResult(false, nil)
	}
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

// The Scripter methods understand only the owner-release script.
func (f *fakeCommands) evalRelease(keys []string, args ...any) *redis.Cmd {
	if f.values[keys[0]] != fmt.Sprint(args[0]) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(f.values, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}

func (f *fakeCommands) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return f.evalRelease(keys, args...)
}

func (f *fakeCommands) EvalSha(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return f.evalRelease(keys, args...)
}

func (f *fakeCommands) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeCommands) EvalShaRO(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, sha, keys, args...)
}

func (f *fakeCommands) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeCommands) ScriptLoad(_ context.Context, _ string) *redis.StringCmd {
	return redis.NewStringResult("sha", nil)
}

func TestDelIfValueOnlyRemovesOwnedKey(t *testing.T) {
	ctx := context.Background()
	cmd := newFakeCommands()
	client := &Client{cmd: cmd}
	lock := client.LockKey("cron-worker")
	cmd.values[lock] = "owner-a"

	removed, err := client.DelIfValue(ctx, lock, "owner-b")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, "owner-a", cmd.values[lock])

	removed, err = client.DelIfValue(ctx, lock, "owner-a")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NotContains(t, cmd.values, lock)

	_, err = (&Client{}).DelIfValue(ctx, lock, "owner-a")
	assert.ErrorIs(t, err, errNotInitialized)
}

func TestFixedWindowAllowCountsWithinWindow(t *testing.T) {
	ctx := context.Background()
	cmd := newFakeCommands()
	client := &Client{cmd: cmd}

	for hit := int64(1); hit <= 3; hit++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "login:1.2.3.4", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, hit, count)
		assert.Equal(t, hit <= 2, allowed, "hit %d", hit)
	}
	assert.Equal(t, 3, cmd.expires)
	assert.Equal(t, time.Minute, cmd.ttls["cf:rate_limit:login:1.2.3.4"])
}

func TestFixedWindowAllowSurfacesErrors(t *testing.T) {
	cmd := newFakeCommands()
	cmd.incrErr = errors.New("connection reset")
	client := &Client{cmd: cmd}

	allowed, _, err := client.FixedWindowAllow(context.Background(), "scope", 5, time.Minute)
	require.Error(t, err)
	assert.False(t, allowed)
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}
	k := client.AccessSessionKey("jti-1")

	require.NoError(t, client.Set(ctx, k, "refresh-value", 10*time.Minute))
	got, err := client.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, "refresh-value", got)

	require.NoError(t, client.Del(ctx, k))
	_, err = client.Get(ctx, k)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestSetNXKeepsFirstOwner(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}
	lock := client.LockKey("cron-worker")

	ok, err := client.SetNX(ctx, lock, "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, lock, "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	owner, err := client.Get(ctx, lock)
	require.NoError(t, err)
	assert.Equal(t, "owner-a", owner)
}

func TestUndialedClient(t *testing.T) {
	var nilClient *Client
	assert.ErrorIs(t, nilClient.Ping(context.Background()), errNotInitialized)
	assert.ErrorIs(t, (&Client{}).Del(context.Background(), "k"), errNotInitialized)
	assert.NoError(t, (&Client{}).Close())
}

func TestKeys(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "cf:idempotency:payments:abc", c.IdempotencyKey("payments", "abc"))
	assert.Equal(t, "cf:rate_limit:login:1.2.3.4", c.RateLimitKey("login:1.2.3.4"))
	assert.Equal(t, "cf:lock:cron", c.LockKey("cron"))
	assert.Equal(t, "cf:session:access:jti", c.AccessSessionKey("jti"))
	assert.Equal(t, "cf:idempotency:scope", c.IdempotencyKey("scope", " "))
}

func TestDialOptions(t *testing.T) {
	_, err := dialOptions(config.RedisConfig{})
	require.Error(t, err)

	opts, err := dialOptions(config.RedisConfig{URL: "redis://:secret@cache:6380/3", PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = dialOptions(config.RedisConfig{Address: "localhost:6379", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}
