package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iwanyu/marketplace-backend/pkg/config"
)

func TestFixedWindowAllowCountsAndExpires(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "api:user:42", 2, time.Minute)
		if err != nil {
			t.Fatalf("call %d: unexpected error %v", i, err)
		}
		if allowed != want || count != int64(i+1) {
			t.Fatalf("call %d: allowed=%v count=%d", i, allowed, count)
		}
	}

	key := "iwanyu:rate_limit:api:user:42"
	if fake.ttl[key] != time.Minute {
		t.Fatalf("expected window ttl on %s, got %v", key, fake.ttl[key])
	}
	if fake.expireWins != 1 {
		t.Fatalf("ttl should only be set once, got %d", fake.expireWins)
	}
}

func TestIncrWithTTLSurfacesExpireFailure(t *testing.T) {
	fake := newFakeCommands()
	fake.expireErr = errors.New("READONLY")
	client := &Client{cmd: fake}

	count, err := client.IncrWithTTL(context.Background(), "k", time.Second)
	if err == nil {
		t.Fatal("expected expire error")
	}
	if count != 1 {
		t.Fatalf("count should still be returned, got %d", count)
	}
}

func TestSetNXFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}
	key := client.WebhookEventKey("flutterwave", "evt-1")

	if first, err := client.SetNX(ctx, key, "1", time.Hour); err != nil || !first {
		t.Fatalf("first SetNX should win, got %v %v", first, err)
	}
	if second, err := client.SetNX(ctx, key, "1", time.Hour); err != nil || second {
		t.Fatalf("second SetNX should lose, got %v %v", second, err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := client.Get(ctx, key); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
	if err := client.Del(ctx); err != nil {
		t.Fatalf("empty del should be a no-op, got %v", err)
	}
}

func TestDisconnectedClient(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	if err := client.Ping(ctx); !errors.Is(err, errNotConnected) {
		t.Fatalf("expected errNotConnected, got %v", err)
	}
	if _, err := client.Get(ctx, "k"); !errors.Is(err, errNotConnected) {
		t.Fatalf("expected errNotConnected, got %v", err)
	}
	if _, _, err := client.FixedWindowAllow(ctx, "s", 1, time.Second); err == nil {
		t.Fatal("expected error from disconnected client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on disconnected client: %v", err)
	}
}

func TestKeyFamilies(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.IdempotencyKey("POST:/api/orders:u1", "abc"): "iwanyu:idempotency:POST:/api/orders:u1:abc",
		client.RateLimitKey("auth:login:ip:1.2.3.4"):        "iwanyu:rate_limit:auth:login:ip:1.2.3.4",
		client.LockKey("cron-worker"):                       "iwanyu:lock:cron-worker",
		client.WebhookEventKey("flutterwave", " "):          "iwanyu:webhook:flutterwave",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestBuildOptions(t *testing.T) {
	opts, err := buildOptions(config.RedisConfig{
		URL:         "redis://:pw@cache:6380/3",
		PoolSize:    20,
		DialTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("buildOptions: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 3 || opts.Password != "pw" {
		t.Fatalf("url settings not applied: %+v", opts)
	}
	if opts.PoolSize != 20 || opts.DialTimeout != 2*time.Second {
		t.Fatalf("env fallbacks not applied: pool=%d dial=%v", opts.PoolSize, opts.DialTimeout)
	}

	opts, err = buildOptions(config.RedisConfig{Address: "localhost:6379", DB: 1})
	if err != nil || opts.Addr != "localhost:6379" || opts.DB != 1 {
		t.Fatalf("address config not applied: %+v err=%v", opts, err)
	}

	if _, err := buildOptions(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
	if _, err := buildOptions(config.RedisConfig{URL: "http://nope"}); err == nil {
		t.Fatal("expected error for non-redis url")
	}
}

type fakeCommands struct {
	values     map[string]string
	counters   map[string]int64
	ttl        map[string]time.Duration
	expireWins int
	expireErr  error
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{
		values:   map[string]string{},
		counters: map[string]int64{},
		ttl:      map[string]time.Duration{},
	}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = fmt.Sprint(value)
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
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeCommands) ExpireNX(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	if f.expireErr != nil {
		return redis.NewBoolResult(false, f.expireErr)
	}
	if _, ok := f.ttl[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.ttl[key] = ttl
	f.expireWins++
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.values, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
