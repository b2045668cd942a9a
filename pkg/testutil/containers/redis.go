//go:build integration

package containers

import (
	"context"
	"sort"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"insureadmin/internal/platform/config"
	platformredis "insureadmin/internal/platform/redis"
)

// RedisContainer is a disposable Redis reached through the same client
// constructor the server uses.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *goredis.Client
	platform  *platformredis.Client
}

// NewRedisContainer starts redis:7-alpine and connects to it.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("redis connection string: %v", err)
	}

	client, err := platformredis.New(ctx, config.RedisConfig{URL: url, DialTimeout: 5 * time.Second})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("connect redis: %v", err)
	}
	return &RedisContainer{Container: container, URL: url, Client: client.Client, platform: client}
}

// FlushAll empties the database between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}

// Healthy runs the readiness check the server registers for Redis.
func (r *RedisContainer) Healthy(ctx context.Context) error {
	return r.platform.Health(ctx)
}

// Keys lists keys matching pattern in sorted order.
func (r *RedisContainer) Keys(t *testing.T, pattern string) []string {
	t.Helper()
	var keys []string
	iter := r.Client.Scan(context.Background(), 0, pattern, 100).Iterator()
	for iter.Next(context.Background()) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		t.Fatalf("scan %s: %v", pattern, err)
	}
	sort.Strings(keys)
	return keys
}

// TTL returns the remaining lifetime of key, failing the test if it has none.
func (r *RedisContainer) TTL(t *testing.T, key string) time.Duration {
	t.Helper()
	ttl, err := r.Client.TTL(context.Background(), key).Result()
	if err != nil {
		t.Fatalf("ttl %s: %v", key, err)
	}
	if ttl < 0 {
		t.Fatalf("key %s has no expiry (%v)", key, ttl)
	}
	return ttl
}
