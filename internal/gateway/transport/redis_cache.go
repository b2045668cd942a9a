package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"insureadmin/internal/gateway"
	"insureadmin/internal/gateway/metrics"
)

const cacheKeyPrefix = "insureadmin:gw:"

// RedisCache is a read-through cache in front of another Transport. Successful
// fetches are cached for ttl; any successful write evicts the written path and
// its collection. Redis errors never fail a request.
type RedisCache struct {
	next    gateway.Transport
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewRedisCache(next gateway.Transport, client *redis.Client, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{next: next, client: client, ttl: ttl, logger: logger, metrics: m}
}

func (c *RedisCache) Do(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	if req.Op == gateway.OpFetch {
		return c.fetch(ctx, req)
	}

	resp, err := c.next.Do(ctx, req)
	if err == nil && resp.Status >= 200 && resp.Status < 300 && req.Op != gateway.OpInvoke {
		collection, _ := gateway.SplitPath(req.Path)
		if delErr := c.client.Del(ctx, cacheKeyPrefix+req.Path, cacheKeyPrefix+collection).Err(); delErr != nil {
			c.logger.WarnContext(ctx, "gateway cache eviction failed", "path", req.Path, "error", delErr)
		}
	}
	return resp, err
}

func (c *RedisCache) fetch(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	key := cacheKeyPrefix + req.Path
	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.observe("hit")
		return gateway.Response{Status: http.StatusOK, Body: cached}, nil
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "gateway cache read failed", "path", req.Path, "error", err)
	}
	c.observe("miss")

	resp, err := c.next.Do(ctx, req)
	if err != nil || resp.Status != http.StatusOK {
		return resp, err
	}
	if setErr := c.client.Set(ctx, key, []byte(resp.Body), c.ttl).Err(); setErr != nil {
		c.logger.WarnContext(ctx, "gateway cache write failed", "path", req.Path, "error", setErr)
	}
	return resp, nil
}

func (c *RedisCache) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.IncrementCache(outcome)
	}
}
