package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"INSUREADMIN_ADDR", "DATA_BACKEND", "KAFKA_BROKERS", "PERCENTAGE_CAP", "SESSION_TTL"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.Gateway.Backend)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Catalog.PercentageCap)
	assert.NotEmpty(t, cfg.JWTSigningKey)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("INSUREADMIN_ADDR", ":9090")
	t.Setenv("DATA_BACKEND", "Postgres")
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, broker-2:9092 ,broker-1:9092,")
	t.Setenv("PERCENTAGE_CAP", "true")
	t.Setenv("ADVISORY_RATE", "0.5")
	t.Setenv("GATEWAY_SNAPSHOT_TTL", "30s")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, BackendPostgres, cfg.Gateway.Backend)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.True(t, cfg.Catalog.PercentageCap)
	assert.InDelta(t, 0.5, cfg.Advisory.RatePerSecond, 0.0001)
	assert.Equal(t, 30*time.Second, cfg.Gateway.SnapshotTTL)
}

func TestFromEnv_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("REDIS_POOL_SIZE", "lots")
	t.Setenv("SESSION_TTL", "forever")

	cfg := FromEnv()

	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
}

func TestFromEnv_LoginThrottle(t *testing.T) {
	t.Setenv("LOGIN_RATE_PER_MINUTE", "")
	assert.True(t, FromEnv().Login.Enabled())

	t.Setenv("LOGIN_RATE_PER_MINUTE", "0")
	t.Setenv("LOGIN_BURST", "3")
	cfg := FromEnv()
	assert.False(t, cfg.Login.Enabled())
	assert.Equal(t, 3, cfg.Login.Burst)
}
