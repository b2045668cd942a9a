package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	stringutil "insureadmin/pkg/platform/strings"
)

// DevSigningKey is used when JWT_SIGNING_KEY is unset. Production refuses it.
const DevSigningKey = "dev-secret-key-change-in-production"

// DataBackend selects the transport behind the Resilient Data Gateway.
type DataBackend string

const (
	BackendMemory   DataBackend = "memory"
	BackendHTTP     DataBackend = "http"
	BackendPostgres DataBackend = "postgres"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	Environment   string
	JWTSigningKey string
	SessionTTL    time.Duration

	Gateway  GatewayConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Advisory AdvisoryConfig
	Catalog  CatalogConfig
	Login    LoginThrottleConfig
}

// GatewayConfig controls the Resilient Data Gateway.
type GatewayConfig struct {
	Backend    DataBackend
	BackendURL string
	Timeout    time.Duration
	// SnapshotTTL enables the last-known-good snapshot when positive.
	SnapshotTTL time.Duration
	// CacheTTL enables the Redis read-through cache when positive and Redis is configured.
	CacheTTL time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type KafkaConfig struct {
	Brokers      []string
	AuditTopic   string
	PollInterval time.Duration
	BatchSize    int
}

// Enabled reports whether an audit relay should run.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type AdvisoryConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// RatePerSecond caps calls to the advisory backend; Burst allows short spikes.
	RatePerSecond float64
	Burst         int
}

type CatalogConfig struct {
	PercentageCap bool
	SeedFile      string
}

// LoginThrottleConfig limits login attempts per client address and per email.
type LoginThrottleConfig struct {
	PerMinute float64
	Burst     int
}

// Enabled reports whether logins are throttled at all.
func (l LoginThrottleConfig) Enabled() bool {
	return l.PerMinute > 0
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = DevSigningKey
	}

	return Server{
		Addr:          envOr("INSUREADMIN_ADDR", ":8080"),
		Environment:   envOr("ENVIRONMENT", "local"),
		JWTSigningKey: jwtSigningKey,
		SessionTTL:    envDuration("SESSION_TTL", 12*time.Hour),
		Gateway: GatewayConfig{
			Backend:     DataBackend(strings.ToLower(envOr("DATA_BACKEND", string(BackendMemory)))),
			BackendURL:  os.Getenv("BACKEND_URL"),
			Timeout:     envDuration("BACKEND_TIMEOUT", 10*time.Second),
			SnapshotTTL: envDuration("GATEWAY_SNAPSHOT_TTL", 0),
			CacheTTL:    envDuration("GATEWAY_CACHE_TTL", 0),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 5),
		},
		Kafka: KafkaConfig{
			Brokers:      stringutil.SplitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic:   envOr("KAFKA_AUDIT_TOPIC", "insureadmin.audit"),
			PollInterval: envDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),
		},
		Advisory: AdvisoryConfig{
			APIKey:        os.Getenv("OPENAI_API_KEY"),
			BaseURL:       os.Getenv("OPENAI_BASE_URL"),
			Model:         envOr("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:       envDuration("ADVISORY_TIMEOUT", 20*time.Second),
			RatePerSecond: envFloat("ADVISORY_RATE", 2),
			Burst:         envInt("ADVISORY_BURST", 4),
		},
		Catalog: CatalogConfig{
			PercentageCap: os.Getenv("PERCENTAGE_CAP") == "true",
			SeedFile:      os.Getenv("SEED_FILE"),
		},
		Login: LoginThrottleConfig{
			PerMinute: envFloat("LOGIN_RATE_PER_MINUTE", 10),
			Burst:     envInt("LOGIN_BURST", 5),
		},
	}
}

// IsProduction gates dev-only conveniences such as the default signing key.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
