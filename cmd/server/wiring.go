package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	catalogmodels "insureadmin/internal/catalog/models"
	"insureadmin/internal/gateway"
	gwmetrics "insureadmin/internal/gateway/metrics"
	"insureadmin/internal/gateway/transport"
	"insureadmin/internal/platform/config"
	"insureadmin/internal/platform/kafka"
	"insureadmin/internal/platform/postgres"
	"insureadmin/internal/platform/redis"
	"insureadmin/internal/seed"
	"insureadmin/internal/session"
	sessionstore "insureadmin/internal/session/store"
	httptransport "insureadmin/internal/transport/http"
	"insureadmin/pkg/platform/audit/publisher"
	auditmemory "insureadmin/pkg/platform/audit/store/memory"
	auditpostgres "insureadmin/pkg/platform/audit/store/postgres"
	stringutil "insureadmin/pkg/platform/strings"
)

const auditBufferSize = 1024

// infra holds connections to optional external systems. Nil fields are not
// configured.
type infra struct {
	DB    *sql.DB
	Redis *redis.Client
	Kafka *kgo.Client
	Relay *kafka.Relay
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{}
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		in.DB = db
	} else if cfg.Gateway.Backend == config.BackendPostgres {
		return nil, fmt.Errorf("DATA_BACKEND=postgres requires DATABASE_URL")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.Redis = rc

	if cfg.Kafka.Enabled() {
		if in.DB == nil {
			log.Warn("KAFKA_BROKERS set without DATABASE_URL, audit relay disabled")
			return in, nil
		}
		client, err := kafka.NewClient(cfg.Kafka)
		if err != nil {
			in.Close()
			return nil, err
		}
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.AuditTopic); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		in.Kafka = client
		in.Relay = kafka.NewRelay(in.DB, client, cfg.Kafka, log)
		log.Info("audit relay enabled", "brokers", stringutil.JoinList(cfg.Kafka.Brokers), "topic", cfg.Kafka.AuditTopic)
	}
	return in, nil
}

func (in *infra) Close() {
	if in.Kafka != nil {
		in.Kafka.Close()
	}
	if in.Redis != nil {
		_ = in.Redis.Close()
	}
	if in.DB != nil {
		_ = in.DB.Close()
	}
}

func (in *infra) HealthChecks() []httptransport.HealthCheck {
	var checks []httptransport.HealthCheck
	if in.DB != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: in.DB.PingContext})
	}
	if in.Redis != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: in.Redis.Health})
	}
	return checks
}

// dataPlane is the data gateway plus what depends on the chosen backend.
type dataPlane struct {
	Gateway       *gateway.Gateway
	Authenticator session.Authenticator
	// Benefits primes the catalog's link resolution when known up front.
	Benefits []catalogmodels.Benefit
}

func buildGateway(ctx context.Context, cfg config.Server, in *infra, log *slog.Logger) (*dataPlane, error) {
	data := seed.Default()
	if cfg.Catalog.SeedFile != "" {
		loaded, err := seed.LoadFile(cfg.Catalog.SeedFile)
		if err != nil {
			return nil, err
		}
		data = loaded
	}
	dataset, err := data.Dataset()
	if err != nil {
		return nil, err
	}

	m := gwmetrics.New()
	var (
		backend gateway.Transport
		memory  *transport.Memory
	)
	switch cfg.Gateway.Backend {
	case config.BackendMemory:
		memory = transport.NewMemory()
		memory.Handle("auth/login", data.LoginHandler())
		backend = memory
	case config.BackendHTTP:
		if cfg.Gateway.BackendURL == "" {
			return nil, fmt.Errorf("DATA_BACKEND=http requires BACKEND_URL")
		}
		backend = transport.NewHTTP(cfg.Gateway.BackendURL, transport.WithTokenSource(session.BackendToken))
	case config.BackendPostgres:
		backend = transport.NewPostgres(in.DB)
	default:
		return nil, fmt.Errorf("unknown DATA_BACKEND %q", cfg.Gateway.Backend)
	}
	if cfg.Gateway.CacheTTL > 0 && in.Redis != nil {
		backend = transport.NewRedisCache(backend, in.Redis.Client, cfg.Gateway.CacheTTL, log, m)
	}

	opts := []gateway.Option{
		gateway.WithLogger(log),
		gateway.WithMetrics(m),
		gateway.WithTimeout(cfg.Gateway.Timeout),
	}
	if cfg.Gateway.SnapshotTTL > 0 {
		opts = append(opts, gateway.WithSnapshot(cfg.Gateway.SnapshotTTL))
	}
	gw := gateway.New(backend, opts...)

	plane := &dataPlane{Gateway: gw}
	switch cfg.Gateway.Backend {
	case config.BackendMemory:
		if err := dataset.Apply(ctx, gw); err != nil {
			return nil, err
		}
		plane.Authenticator = session.NewGatewayAuthenticator(gw)
		plane.Benefits = dataset.Benefits
	case config.BackendHTTP:
		plane.Authenticator = session.NewGatewayAuthenticator(gw)
	case config.BackendPostgres:
		// The document store has no login endpoint; operators come from the seed file.
		plane.Authenticator = session.NewStaticAuthenticator(data.StaticUsers())
	}
	return plane, nil
}

func buildAuditPublisher(in *infra, log *slog.Logger) *publisher.Publisher {
	if in.DB != nil {
		return publisher.NewPublisher(auditpostgres.New(in.DB),
			publisher.WithAsyncBuffer(auditBufferSize),
			publisher.WithLogger(log),
		)
	}
	return publisher.NewPublisher(auditmemory.NewInMemoryStore(), publisher.WithLogger(log))
}

func buildSessionStore(in *infra, log *slog.Logger) session.Store {
	if in.Redis != nil {
		return sessionstore.NewRedis(in.Redis.Client, log)
	}
	return sessionstore.NewInMemory()
}
