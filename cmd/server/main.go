package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"insureadmin/internal/advisory"
	advisorymetrics "insureadmin/internal/advisory/metrics"
	catalogHandler "insureadmin/internal/catalog/handler"
	catalogmetrics "insureadmin/internal/catalog/metrics"
	catalogService "insureadmin/internal/catalog/service"
	claimsHandler "insureadmin/internal/claims/handler"
	claimsmetrics "insureadmin/internal/claims/metrics"
	claimsService "insureadmin/internal/claims/service"
	"insureadmin/internal/platform/config"
	"insureadmin/internal/platform/httpserver"
	"insureadmin/internal/platform/logger"
	"insureadmin/internal/platform/metrics"
	"insureadmin/internal/ratelimit"
	ratelimitmetrics "insureadmin/internal/ratelimit/metrics"
	"insureadmin/internal/session"
	sessionHandler "insureadmin/internal/session/handler"
	httptransport "insureadmin/internal/transport/http"
	"insureadmin/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if cfg.IsProduction() && cfg.JWTSigningKey == config.DevSigningKey {
		return errors.New("JWT_SIGNING_KEY must be set in production")
	}

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	gw, err := buildGateway(ctx, cfg, infra, log)
	if err != nil {
		return err
	}

	auditPublisher := buildAuditPublisher(infra, log)
	defer auditPublisher.Close()

	advisor := buildAdvisor(cfg, log)
	httpMetrics := metrics.New()

	catalog := catalogService.New(gw.Gateway,
		catalogService.WithLogger(log),
		catalogService.WithAuditPublisher(auditPublisher),
		catalogService.WithMetrics(catalogmetrics.New()),
		catalogService.WithAdvisor(advisor),
		catalogService.WithPercentageCap(cfg.Catalog.PercentageCap),
		catalogService.WithBenefits(gw.Benefits),
	)
	claims := claimsService.New(gw.Gateway, advisor,
		claimsService.WithLogger(log),
		claimsService.WithAuditPublisher(auditPublisher),
		claimsService.WithMetrics(claimsmetrics.New()),
	)
	sessions := session.NewManager(gw.Authenticator, buildSessionStore(infra, log), cfg.JWTSigningKey,
		session.WithLogger(log),
		session.WithAuditPublisher(auditPublisher),
		session.WithGauge(httpMetrics),
		session.WithTTL(cfg.SessionTTL),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  httpMetrics,
		Sessions: sessions,
		Public:   []httptransport.Registrar{sessionHandler.New(sessions, log, loginGuards(cfg, log)...)},
		Protected: []httptransport.Registrar{
			catalogHandler.New(catalog, log),
			claimsHandler.New(claims, log),
		},
		Checks:         infra.HealthChecks(),
		MetricsHandler: promhttp.Handler(),
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting insureadmin console API",
			"addr", cfg.Addr,
			"backend", cfg.Gateway.Backend,
			"environment", cfg.Environment,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if infra.Relay != nil {
		g.Go(func() error {
			return infra.Relay.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildAdvisor(cfg config.Server, log *slog.Logger) *advisory.Gateway {
	var client advisory.Client
	if cfg.Advisory.APIKey != "" {
		openaiClient, err := advisory.NewOpenAIClient(advisory.OpenAIConfig{
			APIKey:  cfg.Advisory.APIKey,
			BaseURL: cfg.Advisory.BaseURL,
			Model:   cfg.Advisory.Model,
			Timeout: cfg.Advisory.Timeout,
		})
		if err != nil {
			log.Warn("advisory backend disabled", "error", err)
		} else {
			client = openaiClient
		}
	} else {
		log.Info("OPENAI_API_KEY not set, advisory requests will return fallback text")
	}
	return advisory.NewGateway(client,
		advisory.WithLogger(log),
		advisory.WithMetrics(advisorymetrics.New()),
		advisory.WithRateLimit(cfg.Advisory.RatePerSecond, cfg.Advisory.Burst),
		advisory.WithBreaker(circuit.New("advisory", circuit.WithFailureThreshold(3), circuit.WithCooldown(30*time.Second))),
	)
}

func loginGuards(cfg config.Server, log *slog.Logger) []sessionHandler.Option {
	if !cfg.Login.Enabled() {
		return nil
	}
	limiter := ratelimit.NewLimiter(cfg.Login.PerMinute, cfg.Login.Burst)
	return []sessionHandler.Option{
		sessionHandler.WithLoginGuard(ratelimit.LoginThrottle(limiter, log, ratelimitmetrics.New())),
	}
}
