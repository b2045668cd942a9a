package advisory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"insureadmin/internal/advisory/metrics"
	"insureadmin/pkg/platform/circuit"
)

const (
	// ClaimFallback is returned whenever claim analysis cannot be produced.
	ClaimFallback = "AI analysis unavailable at this time. Please review the claim manually."
	// PolicyFallback is returned whenever the policy advisor cannot answer.
	PolicyFallback = "The policy advisor is currently unavailable. Please try again later."
)

var (
	errRateLimited = errors.New("advisory rate limit exceeded")
	errCircuitOpen = errors.New("advisory circuit open")
	errNoClient    = errors.New("advisory backend not configured")
)

// Gateway fronts a Client and never fails: every error becomes fallback text.
// It fails independently of the data gateway (own breaker, own limiter).
type Gateway struct {
	client  Client
	limiter *rate.Limiter
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithRateLimit caps outbound calls; calls beyond the budget get the fallback
// immediately instead of queueing.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(g *Gateway) {
		if perSecond > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(g *Gateway) {
		g.breaker = b
	}
}

// NewGateway wraps client. A nil client is valid and always yields fallbacks.
func NewGateway(client Client, opts ...Option) *Gateway {
	g := &Gateway{
		client: client,
		logger: slog.Default(),
		tracer: otel.Tracer("insureadmin/advisory"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.breaker == nil {
		g.breaker = circuit.New("advisory", circuit.WithFailureThreshold(3), circuit.WithCooldown(30*time.Second))
	}
	return g
}

// AnalyzeClaim returns commentary for a claim or ClaimFallback.
func (g *Gateway) AnalyzeClaim(ctx context.Context, facts ClaimFacts, summary string) string {
	return g.run(ctx, "analyze_claim", ClaimFallback, func(ctx context.Context) (string, error) {
		return g.client.AnalyzeClaim(ctx, facts, summary)
	})
}

// PolicyAdvisor answers a policy question or returns PolicyFallback.
func (g *Gateway) PolicyAdvisor(ctx context.Context, query, summary string) string {
	return g.run(ctx, "policy_advisor", PolicyFallback, func(ctx context.Context) (string, error) {
		return g.client.PolicyAdvisor(ctx, query, summary)
	})
}

func (g *Gateway) run(ctx context.Context, op, fallback string, call func(context.Context) (string, error)) string {
	ctx, span := g.tracer.Start(ctx, "advisory."+op)
	defer span.End()

	start := time.Now()
	text, err := g.attempt(ctx, call)
	outcome := "ok"
	if err != nil {
		outcome = "fallback"
		span.SetStatus(codes.Error, err.Error())
		g.logger.WarnContext(ctx, "advisory unavailable, using fallback",
			"op", op,
			"error", err,
		)
		text = fallback
	}
	span.SetAttributes(attribute.String("advisory.outcome", outcome))
	if g.metrics != nil {
		g.metrics.ObserveCall(op, outcome, time.Since(start))
	}
	return text
}

func (g *Gateway) attempt(ctx context.Context, call func(context.Context) (string, error)) (text string, err error) {
	if g.client == nil {
		return "", errNoClient
	}
	if g.limiter != nil && !g.limiter.Allow() {
		return "", errRateLimited
	}
	if !g.breaker.Allow() {
		return "", errCircuitOpen
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.New("advisory client panicked")
		}
		if err != nil {
			g.breaker.RecordFailure()
			return
		}
		g.breaker.RecordSuccess()
	}()

	text, err = call(ctx)
	if err == nil && text == "" {
		err = errors.New("advisory returned empty text")
	}
	return text, err
}
