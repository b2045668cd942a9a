package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"insureadmin/internal/gateway/metrics"
	"insureadmin/pkg/platform/circuit"
	"insureadmin/pkg/platform/sentinel"
)

// Kind tags the outcome of a gateway call.
type Kind int

const (
	KindOK Kind = iota
	KindNotFound
	// KindTransportError means the backend could not be reached or the
	// breaker is open.
	KindTransportError
	// KindRejected means the backend answered with a refusal (validation,
	// precondition, server error).
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNotFound:
		return "not_found"
	case KindTransportError:
		return "transport_error"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of a call. Err is set for every kind but OK.
type Result struct {
	Kind   Kind
	Status int
	Body   json.RawMessage
	Err    error
	// Stale marks a body served from the last-known-good snapshot while the
	// transport was down. Kind stays KindTransportError.
	Stale bool
}

func (r Result) OK() bool { return r.Kind == KindOK }

// PreconditionFailed reports whether a guarded write was refused because the
// stored state no longer matched.
func (r Result) PreconditionFailed() bool {
	return r.Kind == KindRejected && errors.Is(r.Err, sentinel.ErrPreconditionFailed)
}

// Decode unmarshals the body into v.
func (r Result) Decode(v any) error {
	if len(r.Body) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(r.Body, v)
}

// Gateway classifies transport outcomes and guards the transport with a
// circuit breaker. It never panics on backend failure; callers inspect Result.
type Gateway struct {
	transport Transport
	breaker   *circuit.Breaker
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	snapshot  *cache.Cache
	timeout   time.Duration
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

func WithBreaker(b *circuit.Breaker) Option {
	return func(g *Gateway) {
		g.breaker = b
	}
}

// WithSnapshot keeps the last successful fetch of each path for ttl and serves
// it when the transport is down. Off by default.
func WithSnapshot(ttl time.Duration) Option {
	return func(g *Gateway) {
		if ttl > 0 {
			g.snapshot = cache.New(ttl, 2*ttl)
		}
	}
}

// WithTimeout bounds every transport call.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

func New(transport Transport, opts ...Option) *Gateway {
	g := &Gateway{
		transport: transport,
		logger:    slog.Default(),
		tracer:    otel.Tracer("insureadmin/gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.breaker == nil {
		g.breaker = circuit.New("data-gateway")
	}
	return g
}

// Fetch reads a collection or a single document.
func (g *Gateway) Fetch(ctx context.Context, path string) Result {
	res := g.do(ctx, Request{Op: OpFetch, Path: path})
	if g.snapshot == nil {
		return res
	}
	switch res.Kind {
	case KindOK:
		g.snapshot.SetDefault(path, []byte(res.Body))
	case KindTransportError:
		if stale, ok := g.snapshot.Get(path); ok {
			res.Body = stale.([]byte)
			res.Stale = true
		}
	}
	return res
}

// WriteOption adjusts a write request.
type WriteOption func(*Request)

// Expect guards a write with a compare-and-swap precondition.
func Expect(field, equals string) WriteOption {
	return func(r *Request) {
		r.Precondition = &Precondition{Field: field, Equals: equals}
	}
}

// CreateOrReplace writes a whole document at path.
func (g *Gateway) CreateOrReplace(ctx context.Context, path string, body any, opts ...WriteOption) Result {
	return g.write(ctx, OpPut, path, body, opts)
}

// UpdatePartial merges body's top-level fields into the document at path.
func (g *Gateway) UpdatePartial(ctx context.Context, path string, body any, opts ...WriteOption) Result {
	return g.write(ctx, OpPatch, path, body, opts)
}

func (g *Gateway) Delete(ctx context.Context, path string) Result {
	return g.do(ctx, Request{Op: OpDelete, Path: path})
}

// Invoke posts an action and returns its response.
func (g *Gateway) Invoke(ctx context.Context, path string, body any) Result {
	return g.write(ctx, OpInvoke, path, body, nil)
}

func (g *Gateway) write(ctx context.Context, op Op, path string, body any, opts []WriteOption) Result {
	raw, err := json.Marshal(body)
	if err != nil {
		return Result{Kind: KindRejected, Err: fmt.Errorf("encode %s body: %w", path, err)}
	}
	req := Request{Op: op, Path: path, Body: raw}
	for _, opt := range opts {
		opt(&req)
	}
	res := g.do(ctx, req)
	if g.snapshot != nil && res.OK() {
		collection, _ := SplitPath(path)
		g.snapshot.Delete(path)
		g.snapshot.Delete(collection)
	}
	return res
}

func (g *Gateway) do(ctx context.Context, req Request) Result {
	ctx, span := g.tracer.Start(ctx, "gateway."+string(req.Op), trace.WithAttributes(
		attribute.String("gateway.path", req.Path),
	))
	defer span.End()

	start := time.Now()
	res := g.call(ctx, req)
	if g.metrics != nil {
		g.metrics.ObserveRequest(string(req.Op), res.Kind.String(), time.Since(start))
	}

	span.SetAttributes(
		attribute.String("gateway.result", res.Kind.String()),
		attribute.Int("gateway.status", res.Status),
	)
	if res.Kind == KindTransportError {
		span.SetStatus(codes.Error, res.Err.Error())
	}
	if !res.OK() {
		g.logger.WarnContext(ctx, "gateway request degraded",
			"op", req.Op,
			"path", req.Path,
			"result", res.Kind.String(),
			"status", res.Status,
			"error", res.Err,
		)
	}
	return res
}

func (g *Gateway) call(ctx context.Context, req Request) Result {
	if !g.breaker.Allow() {
		return Result{Kind: KindTransportError, Err: fmt.Errorf("%s: circuit open: %w", g.breaker.Name(), sentinel.ErrUnavailable)}
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.transport.Do(callCtx, req)
	if err != nil {
		// Caller cancellation is not a backend failure.
		if ctx.Err() != nil {
			return Result{Kind: KindTransportError, Err: fmt.Errorf("%w: %w", sentinel.ErrUnavailable, ctx.Err())}
		}
		g.recordFailure()
		if !errors.Is(err, sentinel.ErrUnavailable) {
			err = fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		}
		return Result{Kind: KindTransportError, Err: err}
	}
	g.recordSuccess()
	return classify(resp)
}

func (g *Gateway) recordFailure() {
	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.logger.Warn("gateway circuit opened", "breaker", g.breaker.Name())
		if g.metrics != nil {
			g.metrics.SetBreakerOpen(true)
		}
	}
}

func (g *Gateway) recordSuccess() {
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.Info("gateway circuit closed", "breaker", g.breaker.Name())
		if g.metrics != nil {
			g.metrics.SetBreakerOpen(false)
		}
	}
}

func classify(resp Response) Result {
	res := Result{Status: resp.Status, Body: resp.Body}
	switch {
	case resp.Status >= 200 && resp.Status < 300:
		res.Kind = KindOK
	case resp.Status == http.StatusNotFound:
		res.Kind = KindNotFound
		res.Err = sentinel.ErrNotFound
	case resp.Status == http.StatusPreconditionFailed:
		res.Kind = KindRejected
		res.Err = sentinel.ErrPreconditionFailed
	case resp.Status == http.StatusConflict:
		res.Kind = KindRejected
		res.Err = sentinel.ErrConflict
	default:
		res.Kind = KindRejected
		res.Err = fmt.Errorf("backend status %d", resp.Status)
	}
	return res
}
