package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"insureadmin/internal/gateway"
	"insureadmin/pkg/platform/sentinel"
)

const maxResponseBytes = 8 << 20

// PreconditionHeader carries a compare-and-swap guard as "field=value". The
// backend applies the write only if the stored document's field still equals
// value and answers 412 otherwise.
const PreconditionHeader = "X-Precondition"

// TokenSource returns the bearer credential for the caller in ctx, or "".
type TokenSource func(ctx context.Context) string

// HTTP speaks the Transport contract against the REST backend.
type HTTP struct {
	baseURL string
	client  *http.Client
	token   TokenSource
}

type HTTPOption func(*HTTP)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = c
	}
}

// WithTokenSource attaches the caller's bearer token to each request.
func WithTokenSource(src TokenSource) HTTPOption {
	return func(h *HTTP) {
		h.token = src
	}
}

func NewHTTP(baseURL string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var methods = map[gateway.Op]string{
	gateway.OpFetch:  http.MethodGet,
	gateway.OpPut:    http.MethodPut,
	gateway.OpPatch:  http.MethodPatch,
	gateway.OpDelete: http.MethodDelete,
	gateway.OpInvoke: http.MethodPost,
}

func (h *HTTP) Do(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	method, ok := methods[req.Op]
	if !ok {
		return gateway.Response{}, fmt.Errorf("unsupported op %q", req.Op)
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, h.baseURL+"/"+strings.TrimLeft(req.Path, "/"), body)
	if err != nil {
		return gateway.Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if h.token != nil {
		if token := h.token(ctx); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if req.Precondition != nil {
		httpReq.Header.Set(PreconditionHeader, req.Precondition.String())
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return gateway.Response{}, fmt.Errorf("%s %s: %w: %w", method, req.Path, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gateway.Response{}, fmt.Errorf("read %s: %w: %w", req.Path, sentinel.ErrUnavailable, err)
	}
	return gateway.Response{Status: resp.StatusCode, Body: raw}, nil
}
