package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Fetcher is the read side of Gateway.
type Fetcher interface {
	Fetch(ctx context.Context, path string) Result
}

// FetchCollection reads path as a JSON array. Any failure, including a body
// that does not decode, yields an empty non-nil slice: callers cannot tell
// "no data" from "degraded". A stale snapshot is served when one exists.
func FetchCollection[T any](ctx context.Context, g Fetcher, path string) []T {
	res := g.Fetch(ctx, path)
	if !res.OK() && !res.Stale {
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(res.Body, &items); err != nil {
		slog.WarnContext(ctx, "gateway collection undecodable", "path", path, "error", err)
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

// FetchOne reads a single document. ok is false on any failure.
func FetchOne[T any](ctx context.Context, g Fetcher, path string) (T, bool) {
	var zero T
	res := g.Fetch(ctx, path)
	if !res.OK() && !res.Stale {
		return zero, false
	}
	var item T
	if err := json.Unmarshal(res.Body, &item); err != nil {
		slog.WarnContext(ctx, "gateway document undecodable", "path", path, "error", err)
		return zero, false
	}
	return item, true
}
