package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "insureadmin/pkg/domain"
	audit "insureadmin/pkg/platform/audit"
	"insureadmin/pkg/platform/audit/worker"
)

// ErrBufferFull is returned by Emit in async mode when the buffer cannot
// accept another event.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher is the single entry point services use to record audit events.
// In sync mode events are appended inline; with WithAsyncBuffer they are queued
// and a worker goroutine persists them.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	bufferSize int
	inbox      chan audit.Event
	done       chan struct{}
	closeOnce  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables async publishing with the given channel capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records an event. A zero Timestamp is filled in and the category is
// derived from the action.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.AuditEvent(event.Action).Category()

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
				"subject", event.Subject,
			)
		}
		return ErrBufferFull
	}
}

// List returns the events recorded for an operator.
func (p *Publisher) List(ctx context.Context, actorID id.UserID) ([]audit.Event, error) {
	return p.store.ListByActor(ctx, actorID)
}

// Close stops accepting events and waits for queued events to be persisted.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			return
		}
		close(p.inbox)
		<-p.done
	})
}
