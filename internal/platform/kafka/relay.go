package kafka

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"insureadmin/internal/platform/config"
)

var (
	relayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "insureadmin_outbox_relayed_total",
		Help: "Outbox entries published to Kafka",
	})
	relayErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "insureadmin_outbox_relay_errors_total",
		Help: "Outbox relay batches that failed to publish",
	})
)

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// OutboxEntry is one unpublished row of the outbox table.
type OutboxEntry struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Relay moves audit events from the Postgres outbox to Kafka. Rows are
// claimed with SKIP LOCKED so several relays can run side by side.
type Relay struct {
	db       *sql.DB
	producer Producer
	topic    string
	batch    int
	interval time.Duration
	logger   *slog.Logger
}

func NewRelay(db *sql.DB, producer Producer, cfg config.KafkaConfig, logger *slog.Logger) *Relay {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{
		db:       db,
		producer: producer,
		topic:    cfg.AuditTopic,
		batch:    batch,
		interval: interval,
		logger:   logger,
	}
}

// NewClient builds a franz-go client that produces to the audit topic.
func NewClient(cfg config.KafkaConfig) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.AuditTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates the audit topic if it does not exist.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	admin := kadm.NewClient(client)
	responses, err := admin.CreateTopics(ctx, 1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, resp := range responses {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				relayErrorsTotal.Inc()
				r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and marks it processed. It returns the number
// of entries published.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin relay tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	entries, err := claimBatch(ctx, tx, r.batch)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, ToRecord(r.topic, e))
	}
	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("produce audit batch: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE outbox SET processed_at = now() WHERE id = ANY($1::uuid[])`,
		pq.Array(ids),
	); err != nil {
		return 0, fmt.Errorf("mark outbox processed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit relay tx: %w", err)
	}
	relayedTotal.Add(float64(len(entries)))
	return len(entries), nil
}

func claimBatch(ctx context.Context, tx *sql.Tx, limit int) ([]OutboxEntry, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id::text, aggregate_type, aggregate_id, event_type, payload
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ToRecord keys records by aggregate so one operator's events stay ordered
// within a partition.
func ToRecord(topic string, e OutboxEntry) *kgo.Record {
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(e.AggregateType + ":" + e.AggregateID),
		Value: e.Payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "outbox_id", Value: []byte(e.ID)},
		},
	}
}
