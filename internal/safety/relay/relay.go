// Package relay streams persisted safety events to Kafka.
//
// The event store acts as a transactional outbox: Publish commits the event
// row, and the relay ships unrelayed rows in order and marks them delivered.
// A crash between produce and mark yields at-least-once delivery; consumers
// must treat event_id as the dedupe key.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"guardian/internal/safety"
	"guardian/internal/safety/metrics"
	"guardian/pkg/domain"
)

const (
	defaultTopic        = "guardian.safety-events"
	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
)

// Source is the outbox side of the event store.
type Source interface {
	ListUnrelayed(ctx context.Context, limit int) ([]*safety.Event, error)
	MarkRelayed(ctx context.Context, ids []domain.EventID) error
}

// Relay polls the outbox and produces events to the safety topic.
type Relay struct {
	source  Source
	client  *kgo.Client
	topic   string
	batch   int
	poll    time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Relay.
type Option func(*Relay)

func WithTopic(topic string) Option {
	return func(r *Relay) {
		if topic != "" {
			r.topic = topic
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.poll = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// New connects to the given brokers and ensures the safety topic exists.
func New(ctx context.Context, brokers []string, source Source, opts ...Option) (*Relay, error) {
	r := &Relay{
		source: source,
		topic:  defaultTopic,
		batch:  defaultBatchSize,
		poll:   defaultPollInterval,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	r.client = client

	if err := r.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return r, nil
}

func (r *Relay) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(r.client)
	resp, err := adm.CreateTopics(ctx, 3, 1, nil, r.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", r.topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.topic, res.Err)
		}
	}
	return nil
}

// Run polls the outbox until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	defer r.client.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Drain(ctx); err != nil {
				r.logger.ErrorContext(ctx, "relay drain failed", "error", err)
			}
		}
	}
}

// Drain ships one batch of unrelayed events and marks them delivered.
func (r *Relay) Drain(ctx context.Context) error {
	events, err := r.source.ListUnrelayed(ctx, r.batch)
	if err != nil {
		return fmt.Errorf("list unrelayed events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", event.ID, err)
		}
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(event.ChildID.String()),
			Value: payload,
		})
	}

	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce safety events: %w", err)
	}

	ids := make([]domain.EventID, len(events))
	for i, event := range events {
		ids[i] = event.ID
	}
	if err := r.source.MarkRelayed(ctx, ids); err != nil {
		return fmt.Errorf("mark events relayed: %w", err)
	}
	if r.metrics != nil {
		r.metrics.RelayedEvents.Add(float64(len(events)))
	}
	r.logger.DebugContext(ctx, "relayed safety events", "count", len(events))
	return nil
}
