package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"certguard/pkg/platform/sentinel"
)

// DefaultTopic receives verification outcomes.
const DefaultTopic = "certguard.verification-outcomes"

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int32
	ReplicationFactor int16
}

// producer is the subset of *kgo.Client the publisher uses.
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// KafkaPublisher produces events asynchronously, keyed by session token so a
// session's events land on one partition.
type KafkaPublisher struct {
	client  producer
	topic   string
	logger  *slog.Logger
	failed  atomic.Int64
	closing atomic.Bool
}

// NewKafkaPublisher connects to the brokers and ensures the topic exists.
func NewKafkaPublisher(ctx context.Context, cfg KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka: ping brokers: %w: %w", sentinel.ErrUnavailable, err)
	}
	if err := ensureTopic(ctx, kadm.NewClient(client), cfg); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("kafka publisher ready", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return newKafkaPublisher(client, cfg.Topic, logger), nil
}

func newKafkaPublisher(client producer, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic, logger: logger}
}

func ensureTopic(ctx context.Context, adm *kadm.Client, cfg KafkaConfig) error {
	resp, err := adm.CreateTopic(ctx, cfg.Partitions, cfg.ReplicationFactor, nil, cfg.Topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("kafka: create topic %s: %w", cfg.Topic, err)
	}
	return nil
}

// Publish enqueues the event and returns without waiting for the broker.
// Delivery failures are logged and counted.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if p.closing.Load() {
		return fmt.Errorf("kafka: publisher closed: %w", sentinel.ErrUnavailable)
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: encode event: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.SessionToken.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(ev.Kind)},
		},
	}
	// The request context ends long before delivery.
	p.client.Produce(context.WithoutCancel(ctx), rec, func(r *kgo.Record, err error) {
		if err != nil {
			p.failed.Add(1)
			p.logger.Error("kafka delivery failed",
				"topic", r.Topic,
				"key", string(r.Key),
				"error", err,
			)
		}
	})
	return nil
}

// DeliveryFailures reports how many records the broker never acknowledged.
func (p *KafkaPublisher) DeliveryFailures() int64 {
	return p.failed.Load()
}

// Close flushes buffered records until ctx ends, then closes the client.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	p.closing.Store(true)
	err := p.client.Flush(ctx)
	p.client.Close()
	if err != nil {
		return fmt.Errorf("kafka: flush: %w", err)
	}
	return nil
}
