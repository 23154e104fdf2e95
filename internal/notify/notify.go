// CLAUDE:SUMMARY Publishes finished extraction results to Kafka for downstream consumers; no-op when no brokers are configured.
// CLAUDE:EXPORTS Publisher, Config, New, Kafka, Noop
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config selects the Kafka topic. No brokers disables publication.
type Config struct {
	Brokers []string      `yaml:"brokers"`
	Topic   string        `yaml:"topic"`   // default "sintesis.extractions"
	Timeout time.Duration `yaml:"timeout"` // per publish, default 10s
}

func (c *Config) defaults() {
	if c.Topic == "" {
		c.Topic = "sintesis.extractions"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// Publisher sends one JSON event keyed by publication date.
type Publisher interface {
	Publish(ctx context.Context, key string, event any, headers map[string]string) error
	Close() error
}

// New returns a Kafka publisher, or Noop when cfg has no brokers.
func New(cfg Config, logger *slog.Logger) Publisher {
	if len(cfg.Brokers) == 0 {
		return Noop{}
	}
	cfg.defaults()
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		MaxAttempts: 3,
	})
	return newKafka(w, cfg, logger)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes to one topic.
type Kafka struct {
	w       messageWriter
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

func newKafka(w messageWriter, cfg Config, logger *slog.Logger) *Kafka {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{w: w, topic: cfg.Topic, timeout: cfg.Timeout, logger: logger}
}

func (k *Kafka) Publish(ctx context.Context, key string, event any, headers map[string]string) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	for hk, hv := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: hk, Value: []byte(hv)})
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("notify: write %s: %w", k.topic, err)
	}
	k.logger.Debug("notify: published", "topic", k.topic, "key", key, "bytes", len(value))
	return nil
}

func (k *Kafka) Close() error { return k.w.Close() }

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, string, any, map[string]string) error { return nil }
func (Noop) Close() error                                                  { return nil }
