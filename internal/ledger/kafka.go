package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tasteapp/taste-index/internal/domain"
)

// KafkaConfig configures the Kafka feed and publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// ParseBrokers splits a comma-separated broker list.
func ParseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// messageReader is the subset of *kafka.Reader the feed uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaFeed consumes facts from a topic as a member of a consumer group.
// Offsets are committed only when a delivery is acknowledged, so unhandled
// facts are redelivered to the group after a restart.
type KafkaFeed struct {
	reader messageReader
	logger *slog.Logger
}

var _ Feed = (*KafkaFeed)(nil)

// NewKafkaFeed creates a consumer-group reader for cfg.
func NewKafkaFeed(cfg KafkaConfig, logger *slog.Logger) *KafkaFeed {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		MaxWait:        2 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0, // synchronous commits on Ack
	})
	logger.Info("kafka feed started", "topic", cfg.Topic, "group_id", cfg.GroupID, "brokers", cfg.Brokers)
	return &KafkaFeed{reader: reader, logger: logger}
}

// Next fetches the next decodable fact. Messages that do not decode are
// committed and skipped; they can never succeed.
func (f *KafkaFeed) Next(ctx context.Context) (Delivery, error) {
	for {
		msg, err := f.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Delivery{}, ctx.Err()
			}
			return Delivery{}, fmt.Errorf("fetch message: %w", err)
		}

		var fact domain.Fact
		if err := json.Unmarshal(msg.Value, &fact); err != nil {
			f.logger.Warn("skipping malformed fact message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			if err := f.reader.CommitMessages(ctx, msg); err != nil {
				return Delivery{}, fmt.Errorf("commit malformed message: %w", err)
			}
			continue
		}

		return Delivery{
			Fact: fact,
			Ack: func(ctx context.Context) error {
				return f.reader.CommitMessages(ctx, msg)
			},
		}, nil
	}
}

// Close leaves the consumer group.
func (f *KafkaFeed) Close() error {
	return f.reader.Close()
}

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes facts to a topic, keyed by post id so all facts
// about one post land on one partition in order.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a synchronous writer requiring all in-sync replicas.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

// Publish writes facts in order.
func (p *KafkaPublisher) Publish(ctx context.Context, facts ...domain.Fact) error {
	msgs := make([]kafka.Message, 0, len(facts))
	for _, f := range facts {
		value, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("encode fact %s: %w", f.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(factKey(f)),
			Value: value,
			Time:  f.Timestamp,
		})
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// factKey is the partition key of a fact.
func factKey(f domain.Fact) string {
	switch {
	case f.Minted != nil:
		return f.Minted.PostID
	case f.Liked != nil:
		return f.Liked.PostID
	default:
		return f.ID.String()
	}
}
