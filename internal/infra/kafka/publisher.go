package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"arbiter/internal/domain/execution"
	"arbiter/internal/ports"
)

var _ ports.ResultSink = (*Publisher)(nil)

// PublisherConfig configures the Kafka-based result sink.
type PublisherConfig struct {
	Brokers []string
	Topic   string
}

// Publisher writes signed verdicts to the results topic, keyed by submission
// ID so redeliveries of the same submission land in the same partition.
type Publisher struct {
	writer messageWriter
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewPublisher constructs a Publisher using the supplied configuration.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker must be provided")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic must be provided")
	}

	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
	}

	return newPublisher(writer), nil
}

func newPublisher(writer messageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// PublishResult serializes and writes the signed result to Kafka.
func (p *Publisher) PublishResult(ctx context.Context, signed execution.SignedResult) error {
	payload, err := encodeSignedResult(signed)
	if err != nil {
		return err
	}

	msg := kafkago.Message{
		Key:   []byte(signed.Result.SubmissionID),
		Value: payload,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// Close releases the underlying Kafka writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
