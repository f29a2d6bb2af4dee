package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultKafkaTopic receives every relayed domain event
const DefaultKafkaTopic = "shopcore.events"

// Kafka message headers
const (
	HeaderEventID       = "event_id"
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
)

// MessageWriter is the part of *kafka.Writer the handler needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka writer
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// NewKafkaWriter builds a writer that hashes on the message key, so all events
// of one aggregate land on the same partition in order
func NewKafkaWriter(cfg KafkaConfig) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultKafkaTopic
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}, nil
}

// KafkaHandler forwards every event it receives to Kafka, keyed by aggregate id
type KafkaHandler struct {
	writer     MessageWriter
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewKafkaHandler creates a handler writing through writer
func NewKafkaHandler(writer MessageWriter, serializer *EventSerializer, logger *zap.Logger) *KafkaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaHandler{writer: writer, serializer: serializer, logger: logger}
}

// Handle writes the event. A failure is returned to the bus so the outbox
// entry is retried.
func (h *KafkaHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := h.serializer.Serialize(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(event.AggregateID().String()),
		Value: payload,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(event.EventID().String())},
			{Key: HeaderEventType, Value: []byte(event.EventType())},
			{Key: HeaderAggregateType, Value: []byte(event.AggregateType())},
		},
	}
	if err := h.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", event.EventType(), err)
	}
	h.logger.Debug("Event written to kafka",
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()))
	return nil
}

// EventTypes subscribes the handler to all events
func (h *KafkaHandler) EventTypes() []string {
	return nil
}

// Close flushes and closes the writer
func (h *KafkaHandler) Close() error {
	return h.writer.Close()
}

var _ shared.EventHandler = (*KafkaHandler)(nil)
