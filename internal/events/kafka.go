package events

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer used by the forwarder.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaForwarder mirrors appointment events onto a Kafka topic.
type KafkaForwarder struct {
	writer MessageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaWriter builds a writer for brokers, a comma separated host list.
// It returns nil when no broker is configured.
func NewKafkaWriter(brokers string) *kafka.Writer {
	addrs := SplitBrokers(brokers)
	if len(addrs) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

// SplitBrokers trims and drops empty entries from a comma separated list.
func SplitBrokers(brokers string) []string {
	var out []string
	for _, part := range strings.Split(brokers, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NewKafkaForwarder constructs the forwarder.
func NewKafkaForwarder(writer MessageWriter, topic string, logger *zap.Logger) *KafkaForwarder {
	return &KafkaForwarder{writer: writer, topic: topic, logger: logger}
}

// Register subscribes the forwarder to every appointment event.
func (f *KafkaForwarder) Register(dispatcher Dispatcher) {
	if f == nil || f.writer == nil || dispatcher == nil {
		return
	}
	for _, eventType := range AppointmentEventTypes {
		dispatcher.Subscribe(eventType, f.Handle)
	}
}

// Handle writes one event keyed by appointment id so a partition sees an
// appointment's events in order.
func (f *KafkaForwarder) Handle(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: f.topic,
		Key:   []byte(strconv.FormatInt(event.AppointmentID, 10)),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		f.logger.Warn("kafka forward failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}
