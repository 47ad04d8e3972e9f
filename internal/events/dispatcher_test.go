package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func TestInMemoryDispatcherRunsAllHandlers(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventAppointmentScheduled, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	})
	d.Subscribe(EventAppointmentScheduled, func(context.Context, Event) error {
		calls = append(calls, "second")
		panic("boom")
	})
	d.Subscribe(EventAppointmentScheduled, func(context.Context, Event) error {
		calls = append(calls, "third")
		return nil
	})
	d.Subscribe(EventAppointmentCanceled, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventAppointmentScheduled})
	if err == nil {
		t.Fatal("expected joined handler errors")
	}
	if len(calls) != 3 || calls[0] != "first" || calls[1] != "second" || calls[2] != "third" {
		t.Fatalf("unexpected handler calls: %v", calls)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	t.Parallel()
	if err := NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventUserRegistered}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaForwarder(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{}
	forwarder := NewKafkaForwarder(writer, "club.appointments", zap.NewNop())
	d := NewInMemoryDispatcher()
	forwarder.Register(d)

	event := Event{
		ID:            "evt-1",
		Type:          EventAppointmentRescheduled,
		AppointmentID: 42,
		UserID:        7,
		Timestamp:     time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	if err := d.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := d.Publish(context.Background(), Event{Type: EventUserRegistered}); err != nil {
		t.Fatalf("publish user event: %v", err)
	}

	if len(writer.msgs) != 1 {
		t.Fatalf("expected 1 forwarded message, got %d", len(writer.msgs))
	}
	msg := writer.msgs[0]
	if msg.Topic != "club.appointments" || string(msg.Key) != "42" {
		t.Fatalf("unexpected topic/key: %s/%s", msg.Topic, msg.Key)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "evt-1" || decoded.Type != EventAppointmentRescheduled {
		t.Fatalf("unexpected payload: %+v", decoded)
	}

	writer.err = errors.New("broker down")
	if err := forwarder.Handle(context.Background(), event); err == nil {
		t.Fatal("expected write error to surface to dispatcher")
	}
}

func TestSplitBrokers(t *testing.T) {
	t.Parallel()
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
	if NewKafkaWriter("") != nil {
		t.Fatal("expected nil writer without brokers")
	}
}
