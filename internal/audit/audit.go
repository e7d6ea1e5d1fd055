// Package audit publishes email audit records to downstream consumers.
package audit

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/notifyhub/supplytrack/internal/domain"
)

// Sink receives the audit records built from a dispatch report.
type Sink interface {
	Publish(ctx context.Context, entries []domain.EmailHistoryEntry) error
}

// NopSink drops everything. Used when no broker is configured.
type NopSink struct{}

func (NopSink) Publish(context.Context, []domain.EmailHistoryEntry) error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink writes one message per audit record, keyed by entity id so all
// records of an entity land on the same partition.
type KafkaSink struct {
	w     messageWriter
	topic string
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.Hash{},
		},
		topic: topic,
	}
}

func newKafkaSinkWithWriter(w messageWriter, topic string) *KafkaSink {
	return &KafkaSink{w: w, topic: topic}
}

func (s *KafkaSink) Publish(ctx context.Context, entries []domain.EmailHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(entries))
	for _, e := range entries {
		value, err := json.Marshal(e)
		if err != nil {
			return errors.Wrap(err, "marshal audit record")
		}
		msgs = append(msgs, kafka.Message{
			Topic: s.topic,
			Key:   []byte(e.EntityID),
			Value: value,
		})
	}
	if err := s.w.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

// Close flushes and closes the underlying writer if it supports it.
func (s *KafkaSink) Close() error {
	if c, ok := s.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
