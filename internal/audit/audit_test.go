package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/supplytrack/internal/domain"
)

type fakeWriter struct {
	last []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.last = append([]kafka.Message{}, msgs...)
	return w.err
}

func TestKafkaSink_Publish(t *testing.T) {
	fw := &fakeWriter{}
	s := newKafkaSinkWithWriter(fw, "email-audit")

	entries := []domain.EmailHistoryEntry{
		{ID: "h1", EntityID: "o-1", Recipient: "a@s.test", Status: domain.EmailStatusSent, MessageID: "m1"},
		{ID: "h2", EntityID: "o-2", Recipient: "bad", Status: domain.EmailStatusFailed, Error: "invalid address format"},
	}
	require.NoError(t, s.Publish(context.Background(), entries))

	require.Len(t, fw.last, 2)
	require.Equal(t, "email-audit", fw.last[0].Topic)
	require.Equal(t, []byte("o-1"), fw.last[0].Key)

	var got domain.EmailHistoryEntry
	require.NoError(t, json.Unmarshal(fw.last[1].Value, &got))
	require.Equal(t, entries[1], got)
}

func TestKafkaSink_PublishEmpty(t *testing.T) {
	fw := &fakeWriter{}
	require.NoError(t, newKafkaSinkWithWriter(fw, "t").Publish(context.Background(), nil))
	require.Nil(t, fw.last)
}

func TestKafkaSink_WriterError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	err := newKafkaSinkWithWriter(fw, "t").Publish(context.Background(), []domain.EmailHistoryEntry{{EntityID: "x"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "kafka publish")
}

func TestNewKafkaSink(t *testing.T) {
	s := NewKafkaSink([]string{"localhost:0"}, "t")
	require.NotNil(t, s)
	require.NoError(t, s.Close())
}
