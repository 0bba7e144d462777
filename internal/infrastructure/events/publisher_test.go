package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
)

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

func (w *recordingWriter) Close() error { return nil }

func sampleChange() entity.StatusChange {
	return entity.StatusChange{
		BookingID:  uuid.New(),
		ConsumerID: uuid.New(),
		ProviderID: uuid.New(),
		From:       valueobject.BookingStatusPendingConfirmation,
		To:         valueobject.BookingStatusCompleted,
		OccurredAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_PublishStatusChange(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w, topic: "booking-status"}
	change := sampleChange()

	require.NoError(t, p.PublishStatusChange(context.Background(), change))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, change.BookingID.String(), string(msg.Key))
	assert.Equal(t, change.OccurredAt, msg.Time)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, eventTypeStatusChanged, decoded["type"])
	assert.Equal(t, "completed", decoded["to"])
	assert.Equal(t, "pending_confirmation", decoded["from"])
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, topic: "booking-status"}

	err := p.PublishStatusChange(context.Background(), sampleChange())
	assert.ErrorContains(t, err, "broker down")
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.PublishStatusChange(context.Background(), sampleChange()))
	assert.NoError(t, p.Close())
}
