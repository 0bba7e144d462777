package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/config"
	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
)

const eventTypeStatusChanged = "booking.status_changed"

// StatusEvent описывает сообщение в топике статусов.
type StatusEvent struct {
	Type string `json:"type"`
	entity.StatusChange
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher публикует применённые переходы бронирований.
// Ключ сообщения это id бронирования, так события одной брони
// попадают в одну партицию и читаются по порядку.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.StatusTopic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		topic: cfg.StatusTopic,
	}
}

func (p *KafkaPublisher) PublishStatusChange(ctx context.Context, change entity.StatusChange) error {
	msg, err := buildMessage(change)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", p.topic, err)
	}

	logger.Component("events").WithFields(logrus.Fields{
		"booking_id": change.BookingID,
		"to":         change.To,
	}).Debug("status change published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func buildMessage(change entity.StatusChange) (kafka.Message, error) {
	data, err := json.Marshal(StatusEvent{Type: eventTypeStatusChanged, StatusChange: change})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: marshal status event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(change.BookingID.String()),
		Value: data,
		Time:  change.OccurredAt,
	}, nil
}

// NopPublisher используется, когда брокеры не настроены.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChange(context.Context, entity.StatusChange) error { return nil }

func (NopPublisher) Close() error { return nil }
