package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
)

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

type EventPublisher interface {
	PublishStatusChange(ctx context.Context, change entity.StatusChange) error
}

// ProviderDirectory проверяет, что пользователь зарегистрирован как исполнитель.
type ProviderDirectory interface {
	IsProvider(ctx context.Context, userID uuid.UUID) (bool, error)
}
