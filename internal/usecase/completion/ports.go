package completion

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
)

const (
	EventBookingPendingConfirmation = "booking_pending_confirmation"
	EventBookingCompleted           = "booking_completed"
	EventConfirmationRequired       = "booking_confirmation_required"
)

// Notifier сохраняет уведомление пользователю и доставляет его онлайн-клиентам.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

type EventPublisher interface {
	PublishStatusChange(ctx context.Context, change entity.StatusChange) error
}

// SuppressionSet хранит множество недавно подтверждённых бронирований с истечением по TTL.
type SuppressionSet interface {
	Add(ctx context.Context, key string, ttl time.Duration) error
	Contains(ctx context.Context, key string) (bool, error)
}

// PromptPresenter показывает заказчику запрос на подтверждение выполнения.
type PromptPresenter interface {
	PresentConfirmation(ctx context.Context, consumerID uuid.UUID, prompt Prompt) error
}

// ActiveConsumers перечисляет пользователей с открытым realtime-соединением.
type ActiveConsumers interface {
	ConnectedUsers() []uuid.UUID
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, uuid.UUID, string, interface{}) error { return nil }

type nopPublisher struct{}

func (nopPublisher) PublishStatusChange(context.Context, entity.StatusChange) error { return nil }
