package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
)

// StatusLogRepository хранит журнал переходов. Записи только добавляются,
// DeleteByIDs используется исключительно дедупликацией.
type StatusLogRepository interface {
	Append(ctx context.Context, entry *entity.StatusLogEntry) error
	// ListByBooking возвращает записи по возрастанию created_at.
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*entity.StatusLogEntry, error)
	ListByBookingAndStatus(ctx context.Context, bookingID uuid.UUID, status valueobject.BookingStatus) ([]*entity.StatusLogEntry, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
}
