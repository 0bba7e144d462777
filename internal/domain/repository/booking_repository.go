package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// Update перезаписывает статус, фактическую цену и updated_at.
	Update(ctx context.Context, booking *entity.Booking) error
	List(ctx context.Context, filter BookingFilter) ([]*entity.Booking, int, error)
	FindByConsumerAndStatus(ctx context.Context, consumerID uuid.UUID, status valueobject.BookingStatus) ([]*entity.Booking, error)
	// FindByParticipantAndStatus ищет бронирования, где пользователь заказчик или исполнитель.
	FindByParticipantAndStatus(ctx context.Context, userID uuid.UUID, status valueobject.BookingStatus) ([]*entity.Booking, error)
}

type BookingFilter struct {
	ConsumerID *uuid.UUID
	ProviderID *uuid.UUID
	// ParticipantID совпадает с заказчиком или исполнителем.
	ParticipantID *uuid.UUID
	Status        *valueobject.BookingStatus
	Limit         int
	Offset        int
}
