package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
)

type ReviewRepository interface {
	// Create возвращает created=false, если отзыв по бронированию уже существует.
	Create(ctx context.Context, review *entity.Review) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Review, error)
	// FindByBookingID возвращает nil, nil если отзыва нет.
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Review, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]*entity.Review, error)
	AverageRating(ctx context.Context, providerID uuid.UUID) (float64, int, error)
	SetProviderResponse(ctx context.Context, review *entity.Review) error
}
