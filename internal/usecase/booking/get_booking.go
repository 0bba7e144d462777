package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/repository"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/statuslog"
)

type GetBookingUseCase struct {
	bookingRepo repository.BookingRepository
}

func NewGetBookingUseCase(bookingRepo repository.BookingRepository) *GetBookingUseCase {
	return &GetBookingUseCase{bookingRepo: bookingRepo}
}

func (uc *GetBookingUseCase) Execute(ctx context.Context, bookingID, userID uuid.UUID) (*entity.Booking, error) {
	booking, err := uc.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return booking, nil
}

// Роли, в которых пользователь просматривает свои брони.
const (
	RoleAny      = ""
	RoleConsumer = "consumer"
	RoleProvider = "provider"
)

type ListMyBookingsInput struct {
	UserID uuid.UUID
	Role   string
	Status string
	Limit  int
	Offset int
}

type ListMyBookingsUseCase struct {
	bookingRepo repository.BookingRepository
}

func NewListMyBookingsUseCase(bookingRepo repository.BookingRepository) *ListMyBookingsUseCase {
	return &ListMyBookingsUseCase{bookingRepo: bookingRepo}
}

func (uc *ListMyBookingsUseCase) Execute(ctx context.Context, input ListMyBookingsInput) ([]*entity.Booking, int, error) {
	filter := repository.BookingFilter{Limit: input.Limit, Offset: input.Offset}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	userID := input.UserID
	switch input.Role {
	case RoleConsumer:
		filter.ConsumerID = &userID
	case RoleProvider:
		filter.ProviderID = &userID
	case RoleAny:
		filter.ParticipantID = &userID
	default:
		return nil, 0, apperror.New(apperror.ErrCodeValidation, "неизвестная роль")
	}

	if input.Status != "" {
		status, err := valueobject.NewBookingStatus(input.Status)
		if err != nil {
			return nil, 0, err
		}
		filter.Status = &status
	}

	return uc.bookingRepo.List(ctx, filter)
}

type StatusHistoryUseCase struct {
	bookingRepo repository.BookingRepository
	log         *statuslog.Log
}

func NewStatusHistoryUseCase(bookingRepo repository.BookingRepository, log *statuslog.Log) *StatusHistoryUseCase {
	return &StatusHistoryUseCase{bookingRepo: bookingRepo, log: log}
}

// Execute возвращает журнал переходов брони по возрастанию времени.
func (uc *StatusHistoryUseCase) Execute(ctx context.Context, bookingID, userID uuid.UUID) ([]*entity.StatusLogEntry, error) {
	booking, err := uc.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return uc.log.History(ctx, booking.ID)
}
