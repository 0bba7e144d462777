package booking

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/repository"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/statuslog"
	"github.com/ignatzorin/servicehub-backend/internal/validation"
)

type ConfirmBookingUseCase struct {
	bookingRepo repository.BookingRepository
	log         *statuslog.Log
	notifier    Notifier
	publisher   EventPublisher
}

func NewConfirmBookingUseCase(bookingRepo repository.BookingRepository, log *statuslog.Log, notifier Notifier, publisher EventPublisher) *ConfirmBookingUseCase {
	return &ConfirmBookingUseCase{bookingRepo: bookingRepo, log: log, notifier: notifier, publisher: publisher}
}

// Execute подтверждает бронь исполнителем: pending -> confirmed.
func (uc *ConfirmBookingUseCase) Execute(ctx context.Context, bookingID, providerID uuid.UUID) (*entity.Booking, error) {
	booking, err := uc.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsProvider(providerID) {
		return nil, apperror.ErrForbidden
	}

	from := booking.Status
	if err := booking.Confirm(); err != nil {
		return nil, err
	}

	if _, err := uc.log.Append(ctx, booking.ID, booking.Status, nil, &providerID); err != nil {
		return nil, err
	}
	if err := uc.bookingRepo.Update(ctx, booking); err != nil {
		return nil, err
	}

	notify(ctx, uc.notifier, booking.ConsumerID, EventBookingConfirmed, booking)
	publish(ctx, uc.publisher, entity.NewStatusChange(booking, from, &providerID))
	return booking, nil
}

type CancelBookingUseCase struct {
	bookingRepo repository.BookingRepository
	log         *statuslog.Log
	notifier    Notifier
	publisher   EventPublisher
}

func NewCancelBookingUseCase(bookingRepo repository.BookingRepository, log *statuslog.Log, notifier Notifier, publisher EventPublisher) *CancelBookingUseCase {
	return &CancelBookingUseCase{bookingRepo: bookingRepo, log: log, notifier: notifier, publisher: publisher}
}

// Execute отменяет бронь любым из участников, пока она не завершена.
func (uc *CancelBookingUseCase) Execute(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*entity.Booking, error) {
	if err := validation.ValidateReason(reason); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	booking, err := uc.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}

	from := booking.Status
	if err := booking.Cancel(); err != nil {
		return nil, err
	}

	var notes *string
	if r := strings.TrimSpace(reason); r != "" {
		notes = &r
	}
	if _, err := uc.log.Append(ctx, booking.ID, booking.Status, notes, &userID); err != nil {
		return nil, err
	}
	if err := uc.bookingRepo.Update(ctx, booking); err != nil {
		return nil, err
	}

	notify(ctx, uc.notifier, booking.Counterpart(userID), EventBookingCancelled, booking)
	publish(ctx, uc.publisher, entity.NewStatusChange(booking, from, &userID))
	return booking, nil
}
