package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/repository"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/statuslog"
)

type CreateBookingInput struct {
	ConsumerID     uuid.UUID
	ProviderID     uuid.UUID
	ServiceID      uuid.UUID
	EstimatedPrice float64
	ScheduledAt    time.Time
	Location       string
	Notes          *string
}

type CreateBookingUseCase struct {
	bookingRepo repository.BookingRepository
	log         *statuslog.Log
	providers   ProviderDirectory
	notifier    Notifier
}

func NewCreateBookingUseCase(
	bookingRepo repository.BookingRepository,
	log *statuslog.Log,
	providers ProviderDirectory,
	notifier Notifier,
) *CreateBookingUseCase {
	return &CreateBookingUseCase{bookingRepo: bookingRepo, log: log, providers: providers, notifier: notifier}
}

func (uc *CreateBookingUseCase) Execute(ctx context.Context, input CreateBookingInput) (*entity.Booking, error) {
	booking, err := entity.NewBooking(entity.NewBookingParams{
		ConsumerID:     input.ConsumerID,
		ProviderID:     input.ProviderID,
		ServiceID:      input.ServiceID,
		EstimatedPrice: input.EstimatedPrice,
		ScheduledAt:    input.ScheduledAt,
		Location:       input.Location,
		Notes:          input.Notes,
	}, time.Now())
	if err != nil {
		return nil, err
	}

	if uc.providers != nil {
		ok, err := uc.providers.IsProvider(ctx, input.ProviderID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "исполнитель не найден")
		}
	}

	if err := uc.bookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}
	if _, err := uc.log.Append(ctx, booking.ID, valueobject.BookingStatusPending, nil, &input.ConsumerID); err != nil {
		return nil, err
	}

	notify(ctx, uc.notifier, booking.ProviderID, EventBookingCreated, booking)
	return booking, nil
}

func notify(ctx context.Context, n Notifier, userID uuid.UUID, event string, b *entity.Booking) {
	if n == nil {
		return
	}
	data := map[string]interface{}{
		"booking_id": b.ID,
		"status":     b.Status,
	}
	if err := n.Notify(ctx, userID, event, data); err != nil {
		logger.Component("booking").WithError(err).WithField("event", event).Warn("notification failed")
	}
}

func publish(ctx context.Context, p EventPublisher, change entity.StatusChange) {
	if p == nil {
		return
	}
	if err := p.PublishStatusChange(ctx, change); err != nil {
		logger.Component("booking").WithError(err).WithField("booking_id", change.BookingID).Warn("status event publish failed")
	}
}
