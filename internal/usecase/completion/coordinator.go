// Package completion реализует двустороннее подтверждение выполнения заказа:
// исполнитель отмечает работу выполненной, заказчик подтверждает и оставляет отзыв.
//
// Журнал статусов и проекция bookings пишутся отдельными запросами без общей
// транзакции. Журнал считается источником истины, а расхождения чинятся при
// чтении (ReconcileBooking, CleanupInconsistentStatuses).
package completion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/domain/repository"
	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/retry"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/statuslog"
)

const defaultSuppressionTTL = 24 * time.Hour

type Options struct {
	SuppressionTTL time.Duration
	// StatusUpdate применяется только к финальному обновлению статуса при подтверждении.
	StatusUpdate retry.Strategy
}

func DefaultOptions() Options {
	return Options{
		SuppressionTTL: defaultSuppressionTTL,
		StatusUpdate:   retry.Strategy{Attempts: 3, Delay: 500 * time.Millisecond},
	}
}

type Coordinator struct {
	bookings   repository.BookingRepository
	log        *statuslog.Log
	reviews    repository.ReviewRepository
	suppressed SuppressionSet
	notifier   Notifier
	publisher  EventPublisher
	locks      *keyedMutex
	opts       Options
	logger     *logrus.Entry
}

func NewCoordinator(
	bookings repository.BookingRepository,
	log *statuslog.Log,
	reviews repository.ReviewRepository,
	suppressed SuppressionSet,
	notifier Notifier,
	publisher EventPublisher,
	opts Options,
) *Coordinator {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if opts.SuppressionTTL <= 0 {
		opts.SuppressionTTL = defaultSuppressionTTL
	}

	return &Coordinator{
		bookings:   bookings,
		log:        log,
		reviews:    reviews,
		suppressed: suppressed,
		notifier:   notifier,
		publisher:  publisher,
		locks:      newKeyedMutex(),
		opts:       opts,
		logger:     logger.Component("completion"),
	}
}

type MarkCompleteInput struct {
	ProviderID  uuid.UUID
	BookingID   uuid.UUID
	ActualPrice float64
	Notes       string
}

// MarkProviderComplete переводит бронирование confirmed -> pending_confirmation.
// Повторный вызов для брони, уже ожидающей подтверждения, ничего не меняет.
func (c *Coordinator) MarkProviderComplete(ctx context.Context, in MarkCompleteInput) (*entity.Booking, error) {
	price, err := valueobject.NewPrice(in.ActualPrice, valueobject.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(in.BookingID)
	defer unlock()

	booking, err := c.bookings.FindByID(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsProvider(in.ProviderID) {
		return nil, apperror.ErrForbidden
	}

	switch booking.Status {
	case valueobject.BookingStatusConfirmed:
	case valueobject.BookingStatusPendingConfirmation:
		return booking, nil
	default:
		return nil, apperror.ErrAlreadyProcessed
	}

	logged, err := c.log.HasStatus(ctx, booking.ID, valueobject.BookingStatusPendingConfirmation)
	if err != nil {
		return nil, err
	}
	if !logged {
		if _, err := c.log.Append(ctx, booking.ID, valueobject.BookingStatusPendingConfirmation, optional(in.Notes), &in.ProviderID); err != nil {
			return nil, err
		}
	}

	from := booking.Status
	if err := booking.MarkPendingConfirmation(price); err != nil {
		return nil, err
	}
	if err := c.bookings.Update(ctx, booking); err != nil {
		c.logger.WithError(err).WithField("booking_id", booking.ID).Error("provider completion: status update failed")
		return nil, err
	}

	c.notify(ctx, booking.ConsumerID, EventBookingPendingConfirmation, map[string]interface{}{
		"booking_id":   booking.ID,
		"actual_price": price.Amount,
		"currency":     price.Currency,
	})
	c.publish(ctx, entity.NewStatusChange(booking, from, &in.ProviderID))

	return booking, nil
}

type ConfirmInput struct {
	ConsumerID uuid.UUID
	BookingID  uuid.UUID
	Rating     int
	ReviewText string
}

type ConfirmResult struct {
	Booking *entity.Booking
	Review  *entity.Review
	// ReviewCreated false, если отзыв по брони уже существовал.
	ReviewCreated bool
}

// ConfirmByConsumer завершает бронирование и сохраняет отзыв.
// Вызовы по одной брони выполняются строго по очереди, поэтому повторное
// нажатие получает ErrAlreadyProcessed и ничего не пишет.
func (c *Coordinator) ConfirmByConsumer(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	if _, err := valueobject.NewRating(in.Rating); err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(in.BookingID)
	defer unlock()

	booking, err := c.bookings.FindByID(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsConsumer(in.ConsumerID) {
		return nil, apperror.ErrForbidden
	}
	if booking.Status != valueobject.BookingStatusPendingConfirmation {
		return nil, apperror.ErrAlreadyProcessed
	}

	review, err := entity.NewReview(booking, in.Rating, in.ReviewText)
	if err != nil {
		return nil, err
	}

	logged, err := c.log.HasStatus(ctx, booking.ID, valueobject.BookingStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !logged {
		if _, err := c.log.Append(ctx, booking.ID, valueobject.BookingStatusCompleted, nil, &in.ConsumerID); err != nil {
			return nil, err
		}
	}

	from := booking.Status
	if err := booking.Complete(); err != nil {
		return nil, err
	}

	attempt := 0
	err = c.opts.StatusUpdate.Do(ctx, func(ctx context.Context) error {
		attempt++
		if err := c.bookings.Update(ctx, booking); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"attempt":    attempt,
			}).Warn("consumer confirmation: status update failed")
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ConfirmResult{Booking: booking}

	existing, err := c.reviews.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		result.Review = existing
	} else {
		created, err := c.reviews.Create(ctx, review)
		if err != nil {
			return nil, err
		}
		result.ReviewCreated = created
		if created {
			result.Review = review
		} else if result.Review, err = c.reviews.FindByBookingID(ctx, booking.ID); err != nil {
			return nil, err
		}
	}

	if err := c.suppressed.Add(ctx, booking.ID.String(), c.opts.SuppressionTTL); err != nil {
		c.logger.WithError(err).WithField("booking_id", booking.ID).Warn("suppression set: add failed")
	}

	c.notify(ctx, booking.ProviderID, EventBookingCompleted, map[string]interface{}{
		"booking_id": booking.ID,
		"rating":     in.Rating,
	})
	c.publish(ctx, entity.NewStatusChange(booking, from, &in.ConsumerID))

	return result, nil
}

// CleanupReport содержит итог сверки журнала и проекции.
type CleanupReport struct {
	Scanned      int         `json:"scanned"`
	Repaired     []uuid.UUID `json:"repaired"`
	Deduplicated int         `json:"deduplicated"`
}

// CleanupInconsistentStatuses сверяет все брони пользователя в статусе
// pending_confirmation с журналом. Если расхождений нет, ничего не пишет.
// Ошибка по одной брони не прерывает обработку остальных.
func (c *Coordinator) CleanupInconsistentStatuses(ctx context.Context, userID uuid.UUID) (CleanupReport, error) {
	report := CleanupReport{Repaired: []uuid.UUID{}}

	bookings, err := c.bookings.FindByParticipantAndStatus(ctx, userID, valueobject.BookingStatusPendingConfirmation)
	if err != nil {
		return report, err
	}

	var errs []error
	for _, b := range bookings {
		report.Scanned++

		res, err := c.ReconcileBooking(ctx, b.ID)
		if err != nil {
			c.logger.WithError(err).WithField("booking_id", b.ID).Warn("cleanup: reconcile failed")
			errs = append(errs, err)
			continue
		}
		if res.Repaired {
			report.Repaired = append(report.Repaired, b.ID)
		}
		report.Deduplicated += res.Deduplicated
	}

	if len(report.Repaired) > 0 || report.Deduplicated > 0 {
		c.logger.WithFields(logrus.Fields{
			"user_id":      userID,
			"repaired":     len(report.Repaired),
			"deduplicated": report.Deduplicated,
		}).Info("status log reconciled")
	}

	return report, errors.Join(errs...)
}

type ReconcileResult struct {
	Booking      *entity.Booking
	Repaired     bool
	Deduplicated int
}

// ReconcileBooking сверяет одну бронь в статусе pending_confirmation с журналом:
// при наличии записи completed доводит проекцию до completed (журнал не трогает)
// и удаляет повторные записи pending_confirmation, оставляя самую свежую.
func (c *Coordinator) ReconcileBooking(ctx context.Context, bookingID uuid.UUID) (*ReconcileResult, error) {
	unlock := c.locks.Lock(bookingID)
	defer unlock()

	booking, err := c.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Booking: booking}
	if booking.Status != valueobject.BookingStatusPendingConfirmation {
		return result, nil
	}

	completed, err := c.log.HasStatus(ctx, booking.ID, valueobject.BookingStatusCompleted)
	if err != nil {
		return nil, err
	}
	if completed {
		from := booking.Status
		if err := booking.Complete(); err != nil {
			return nil, err
		}
		if err := c.bookings.Update(ctx, booking); err != nil {
			return nil, err
		}
		result.Repaired = true

		change := entity.NewStatusChange(booking, from, nil)
		change.Repaired = true
		c.publish(ctx, change)
	}

	removed, err := c.log.Deduplicate(ctx, booking.ID, valueobject.BookingStatusPendingConfirmation)
	if err != nil {
		return nil, err
	}
	result.Deduplicated = removed

	return result, nil
}

func (c *Coordinator) notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) {
	if err := c.notifier.Notify(ctx, userID, event, data); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"event":   event,
		}).Warn("notification failed")
	}
}

func (c *Coordinator) publish(ctx context.Context, change entity.StatusChange) {
	if err := c.publisher.PublishStatusChange(ctx, change); err != nil {
		c.logger.WithError(err).WithField("booking_id", change.BookingID).Warn("status event publish failed")
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
