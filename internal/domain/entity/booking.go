package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
)

// Booking хранит текущее состояние бронирования (проекция журнала статусов).
type Booking struct {
	ID             uuid.UUID
	ConsumerID     uuid.UUID
	ProviderID     uuid.UUID
	ServiceID      uuid.UUID
	Status         valueobject.BookingStatus
	EstimatedPrice valueobject.Price
	ActualPrice    *valueobject.Price
	ScheduledAt    time.Time
	Location       string
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type NewBookingParams struct {
	ConsumerID     uuid.UUID
	ProviderID     uuid.UUID
	ServiceID      uuid.UUID
	EstimatedPrice float64
	ScheduledAt    time.Time
	Location       string
	Notes          *string
}

func NewBooking(p NewBookingParams, now time.Time) (*Booking, error) {
	if p.ConsumerID == uuid.Nil || p.ProviderID == uuid.Nil || p.ServiceID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указан заказчик, исполнитель или услуга")
	}
	if p.ConsumerID == p.ProviderID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя забронировать собственную услугу")
	}

	price, err := valueobject.NewPrice(p.EstimatedPrice, valueobject.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	if !p.ScheduledAt.After(now) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата бронирования должна быть в будущем")
	}

	location := strings.TrimSpace(p.Location)
	if location == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "адрес обязателен")
	}

	return &Booking{
		ID:             uuid.New(),
		ConsumerID:     p.ConsumerID,
		ProviderID:     p.ProviderID,
		ServiceID:      p.ServiceID,
		Status:         valueobject.BookingStatusPending,
		EstimatedPrice: price,
		ScheduledAt:    p.ScheduledAt,
		Location:       location,
		Notes:          p.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (b *Booking) IsConsumer(userID uuid.UUID) bool {
	return b.ConsumerID == userID
}

func (b *Booking) IsProvider(userID uuid.UUID) bool {
	return b.ProviderID == userID
}

func (b *Booking) IsParticipant(userID uuid.UUID) bool {
	return b.IsConsumer(userID) || b.IsProvider(userID)
}

// Counterpart возвращает второго участника бронирования.
func (b *Booking) Counterpart(userID uuid.UUID) uuid.UUID {
	if b.IsConsumer(userID) {
		return b.ProviderID
	}
	return b.ConsumerID
}

func (b *Booking) transition(to valueobject.BookingStatus) error {
	if !b.Status.CanTransitionTo(to) {
		return apperror.ErrInvalidTransition
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	return nil
}

// Confirm фиксирует согласие исполнителя: pending -> confirmed.
func (b *Booking) Confirm() error {
	return b.transition(valueobject.BookingStatusConfirmed)
}

// MarkPendingConfirmation отмечает работу выполненной исполнителем
// и сохраняет фактическую цену: confirmed -> pending_confirmation.
func (b *Booking) MarkPendingConfirmation(actual valueobject.Price) error {
	if err := b.transition(valueobject.BookingStatusPendingConfirmation); err != nil {
		return err
	}
	b.ActualPrice = &actual
	return nil
}

// Complete фиксирует подтверждение заказчика: pending_confirmation -> completed.
func (b *Booking) Complete() error {
	return b.transition(valueobject.BookingStatusCompleted)
}

// Cancel отменяет бронирование из любого нетерминального статуса.
func (b *Booking) Cancel() error {
	return b.transition(valueobject.BookingStatusCancelled)
}
