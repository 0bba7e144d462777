package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
)

// StatusLogEntry описывает запись журнала переходов бронирования.
type StatusLogEntry struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	Status    valueobject.BookingStatus
	Notes     *string
	CreatedBy *uuid.UUID
	CreatedAt time.Time
}

// StatusChange описывает применённый переход для внешних подписчиков.
type StatusChange struct {
	BookingID  uuid.UUID                 `json:"booking_id"`
	ConsumerID uuid.UUID                 `json:"consumer_id"`
	ProviderID uuid.UUID                 `json:"provider_id"`
	From       valueobject.BookingStatus `json:"from"`
	To         valueobject.BookingStatus `json:"to"`
	ActorID    *uuid.UUID                `json:"actor_id,omitempty"`
	Repaired   bool                      `json:"repaired,omitempty"`
	OccurredAt time.Time                 `json:"occurred_at"`
}

func NewStatusChange(b *Booking, from valueobject.BookingStatus, actorID *uuid.UUID) StatusChange {
	return StatusChange{
		BookingID:  b.ID,
		ConsumerID: b.ConsumerID,
		ProviderID: b.ProviderID,
		From:       from,
		To:         b.Status,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}
