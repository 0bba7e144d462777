package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
)

type CreateBookingRequest struct {
	ProviderID     uuid.UUID `json:"provider_id" binding:"required"`
	ServiceID      uuid.UUID `json:"service_id" binding:"required"`
	EstimatedPrice float64   `json:"estimated_price" binding:"required,gt=0"`
	ScheduledAt    time.Time `json:"scheduled_at" binding:"required"`
	Location       string    `json:"location" binding:"required"`
	Notes          *string   `json:"notes"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type BookingResponse struct {
	ID             uuid.UUID `json:"id"`
	ConsumerID     uuid.UUID `json:"consumer_id"`
	ProviderID     uuid.UUID `json:"provider_id"`
	ServiceID      uuid.UUID `json:"service_id"`
	Status         string    `json:"status"`
	EstimatedPrice float64   `json:"estimated_price"`
	ActualPrice    *float64  `json:"actual_price,omitempty"`
	Currency       string    `json:"currency"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Location       string    `json:"location"`
	Notes          *string   `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type StatusEntryResponse struct {
	ID        uuid.UUID  `json:"id"`
	Status    string     `json:"status"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func ToBookingResponse(b *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:             b.ID,
		ConsumerID:     b.ConsumerID,
		ProviderID:     b.ProviderID,
		ServiceID:      b.ServiceID,
		Status:         b.Status.String(),
		EstimatedPrice: b.EstimatedPrice.Amount,
		Currency:       b.EstimatedPrice.Currency,
		ScheduledAt:    b.ScheduledAt,
		Location:       b.Location,
		Notes:          b.Notes,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	if b.ActualPrice != nil {
		amount := b.ActualPrice.Amount
		resp.ActualPrice = &amount
	}
	return resp
}

func ToBookingResponses(bookings []*entity.Booking) []BookingResponse {
	out := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		out[i] = ToBookingResponse(b)
	}
	return out
}

func ToStatusEntryResponses(entries []*entity.StatusLogEntry) []StatusEntryResponse {
	out := make([]StatusEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = StatusEntryResponse{
			ID:        e.ID,
			Status:    e.Status.String(),
			Notes:     e.Notes,
			CreatedBy: e.CreatedBy,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}
