package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/valueobject"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
)

const maxReviewLength = 2000

type Review struct {
	ID               uuid.UUID
	BookingID        uuid.UUID
	ReviewerID       uuid.UUID
	ProviderID       uuid.UUID
	ServiceID        uuid.UUID
	Rating           valueobject.Rating
	Comment          *string
	ProviderResponse *string
	RespondedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewReview создаёт отзыв заказчика по бронированию.
func NewReview(b *Booking, rating int, comment string) (*Review, error) {
	r, err := valueobject.NewRating(rating)
	if err != nil {
		return nil, err
	}

	var text *string
	if trimmed := strings.TrimSpace(comment); trimmed != "" {
		if len([]rune(trimmed)) > maxReviewLength {
			return nil, apperror.New(apperror.ErrCodeValidation, "отзыв слишком длинный")
		}
		text = &trimmed
	}

	now := time.Now()
	return &Review{
		ID:         uuid.New(),
		BookingID:  b.ID,
		ReviewerID: b.ConsumerID,
		ProviderID: b.ProviderID,
		ServiceID:  b.ServiceID,
		Rating:     r,
		Comment:    text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Respond сохраняет ответ исполнителя на отзыв.
func (r *Review) Respond(providerID uuid.UUID, response string) error {
	if r.ProviderID != providerID {
		return apperror.ErrForbidden
	}
	text := strings.TrimSpace(response)
	if text == "" {
		return apperror.New(apperror.ErrCodeValidation, "ответ не может быть пустым")
	}
	if len([]rune(text)) > maxReviewLength {
		return apperror.New(apperror.ErrCodeValidation, "ответ слишком длинный")
	}

	now := time.Now()
	r.ProviderResponse = &text
	r.RespondedAt = &now
	r.UpdatedAt = now
	return nil
}
