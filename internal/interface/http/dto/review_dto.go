package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/domain/entity"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/review"
)

type RespondToReviewRequest struct {
	Response string `json:"response" binding:"required"`
}

type ReviewResponse struct {
	ID               uuid.UUID  `json:"id"`
	BookingID        uuid.UUID  `json:"booking_id"`
	ReviewerID       uuid.UUID  `json:"reviewer_id"`
	ProviderID       uuid.UUID  `json:"provider_id"`
	ServiceID        uuid.UUID  `json:"service_id"`
	Rating           int        `json:"rating"`
	Comment          *string    `json:"comment,omitempty"`
	ProviderResponse *string    `json:"provider_response,omitempty"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type ProviderReviewsResponse struct {
	Reviews       []ReviewResponse `json:"reviews"`
	AverageRating float64          `json:"average_rating"`
	TotalReviews  int              `json:"total_reviews"`
}

func ToReviewResponse(r *entity.Review) ReviewResponse {
	return ReviewResponse{
		ID:               r.ID,
		BookingID:        r.BookingID,
		ReviewerID:       r.ReviewerID,
		ProviderID:       r.ProviderID,
		ServiceID:        r.ServiceID,
		Rating:           int(r.Rating),
		Comment:          r.Comment,
		ProviderResponse: r.ProviderResponse,
		RespondedAt:      r.RespondedAt,
		CreatedAt:        r.CreatedAt,
	}
}

func ToProviderReviewsResponse(pr *review.ProviderReviews) ProviderReviewsResponse {
	out := ProviderReviewsResponse{
		Reviews:       make([]ReviewResponse, len(pr.Reviews)),
		AverageRating: pr.AverageRating,
		TotalReviews:  pr.TotalReviews,
	}
	for i, r := range pr.Reviews {
		out.Reviews[i] = ToReviewResponse(r)
	}
	return out
}
