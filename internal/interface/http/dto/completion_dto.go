package dto

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/usecase/completion"
)

type MarkCompleteRequest struct {
	ActualPrice float64 `json:"actual_price"`
	Notes       string  `json:"notes"`
}

// ConfirmCompletionRequest: rating проверяется в сценарии, чтобы 0 давал VALIDATION_ERROR.
type ConfirmCompletionRequest struct {
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
}

type ConfirmCompletionResponse struct {
	Booking       BookingResponse `json:"booking"`
	Review        *ReviewResponse `json:"review,omitempty"`
	ReviewCreated bool            `json:"review_created"`
}

type PendingConfirmationResponse struct {
	Prompt *completion.Prompt `json:"prompt"`
}

type CleanupResponse struct {
	Scanned      int         `json:"scanned"`
	Repaired     []uuid.UUID `json:"repaired"`
	Deduplicated int         `json:"deduplicated"`
}

func ToConfirmCompletionResponse(res *completion.ConfirmResult) ConfirmCompletionResponse {
	out := ConfirmCompletionResponse{
		Booking:       ToBookingResponse(res.Booking),
		ReviewCreated: res.ReviewCreated,
	}
	if res.Review != nil {
		review := ToReviewResponse(res.Review)
		out.Review = &review
	}
	return out
}

func ToCleanupResponse(r completion.CleanupReport) CleanupResponse {
	return CleanupResponse{
		Scanned:      r.Scanned,
		Repaired:     r.Repaired,
		Deduplicated: r.Deduplicated,
	}
}
