package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/interface/http/dto"
	"github.com/ignatzorin/servicehub-backend/internal/interface/http/response"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/review"
)

type ReviewHandler struct {
	listUC    *review.ListProviderReviewsUseCase
	getUC     *review.GetBookingReviewUseCase
	respondUC *review.RespondToReviewUseCase
}

func NewReviewHandler(
	listUC *review.ListProviderReviewsUseCase,
	getUC *review.GetBookingReviewUseCase,
	respondUC *review.RespondToReviewUseCase,
) *ReviewHandler {
	return &ReviewHandler{listUC: listUC, getUC: getUC, respondUC: respondUC}
}

// ListProviderReviews обрабатывает GET /providers/:id/reviews.
func (h *ReviewHandler) ListProviderReviews(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID исполнителя")
		return
	}

	limit, offset := pageParams(c)
	res, err := h.listUC.Execute(c.Request.Context(), providerID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProviderReviewsResponse(res))
}

// GetBookingReview обрабатывает GET /bookings/:id/review.
func (h *ReviewHandler) GetBookingReview(c *gin.Context) {
	userID, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	r, err := h.getUC.Execute(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToReviewResponse(r))
}

// RespondToReview обрабатывает POST /reviews/:id/response.
func (h *ReviewHandler) RespondToReview(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	reviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID отзыва")
		return
	}

	var req dto.RespondToReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "ответ не может быть пустым")
		return
	}

	r, err := h.respondUC.Execute(c.Request.Context(), reviewID, userID, req.Response)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToReviewResponse(r))
}
