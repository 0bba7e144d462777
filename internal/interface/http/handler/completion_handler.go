package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/servicehub-backend/internal/goroutine"
	"github.com/ignatzorin/servicehub-backend/internal/interface/http/dto"
	"github.com/ignatzorin/servicehub-backend/internal/interface/http/response"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/completion"
)

const backgroundScanTimeout = 30 * time.Second

type CompletionHandler struct {
	coordinator *completion.Coordinator
	poller      *completion.ConfirmationPoller
}

func NewCompletionHandler(coordinator *completion.Coordinator, poller *completion.ConfirmationPoller) *CompletionHandler {
	return &CompletionHandler{coordinator: coordinator, poller: poller}
}

// MarkComplete обрабатывает POST /bookings/:id/complete (исполнитель).
func (h *CompletionHandler) MarkComplete(c *gin.Context) {
	userID, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	var req dto.MarkCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	b, err := h.coordinator.MarkProviderComplete(c.Request.Context(), completion.MarkCompleteInput{
		ProviderID:  userID,
		BookingID:   bookingID,
		ActualPrice: req.ActualPrice,
		Notes:       req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	// Заказчик получает запрос на подтверждение, не дожидаясь тика планировщика.
	consumerID := b.ConsumerID
	goroutine.SafeGo("completion_prompt_scan", func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundScanTimeout)
		defer cancel()
		_, _ = h.poller.Scan(ctx, consumerID)
	})

	response.Success(c, dto.ToBookingResponse(b))
}

// ConfirmCompletion обрабатывает POST /bookings/:id/confirm-completion (заказчик).
func (h *CompletionHandler) ConfirmCompletion(c *gin.Context) {
	userID, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	var req dto.ConfirmCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	res, err := h.coordinator.ConfirmByConsumer(c.Request.Context(), completion.ConfirmInput{
		ConsumerID: userID,
		BookingID:  bookingID,
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
	})
	if err != nil {
		if errors.Is(err, apperror.ErrAlreadyProcessed) {
			h.poller.Dismiss(userID, bookingID)
		}
		response.Error(c, err)
		return
	}

	h.poller.Dismiss(userID, bookingID)
	response.Success(c, dto.ToConfirmCompletionResponse(res))
}

// PendingConfirmation обрабатывает GET /bookings/pending-confirmation.
// Запускает сканирование по требованию и возвращает открытый запрос, если он есть.
func (h *CompletionHandler) PendingConfirmation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	prompt, err := h.poller.Scan(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if prompt == nil {
		// Сканирование могло быть пропущено из-за cooldown при уже открытом запросе.
		if open, ok := h.poller.PromptOpen(userID); ok {
			prompt = open
		}
	}

	response.Success(c, dto.PendingConfirmationResponse{Prompt: prompt})
}

// DismissPrompt обрабатывает POST /bookings/:id/prompt/dismiss.
func (h *CompletionHandler) DismissPrompt(c *gin.Context) {
	userID, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	response.Success(c, gin.H{"dismissed": h.poller.Dismiss(userID, bookingID)})
}

// Reconcile обрабатывает POST /bookings/reconcile: сверяет брони пользователя с журналом.
// Ошибки по отдельным броням не скрывают отчёт по остальным.
func (h *CompletionHandler) Reconcile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	report, err := h.coordinator.CleanupInconsistentStatuses(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		if report.Scanned == 0 {
			response.Error(c, err)
			return
		}
	}

	response.Success(c, dto.ToCleanupResponse(report))
}
