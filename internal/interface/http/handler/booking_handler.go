package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/interface/http/dto"
	"github.com/ignatzorin/servicehub-backend/internal/interface/http/response"
	"github.com/ignatzorin/servicehub-backend/internal/usecase/booking"
)

type BookingHandler struct {
	createUC  *booking.CreateBookingUseCase
	confirmUC *booking.ConfirmBookingUseCase
	cancelUC  *booking.CancelBookingUseCase
	getUC     *booking.GetBookingUseCase
	listMyUC  *booking.ListMyBookingsUseCase
	historyUC *booking.StatusHistoryUseCase
}

func NewBookingHandler(
	createUC *booking.CreateBookingUseCase,
	confirmUC *booking.ConfirmBookingUseCase,
	cancelUC *booking.CancelBookingUseCase,
	getUC *booking.GetBookingUseCase,
	listMyUC *booking.ListMyBookingsUseCase,
	historyUC *booking.StatusHistoryUseCase,
) *BookingHandler {
	return &BookingHandler{
		createUC:  createUC,
		confirmUC: confirmUC,
		cancelUC:  cancelUC,
		getUC:     getUC,
		listMyUC:  listMyUC,
		historyUC: historyUC,
	}
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	created, err := h.createUC.Execute(c.Request.Context(), booking.CreateBookingInput{
		ConsumerID:     userID,
		ProviderID:     req.ProviderID,
		ServiceID:      req.ServiceID,
		EstimatedPrice: req.EstimatedPrice,
		ScheduledAt:    req.ScheduledAt,
		Location:       req.Location,
		Notes:          req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToBookingResponse(created))
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	b, err := h.getUC.Execute(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToBookingResponse(b))
}

func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	limit, offset := pageParams(c)
	bookings, total, err := h.listMyUC.Execute(c.Request.Context(), booking.ListMyBookingsInput{
		UserID: userID,
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToBookingResponses(bookings), total, limit, offset)
}

func (h *BookingHandler) StatusHistory(c *gin.Context) {
	userID, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	entries, err := h.historyUC.Execute(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToStatusEntryResponses(entries))
}

func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	userID, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	b, err := h.confirmUC.Execute(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToBookingResponse(b))
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userID, bookingID, ok := userAndBooking(c)
	if !ok {
		return
	}

	var req dto.CancelBookingRequest
	// Тело необязательно: пустой запрос означает отмену без причины.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "некорректные данные запроса")
			return
		}
	}

	b, err := h.cancelUC.Execute(c.Request.Context(), bookingID, userID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToBookingResponse(b))
}

// userAndBooking достаёт текущего пользователя и :id брони, отвечая ошибкой при неудаче.
func userAndBooking(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return uuid.Nil, uuid.Nil, false
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID бронирования")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, bookingID, true
}
