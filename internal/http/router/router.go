package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/servicehub-backend/internal/config"
	"github.com/ignatzorin/servicehub-backend/internal/http/handlers"
	"github.com/ignatzorin/servicehub-backend/internal/http/middleware"
	newHandler "github.com/ignatzorin/servicehub-backend/internal/interface/http/handler"
	"github.com/ignatzorin/servicehub-backend/internal/interface/http/response"
	"github.com/ignatzorin/servicehub-backend/internal/models"
)

// Handlers собирает все HTTP хэндлеры приложения.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Notification *handlers.NotificationHandler
	WS           *handlers.WSHandler
	Health       *handlers.HealthHandler

	Booking    *newHandler.BookingHandler
	Completion *newHandler.CompletionHandler
	Review     *newHandler.ReviewHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessTokenParser) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "маршрут не найден")
	})

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
	}

	// WebSocket авторизуется токеном из query, браузер не передаёт заголовки при апгрейде.
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))

	protected.GET("/auth/me", h.Auth.Me)

	consumerOnly := middleware.RequireRole(models.RoleConsumer)
	providerOnly := middleware.RequireRole(models.RoleProvider)
	uuidParam := middleware.UUIDValidator("id")

	bookings := protected.Group("/bookings")
	{
		bookings.POST("", consumerOnly, h.Booking.CreateBooking)
		bookings.GET("/my", h.Booking.ListMyBookings)
		bookings.GET("/pending-confirmation", consumerOnly, h.Completion.PendingConfirmation)
		bookings.POST("/reconcile", h.Completion.Reconcile)

		bookings.GET("/:id", uuidParam, h.Booking.GetBooking)
		bookings.GET("/:id/history", uuidParam, h.Booking.StatusHistory)
		bookings.GET("/:id/review", uuidParam, h.Review.GetBookingReview)
		bookings.POST("/:id/confirm", uuidParam, providerOnly, h.Booking.ConfirmBooking)
		bookings.POST("/:id/cancel", uuidParam, h.Booking.CancelBooking)
		bookings.POST("/:id/complete", uuidParam, providerOnly, h.Completion.MarkComplete)
		bookings.POST("/:id/confirm-completion", uuidParam, consumerOnly, h.Completion.ConfirmCompletion)
		bookings.POST("/:id/prompt/dismiss", uuidParam, consumerOnly, h.Completion.DismissPrompt)
	}

	protected.POST("/reviews/:id/response", uuidParam, providerOnly, h.Review.RespondToReview)
	protected.GET("/providers/:id/reviews", uuidParam, h.Review.ListProviderReviews)

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.Notification.ListNotifications)
		notifications.GET("/unread-count", h.Notification.CountUnread)
		notifications.PUT("/read-all", h.Notification.MarkAllAsRead)
		notifications.PUT("/:id/read", uuidParam, h.Notification.MarkAsRead)
	}

	return r
}
